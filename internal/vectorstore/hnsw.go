package vectorstore

import (
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"
)

// tokenKey identifies a single token vector's owning block.
type tokenKey struct {
	blockID string
	index   int
}

// tokenGraph indexes every token vector of every stored block in one flat
// HNSW graph, so an approximate nearest-token search can surface candidate
// blocks before the exact MaxSim rerank (over the full matrices held in
// metadataDB) ranks them precisely. This two-stage approach keeps per-query
// cost sublinear in the number of indexed tokens while still scoring
// late-interaction similarity exactly, the same tradeoff a flat per-token
// ANN index makes for ColBERT-style retrieval.
type tokenGraph struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	dim     int
	nextKey uint64
	keyOf   map[uint64]tokenKey
	// blockKeys tracks which graph keys belong to a block, so Delete can
	// orphan every token of a removed block without a full graph scan.
	blockKeys map[string][]uint64
	closed    bool
}

func newTokenGraph(dim int) *tokenGraph {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 40
	g.Ml = 0.25

	return &tokenGraph{
		graph:     g,
		dim:       dim,
		keyOf:     make(map[uint64]tokenKey),
		blockKeys: make(map[string][]uint64),
	}
}

func (g *tokenGraph) add(blockID string, tokens [][]float32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return fmt.Errorf("token graph is closed")
	}

	g.removeLocked(blockID)

	keys := make([]uint64, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) != g.dim {
			return fmt.Errorf("token dimension mismatch: expected %d, got %d", g.dim, len(tok))
		}
		vec := make([]float32, len(tok))
		copy(vec, tok)
		normalize(vec)

		key := g.nextKey
		g.nextKey++
		g.graph.Add(hnsw.MakeNode(key, vec))
		g.keyOf[key] = tokenKey{blockID: blockID, index: len(keys)}
		keys = append(keys, key)
	}
	g.blockKeys[blockID] = keys
	return nil
}

func (g *tokenGraph) delete(blockID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(blockID)
}

// removeLocked orphans a block's token keys with lazy deletion, matching
// the surrounding store's approach of never calling graph.Delete (which has
// a known failure mode when it removes the graph's last remaining node).
func (g *tokenGraph) removeLocked(blockID string) {
	for _, key := range g.blockKeys[blockID] {
		delete(g.keyOf, key)
	}
	delete(g.blockKeys, blockID)
}

// candidateBlocks returns the set of block ids whose tokens appear among
// the approximate nearest neighbors of any query token vector. The set is
// unweighted: a block is included once however many query tokens hit it.
func (g *tokenGraph) candidateBlocks(queryTokens [][]float32, perTokenK int) (map[string]struct{}, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return nil, fmt.Errorf("token graph is closed")
	}

	candidates := make(map[string]struct{})
	if g.graph.Len() == 0 {
		return candidates, nil
	}

	for _, qt := range queryTokens {
		if len(qt) != g.dim {
			return nil, fmt.Errorf("query token dimension mismatch: expected %d, got %d", g.dim, len(qt))
		}
		vec := make([]float32, len(qt))
		copy(vec, qt)
		normalize(vec)

		for _, node := range g.graph.Search(vec, perTokenK) {
			if tk, ok := g.keyOf[node.Key]; ok {
				candidates[tk.blockID] = struct{}{}
			}
		}
	}
	return candidates, nil
}

func (g *tokenGraph) close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func normalize(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// maxSim computes the late-interaction similarity between a query's token
// matrix and a document's token matrix: for every query token, take its
// best (max cosine similarity) match among the document's tokens, then sum
// those maxima. Higher is more similar.
func maxSim(query, doc [][]float32) float32 {
	var total float32
	for _, q := range query {
		var best float32 = -1
		for _, d := range doc {
			if sim := cosineSimilarity(q, d); sim > best {
				best = sim
			}
		}
		if best > -1 {
			total += best
		}
	}
	return total
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
