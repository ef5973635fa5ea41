package vectorstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// candidateOverfetch is how many extra approximate-nearest candidates each
// query token pulls from the token graph before the exact MaxSim rerank
// narrows them down to k, keeping recall high despite the graph being
// approximate.
const candidateOverfetch = 8

// Composite backs Store with a per-token HNSW graph for candidate
// generation plus exact MaxSim reranking, a bleve BM25 index for lexical
// search, and a SQLite metadata table holding content and full token
// matrices, matching the three-store design of the system this package
// implements: vectors, lexical text, and metadata are independently
// queryable and independently persisted.
type Composite struct {
	mu          sync.RWMutex
	meta        *metadataDB
	tokens      *tokenGraph
	bm25        *bm25Index
	bm25Path    string
	textEnabled bool
	dim         int
	closed      bool
}

// Dirs bundles the on-disk locations Composite persists to. An empty field
// means that store runs in-memory only.
type Dirs struct {
	MetadataPath string
	BM25Path     string
}

// Open creates or opens a Composite store. dim is the per-token vector
// dimensionality; it must match every token vector later stored or queried.
// Any blocks already persisted from a prior process are reloaded into the
// token graph, since the graph itself is rebuilt in memory on every open.
func Open(dirs Dirs, dim int) (*Composite, error) {
	meta, err := openMetadataDB(dirs.MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	tokens := newTokenGraph(dim)
	existing, err := meta.allTokens(context.Background())
	if err != nil {
		_ = meta.close()
		return nil, fmt.Errorf("load persisted tokens: %w", err)
	}
	for id, vecs := range existing {
		if len(vecs) == 0 {
			continue
		}
		if err := tokens.add(id, vecs); err != nil {
			_ = meta.close()
			return nil, fmt.Errorf("rebuild token graph for %s: %w", id, err)
		}
	}

	return &Composite{
		meta:     meta,
		tokens:   tokens,
		bm25Path: dirs.BM25Path,
		dim:      dim,
	}, nil
}

func (c *Composite) StoreWithText(ctx context.Context, id string, tokens [][]float32, bm25Text string, meta Metadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("vector store is closed")
	}
	if len(tokens) == 0 {
		return fmt.Errorf("block %s has no token vectors", id)
	}

	if err := c.tokens.add(id, tokens); err != nil {
		return err
	}
	if err := c.meta.put(ctx, id, tokens, bm25Text, meta); err != nil {
		return err
	}
	if c.textEnabled {
		if err := c.bm25.indexText(ctx, id, bm25Text); err != nil {
			return err
		}
	}
	return nil
}

func (c *Composite) SearchMultiWithText(ctx context.Context, bm25Text string, tokenVecs [][]float32, k int) ([]Result, error) {
	var lexical []Result
	if c.textEnabled && strings.TrimSpace(bm25Text) != "" {
		var err error
		lexical, err = c.lexicalSearch(ctx, bm25Text, k)
		if err != nil {
			return nil, err
		}
	}

	semantic, err := c.QueryWithOptions(ctx, tokenVecs, k, SearchOptions{})
	if err != nil {
		return nil, err
	}

	// Merge by id, keeping whichever result has the higher distance, the
	// same rule a caller combining two independently-ranked candidate
	// lists applies when neither ranking alone is authoritative.
	best := make(map[string]Result, len(lexical)+len(semantic))
	merge := func(results []Result) {
		for _, r := range results {
			existing, ok := best[r.ID]
			if !ok || r.Distance > existing.Distance {
				best[r.ID] = r
			}
		}
	}
	merge(lexical)
	merge(semantic)

	out := make([]Result, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance > out[j].Distance })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (c *Composite) lexicalSearch(ctx context.Context, bm25Text string, k int) ([]Result, error) {
	c.mu.RLock()
	bm25 := c.bm25
	c.mu.RUnlock()
	if bm25 == nil {
		return nil, nil
	}

	ids, err := bm25.search(ctx, bm25Text, k)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(ids))
	for i, id := range ids {
		meta, ok, err := c.GetMetadataByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		// BM25 hits have no natural cosine distance; rank-derived pseudo
		// distance keeps them comparable to semantic results during merge
		// (earlier hits score higher, same as a descending relevance list).
		results = append(results, Result{
			ID:       id,
			Distance: float32(len(ids)-i) / float32(len(ids)),
			Metadata: meta,
		})
	}
	return results, nil
}

func (c *Composite) QueryWithOptions(ctx context.Context, tokenVecs [][]float32, k int, opts SearchOptions) ([]Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("vector store is closed")
	}
	if len(tokenVecs) == 0 {
		return nil, fmt.Errorf("query has no token vectors")
	}

	perTokenK := k * candidateOverfetch
	if perTokenK < k {
		perTokenK = k
	}
	candidates, err := c.tokens.candidateBlocks(tokenVecs, perTokenK)
	if err != nil {
		return nil, err
	}

	type scored struct {
		id   string
		sim  float32
		meta Metadata
	}
	var ranked []scored
	for id := range candidates {
		if opts.ExcludeID != "" && id == opts.ExcludeID {
			continue
		}
		docTokens, err := c.meta.getTokens(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(docTokens) == 0 {
			continue
		}
		meta, ok, err := c.meta.getMetadata(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if opts.FilterFile != "" && meta.File != opts.FilterFile {
			continue
		}
		ranked = append(ranked, scored{id: id, sim: maxSim(tokenVecs, docTokens), meta: meta})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].sim > ranked[j].sim })
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	out := make([]Result, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, Result{ID: r.id, Distance: r.sim, Metadata: r.meta})
	}
	return out, nil
}

func (c *Composite) GetTokens(ctx context.Context, id string) ([][]float32, error) {
	return c.meta.getTokens(ctx, id)
}

func (c *Composite) GetMetadataByID(ctx context.Context, id string) (Metadata, bool, error) {
	return c.meta.getMetadata(ctx, id)
}

func (c *Composite) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("vector store is closed")
	}

	c.tokens.delete(id)
	if err := c.meta.delete(ctx, id); err != nil {
		return err
	}
	if c.textEnabled {
		if err := c.bm25.delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Flush is a no-op: bleve and modernc.org/sqlite both persist writes as
// they happen, and the token graph is rebuilt from metadataDB on reopen.
func (c *Composite) Flush(ctx context.Context) error {
	return nil
}

func (c *Composite) EnableTextSearch(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.textEnabled {
		return nil
	}

	path := c.bm25Path
	if path != "" {
		path = filepath.Clean(path)
	}
	idx, err := openBM25Index(path)
	if err != nil {
		return err
	}
	c.bm25 = idx
	c.textEnabled = true
	return nil
}

func (c *Composite) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var firstErr error
	if err := c.tokens.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if c.bm25 != nil {
		if err := c.bm25.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.meta.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

var _ Store = (*Composite)(nil)
