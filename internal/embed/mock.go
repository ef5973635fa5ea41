package embed

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync"
)

var wordRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// MockEmbedder generates deterministic, hash-based per-token vectors.
// It makes no network or filesystem calls and requires no model weights,
// so it is the default embedder for tests and for environments without a
// real late-interaction model installed.
type MockEmbedder struct {
	dim     int
	version string

	mu     sync.RWMutex
	closed bool
}

// NewMockEmbedder constructs a MockEmbedder with the given per-token
// dimension. A dim of 0 uses DefaultModel.TokenDim.
func NewMockEmbedder(dim int) *MockEmbedder {
	if dim <= 0 {
		dim = DefaultModel.TokenDim
	}
	return &MockEmbedder{dim: dim, version: "mock-v1"}
}

func (e *MockEmbedder) Dimensions() int    { return e.dim }
func (e *MockEmbedder) ModelVersion() string { return e.version }

func (e *MockEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *MockEmbedder) EmbedDocuments(ctx context.Context, docs []string) (TokenEmbeddings, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return TokenEmbeddings{}, ErrEmbedderClosed
	}

	out := make([][][]float32, len(docs))
	for i, doc := range docs {
		select {
		case <-ctx.Done():
			return TokenEmbeddings{}, ctx.Err()
		default:
		}
		out[i] = e.embedTokens(doc)
	}
	return TokenEmbeddings{Embeddings: out}, nil
}

func (e *MockEmbedder) EmbedQuery(ctx context.Context, query string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, ErrEmbedderClosed
	}
	return e.embedTokens(query), nil
}

// embedTokens produces one deterministic unit vector per word in text. An
// empty document yields a single zero-padding vector so every block has at
// least one row to search against.
func (e *MockEmbedder) embedTokens(text string) [][]float32 {
	words := wordRegex.FindAllString(text, -1)
	if len(words) == 0 {
		return [][]float32{make([]float32, e.dim)}
	}

	vectors := make([][]float32, len(words))
	for i, word := range words {
		vectors[i] = normalize(e.hashVector(strings.ToLower(word)))
	}
	return vectors
}

// hashVector deterministically derives a dense vector from a token using a
// small family of FNV hashes as seeds, avoiding any external RNG.
func (e *MockEmbedder) hashVector(token string) []float32 {
	vec := make([]float32, e.dim)
	for i := 0; i < e.dim; i++ {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		_, _ = h.Write([]byte{byte(i), byte(i >> 8)})
		sum := h.Sum64()
		vec[i] = (float32(sum%10000)/10000.0)*2 - 1
	}
	return vec
}

func normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	mag := math.Sqrt(sumSquares)
	if mag == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / mag)
	}
	return out
}
