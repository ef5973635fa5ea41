// Package embed defines the token-level embedding contract og's retriever
// uses for late-interaction (multi-vector) search, plus a deterministic
// mock implementation for tests and offline use.
package embed

import (
	"context"
	"fmt"
)

// ModelConfig describes the embedding model an Embedder is backed by.
// Construction takes already-resolved file paths; downloading or caching a
// model from a hub is out of scope for this package.
type ModelConfig struct {
	Repo            string
	ModelFile       string
	TokenizerFile   string
	TokenDim        int
	DocMaxLength    int
	QueryMaxLength  int
	Version         string
	BatchSize       int
}

// DefaultModel is the model og indexes with unless overridden.
var DefaultModel = ModelConfig{
	Repo:           "lightonai/LateOn-Code-edge",
	TokenDim:       48,
	DocMaxLength:   512,
	QueryMaxLength: 256,
	Version:        "lateon-code-edge-v1",
	BatchSize:      64,
}

// TokenEmbeddings holds one embedding matrix per input document: each
// element is a (numTokens, TokenDim) slice of row vectors, preserving
// per-token granularity for MaxSim-style late interaction at query time.
type TokenEmbeddings struct {
	Embeddings [][][]float32
}

// Embedder produces token-level embeddings for documents and queries.
// Document and query encoders are often asymmetric (different max lengths,
// sometimes different prefixes), so they are separate methods rather than
// a single Embed call.
type Embedder interface {
	// EmbedDocuments embeds a batch of documents, returning one token
	// matrix per document in the same order.
	EmbedDocuments(ctx context.Context, docs []string) (TokenEmbeddings, error)

	// EmbedQuery embeds a single query into a token matrix.
	EmbedQuery(ctx context.Context, query string) ([][]float32, error)

	// Dimensions returns the per-token embedding width.
	Dimensions() int

	// ModelVersion identifies the model, used to detect a stale index
	// built with a different embedder.
	ModelVersion() string

	Close() error
}

// ErrEmbedderClosed is returned by an Embedder after Close.
var ErrEmbedderClosed = fmt.Errorf("embedder is closed")
