// Package vectorstore persists blocks for hybrid retrieval: a per-token
// HNSW graph for approximate late-interaction search, a bleve BM25 index
// for lexical search, and a SQLite-backed metadata table holding each
// block's content, bm25 text, and full token-vector matrix.
package vectorstore

import "context"

// Metadata is the non-vector data stored alongside a block.
type Metadata struct {
	File      string
	Type      string
	Name      string
	StartLine int
	EndLine   int
	Content   string
}

// Result is one hit from a search, before boost is applied.
type Result struct {
	ID       string
	Distance float32
	Metadata Metadata
}

// SearchOptions configures a pure-vector query (no BM25 text).
type SearchOptions struct {
	// FilterFile, if non-empty, restricts results to blocks whose File
	// field has this exact value, used for find_similar-style queries
	// scoped to blocks other than the source itself.
	FilterFile string
	// ExcludeID skips a single block id, used when finding blocks similar
	// to a given block without returning the block itself.
	ExcludeID string
}

// Store is the persistence and retrieval contract og's retriever uses. It
// is satisfied by Composite, which backs it with HNSW + bleve + SQLite.
type Store interface {
	// StoreWithText persists a block's token vectors, lexical text, and
	// metadata, replacing any existing entry with the same id.
	StoreWithText(ctx context.Context, id string, tokens [][]float32, bm25Text string, meta Metadata) error

	// SearchMultiWithText runs a hybrid query: BM25 over bm25Text plus a
	// multi-vector late-interaction search over tokenVecs, returning up
	// to k results merged by keeping the higher distance for any id
	// present in both result sets.
	SearchMultiWithText(ctx context.Context, bm25Text string, tokenVecs [][]float32, k int) ([]Result, error)

	// QueryWithOptions runs a vector-only multi-vector search.
	QueryWithOptions(ctx context.Context, tokenVecs [][]float32, k int, opts SearchOptions) ([]Result, error)

	// GetTokens returns the stored token matrix for id.
	GetTokens(ctx context.Context, id string) ([][]float32, error)

	// GetMetadataByID returns the stored metadata for id.
	GetMetadataByID(ctx context.Context, id string) (Metadata, bool, error)

	// Delete removes a block and its token vectors entirely.
	Delete(ctx context.Context, id string) error

	// Flush persists any buffered state to disk.
	Flush(ctx context.Context) error

	// EnableTextSearch turns on the BM25 side of hybrid search. Building
	// the lexical index has a cost or may be deferred in contexts (e.g. a
	// throwaway scoped sub-index) that only need vector search.
	EnableTextSearch(ctx context.Context) error

	Close() error
}
