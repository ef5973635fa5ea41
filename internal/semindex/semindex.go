// Package semindex is og's indexing and retrieval core: it walks a
// project, extracts blocks, embeds and stores them for hybrid search, and
// answers queries against the result, staying incremental by tracking what
// has already been indexed in a manifest.
package semindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nijaru/og/internal/embed"
	"github.com/nijaru/og/internal/manifest"
	"github.com/nijaru/og/internal/ogerrors"
	"github.com/nijaru/og/internal/vectorstore"
)

// IndexDirName is the on-disk directory og stores its index under, relative
// to a project root.
const IndexDirName = ".og"

const vectorsSubdir = "vectors.db"
const bm25Subdir = "bm25"

// docBlockTypes are block types that hold documentation rather than code,
// excluded from find_similar's results since "similar code" shouldn't
// surface a prose section next to a function.
var docBlockTypes = map[string]bool{"text": true, "section": true}

// scopeOverfetch compensates for search-scope filtering discarding results:
// fetch this many times more candidates than requested before scoping.
const scopeOverfetch = 5

// Stats summarizes the effect of an index or update operation.
type Stats struct {
	Files   int
	Blocks  int
	Skipped int
	Errors  int
	Deleted int
}

// Result is one hit returned to a caller, after boost re-ranking.
type Result struct {
	File      string
	Type      string
	Name      string
	Line      int
	EndLine   int
	Content   string
	Score     float32
}

// Index manages the semantic index for a single project root.
type Index struct {
	root        string
	indexDir    string
	searchScope string
	embedder    embed.Embedder
	store       vectorstore.Store
	lock        *buildLock
}

// Options configures Index construction.
type Options struct {
	// Root is the project directory being indexed. Required.
	Root string
	// SearchScope, if set, restricts search results to files under this
	// subdirectory, given as an absolute path or relative to the current
	// working directory.
	SearchScope string
	// Embedder generates the token embeddings stored and queried against.
	// Defaults to embed.NewMockEmbedder(embed.DefaultModel.TokenDim) when nil.
	Embedder embed.Embedder
}

// Open constructs an Index rooted at opts.Root, resolving SearchScope
// relative to it. It does not open the vector store; Build, Update, Search
// and the other operations that need it open it on first use.
func Open(opts Options) (*Index, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	scope := ""
	if opts.SearchScope != "" {
		absScope, err := filepath.Abs(opts.SearchScope)
		if err == nil && absScope != absRoot {
			if rel, err := filepath.Rel(absRoot, absScope); err == nil {
				scope = filepath.ToSlash(rel)
			}
		}
	}

	embedder := opts.Embedder
	if embedder == nil {
		embedder = embed.NewMockEmbedder(embed.DefaultModel.TokenDim)
	}

	indexDir := filepath.Join(absRoot, IndexDirName)
	return &Index{
		root:        absRoot,
		indexDir:    indexDir,
		searchScope: scope,
		embedder:    embedder,
		lock:        newBuildLock(indexDir),
	}, nil
}

// SetSearchScope updates the scope used by Search/FindSimilar, so one Index
// can be reused across queries scoped to different subdirectories.
func (idx *Index) SetSearchScope(scope string) {
	if scope == "" {
		idx.searchScope = ""
		return
	}
	absScope, err := filepath.Abs(scope)
	if err != nil {
		idx.searchScope = ""
		return
	}
	if absScope == idx.root {
		idx.searchScope = ""
		return
	}
	rel, err := filepath.Rel(idx.root, absScope)
	if err != nil {
		idx.searchScope = ""
		return
	}
	idx.searchScope = filepath.ToSlash(rel)
}

// IsIndexed reports whether a manifest already exists for this root.
func (idx *Index) IsIndexed() bool {
	_, err := os.Stat(filepath.Join(idx.indexDir, "manifest.json"))
	return err == nil
}

// Count returns the number of blocks recorded in the manifest.
func (idx *Index) Count() (int, error) {
	m, err := manifest.Load(idx.indexDir, idx.embedder.ModelVersion())
	if err != nil {
		return 0, err
	}
	total := 0
	for _, entry := range m.Files {
		total += len(entry.Blocks)
	}
	return total, nil
}

// Clear deletes the entire index directory.
func (idx *Index) Clear() error {
	if _, err := os.Stat(idx.indexDir); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(idx.indexDir); err != nil {
		return ogerrors.Wrap(ogerrors.ErrCodeFilePermission, err)
	}
	return nil
}

// Close releases the open vector store, if any.
func (idx *Index) Close() error {
	if idx.store == nil {
		return nil
	}
	err := idx.store.Close()
	idx.store = nil
	return err
}

func (idx *Index) toRelative(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rel, err := filepath.Rel(idx.root, abs)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (idx *Index) toAbsolute(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(idx.root, filepath.FromSlash(relPath))
}

// openStore opens (creating if necessary) the vector store backing idx.
func (idx *Index) openStore(ctx context.Context) (vectorstore.Store, error) {
	if idx.store != nil {
		return idx.store, nil
	}
	store, err := vectorstore.Open(vectorstore.Dirs{
		MetadataPath: filepath.Join(idx.indexDir, vectorsSubdir),
		BM25Path:     filepath.Join(idx.indexDir, bm25Subdir),
	}, idx.embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	if err := store.EnableTextSearch(ctx); err != nil {
		return nil, fmt.Errorf("enable text search: %w", err)
	}
	idx.store = store
	return store, nil
}

func resultFromStore(r vectorstore.Result, toAbsolute func(string) string) Result {
	return Result{
		File:    toAbsolute(r.Metadata.File),
		Type:    r.Metadata.Type,
		Name:    r.Metadata.Name,
		Line:    r.Metadata.StartLine,
		EndLine: r.Metadata.EndLine,
		Content: r.Metadata.Content,
		Score:   r.Distance,
	}
}
