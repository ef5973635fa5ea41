package semindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/nijaru/og/internal/boost"
	"github.com/nijaru/og/internal/manifest"
	"github.com/nijaru/og/internal/ogerrors"
	"github.com/nijaru/og/internal/tokenize"
	"github.com/nijaru/og/internal/vectorstore"
)

// Search runs a hybrid query: BM25 over the identifier-split query text,
// plus a multi-vector semantic search, merged by id (keeping whichever
// candidate list ranked it higher), boosted by name/type/path relevance,
// and truncated to k.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	store, err := idx.openStore(ctx)
	if err != nil {
		return nil, err
	}

	queryTokens, err := idx.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	overfetch := 1
	if idx.searchScope != "" {
		overfetch = scopeOverfetch
	}
	searchK := k * overfetch

	bm25Query := tokenize.SplitIdentifiers(query)
	merged, err := store.SearchMultiWithText(ctx, bm25Query, queryTokens, searchK)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}

	var filtered []vectorstore.Result
	for _, r := range merged {
		if idx.searchScope != "" && !strings.HasPrefix(r.Metadata.File, idx.searchScope) {
			continue
		}
		filtered = append(filtered, r)
	}

	results := make([]Result, len(filtered))
	boosted := make([]*boost.Result, len(filtered))
	for i, r := range filtered {
		results[i] = resultFromStore(r, idx.toAbsolute)
		boosted[i] = &boost.Result{
			Name:     r.Metadata.Name,
			Type:     r.Metadata.Type,
			FilePath: r.Metadata.File,
			Score:    float64(r.Distance),
			Index:    i,
		}
	}
	boost.Apply(boosted, query)

	for _, b := range boosted {
		results[b.Index].Score = float32(b.Score)
	}
	sortResultsByScore(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func sortResultsByScore(results []Result) {
	for i := 1; i < len(results); i++ {
		j := i
		for j > 0 && results[j-1].Score < results[j].Score {
			results[j-1], results[j] = results[j], results[j-1]
			j--
		}
	}
}

// FindSimilar finds blocks similar to a block identified by file path plus
// an optional line number or name (matching the first block in the file if
// neither is given), excluding the source file's own blocks and any
// documentation block types.
func (idx *Index) FindSimilar(ctx context.Context, filePath string, line int, name string, k int) ([]Result, error) {
	m, err := manifest.Load(idx.indexDir, idx.embedder.ModelVersion())
	if err != nil {
		return nil, err
	}
	store, err := idx.openStore(ctx)
	if err != nil {
		return nil, err
	}

	relPath := idx.toRelative(filePath)
	entry, ok := m.Files[relPath]
	if !ok {
		return nil, ogerrors.Missing(fmt.Sprintf("file not in index: %s", relPath))
	}
	if len(entry.Blocks) == 0 {
		return nil, ogerrors.Missing(fmt.Sprintf("no blocks found in %s", relPath))
	}

	blockID, err := idx.resolveBlock(ctx, store, entry.Blocks, line, name)
	if err != nil {
		return nil, err
	}

	queryTokens, err := store.GetTokens(ctx, blockID)
	if err != nil {
		return nil, fmt.Errorf("get block tokens: %w", err)
	}
	if len(queryTokens) == 0 {
		return nil, ogerrors.Missing("could not retrieve block token embeddings")
	}

	searchK := k*3 + len(entry.Blocks)
	candidates, err := store.QueryWithOptions(ctx, queryTokens, searchK, vectorstore.SearchOptions{})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	blockSet := make(map[string]struct{}, len(entry.Blocks))
	for _, id := range entry.Blocks {
		blockSet[id] = struct{}{}
	}

	var out []Result
	for _, r := range candidates {
		if _, ok := blockSet[r.ID]; ok {
			continue
		}
		if docBlockTypes[r.Metadata.Type] {
			continue
		}
		if idx.searchScope != "" && !strings.HasPrefix(r.Metadata.File, idx.searchScope) {
			continue
		}
		out = append(out, resultFromStore(r, idx.toAbsolute))
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (idx *Index) resolveBlock(ctx context.Context, store vectorstore.Store, blockIDs []string, line int, name string) (string, error) {
	if name != "" {
		return findBlockByName(ctx, store, blockIDs, name)
	}
	if line > 0 {
		if id, ok := findBlockByLine(ctx, store, blockIDs, line); ok {
			return id, nil
		}
		return blockIDs[0], nil
	}
	return blockIDs[0], nil
}

func findBlockByName(ctx context.Context, store vectorstore.Store, blockIDs []string, name string) (string, error) {
	type match struct {
		id, name, blockType string
		line                int
	}
	var matches []match
	for _, id := range blockIDs {
		meta, ok, err := store.GetMetadataByID(ctx, id)
		if err != nil || !ok {
			continue
		}
		if meta.Name == name || strings.HasSuffix(meta.Name, "."+name) {
			matches = append(matches, match{id: id, name: meta.Name, blockType: meta.Type, line: meta.StartLine})
		}
	}
	switch len(matches) {
	case 0:
		return "", ogerrors.Missing(fmt.Sprintf("no block named '%s' found", name))
	case 1:
		return matches[0].id, nil
	default:
		var details []string
		for _, m := range matches {
			details = append(details, fmt.Sprintf("  - line %d: %s %s", m.line, m.blockType, m.name))
		}
		return "", ogerrors.Ambiguous(fmt.Sprintf(
			"multiple blocks named '%s' found:\n%s\nuse file:<line> to specify.",
			name, strings.Join(details, "\n")))
	}
}

func findBlockByLine(ctx context.Context, store vectorstore.Store, blockIDs []string, line int) (string, bool) {
	for _, id := range blockIDs {
		meta, ok, err := store.GetMetadataByID(ctx, id)
		if err != nil || !ok {
			continue
		}
		if meta.StartLine <= line && line <= meta.EndLine {
			return id, true
		}
	}
	return "", false
}
