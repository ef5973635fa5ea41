package semindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nijaru/og/internal/extract"
	"github.com/nijaru/og/internal/manifest"
	"github.com/nijaru/og/internal/tokenize"
	"github.com/nijaru/og/internal/vectorstore"
)

// extractWorkers bounds how many files are parsed concurrently during
// extraction, mirroring a parallel-map over files with a capped worker pool.
const extractWorkers = 8

// embedBatchSize caps how many blocks are embedded per Embedder call.
const embedBatchSize = 64

// ProgressFunc reports build progress as (done, total, message).
type ProgressFunc func(done, total int, message string)

// File is one source file to be indexed, keyed by a path relative to the
// index root.
type File struct {
	RelPath string
	Content []byte
	MTime   time.Time
}

// Build incrementally indexes files: unchanged files (by content hash) are
// skipped, changed files have their old blocks deleted and re-extracted,
// and the manifest is updated and saved atomically at the end.
func (idx *Index) Build(ctx context.Context, files []File, onProgress ProgressFunc) (Stats, error) {
	if err := idx.lock.Lock(); err != nil {
		return Stats{}, fmt.Errorf("acquire build lock: %w", err)
	}
	defer func() { _ = idx.lock.Unlock() }()

	if err := os.MkdirAll(idx.indexDir, 0o755); err != nil {
		return Stats{}, fmt.Errorf("create index dir: %w", err)
	}

	m, err := manifest.Load(idx.indexDir, idx.embedder.ModelVersion())
	if err != nil {
		return Stats{}, err
	}
	m.Model = idx.embedder.ModelVersion()

	var stats Stats

	store, err := idx.openStore(ctx)
	if err != nil {
		return Stats{}, err
	}

	type toProcess struct {
		file File
		hash string
	}
	var pending []toProcess
	for _, f := range files {
		hash := manifest.HashContent(f.Content)
		if entry, ok := m.Files[f.RelPath]; ok {
			if entry.Hash == hash {
				stats.Skipped++
				continue
			}
			for _, blockID := range entry.Blocks {
				_ = store.Delete(ctx, blockID)
			}
			stats.Deleted += len(entry.Blocks)
		}
		pending = append(pending, toProcess{file: f, hash: hash})
	}

	if len(pending) == 0 {
		if stats.Deleted > 0 {
			_ = store.Flush(ctx)
		}
		return stats, nil
	}
	_ = store.Flush(ctx)

	results := make([]extractedFile, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, extractWorkers)
	for i, p := range pending {
		i, p := i, p
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}
			blocks, err := extract.Extract(gctx, p.file.RelPath, p.file.Content)
			if err != nil {
				blocks = nil
			}
			results[i] = extractedFile{relPath: p.file.RelPath, hash: p.hash, mtime: p.file.MTime, blocks: blocks}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("extract blocks: %w", err)
	}

	type prepared struct {
		fileIdx  int
		blockIdx int
		text     string
	}
	var queue []prepared
	for fi, r := range results {
		if len(r.blocks) == 0 {
			stats.Errors++
			continue
		}
		stats.Files++
		for bi, b := range r.blocks {
			queue = append(queue, prepared{fileIdx: fi, blockIdx: bi, text: b.EmbeddingText()})
		}
	}

	if len(queue) == 0 {
		if err := saveManifest(m, results, idx.indexDir); err != nil {
			return stats, err
		}
		return stats, nil
	}

	sort.Slice(queue, func(i, j int) bool { return len(queue[i].text) < len(queue[j].text) })

	total := len(queue)
	for start := 0; start < total; start += embedBatchSize {
		end := start + embedBatchSize
		if end > total {
			end = total
		}
		if onProgress != nil {
			onProgress(start, total, fmt.Sprintf("embedding %d-%d of %d", start, end, total))
		}

		texts := make([]string, end-start)
		for i, p := range queue[start:end] {
			texts[i] = p.text
		}
		embeddings, err := idx.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("embed documents: %w", err)
		}

		for i, tokens := range embeddings.Embeddings {
			p := queue[start+i]
			block := results[p.fileIdx].blocks[p.blockIdx]

			meta := vectorstore.Metadata{
				File:      block.File,
				Type:      block.Type,
				Name:      block.Name,
				StartLine: block.StartLine,
				EndLine:   block.EndLine,
				Content:   block.Content,
			}
			bm25Text := tokenize.SplitIdentifiers(p.text)
			if err := store.StoreWithText(ctx, block.ID, tokens, bm25Text, meta); err != nil {
				return stats, fmt.Errorf("store block %s: %w", block.ID, err)
			}
			stats.Blocks++
		}
	}

	if err := store.Flush(ctx); err != nil {
		return stats, err
	}
	if err := saveManifest(m, results, idx.indexDir); err != nil {
		return stats, err
	}

	if onProgress != nil {
		onProgress(total, total, "done")
	}
	return stats, nil
}

// extractedFile holds one file's extracted blocks plus the bookkeeping
// needed to record it in the manifest once embedding completes.
type extractedFile struct {
	relPath string
	hash    string
	mtime   time.Time
	blocks  []extract.Block
}

func saveManifest(m *manifest.Manifest, results []extractedFile, indexDir string) error {
	for _, r := range results {
		if len(r.blocks) == 0 {
			continue
		}
		ids := make([]string, len(r.blocks))
		for i, b := range r.blocks {
			ids[i] = b.ID
		}
		m.Set(r.relPath, r.hash, r.mtime, ids)
	}
	return m.Save(indexDir)
}

// NeedsUpdate returns how many files are missing or stale relative to the
// manifest, without modifying anything.
func (idx *Index) NeedsUpdate(files []File) (int, error) {
	m, err := manifest.Load(idx.indexDir, idx.embedder.ModelVersion())
	if err != nil {
		return 0, err
	}
	changed, deleted := idx.staleFilesWithManifest(files, m)
	return len(changed) + len(deleted), nil
}

func (idx *Index) staleFilesWithManifest(files []File, m *manifest.Manifest) (changed []File, deleted []string) {
	current := make(map[string]struct{}, len(files))
	for _, f := range files {
		current[f.RelPath] = struct{}{}
		hash := manifest.HashContent(f.Content)
		if m.IsStale(f.RelPath, hash) {
			changed = append(changed, f)
		}
	}
	for path := range m.Files {
		if _, ok := current[path]; !ok {
			deleted = append(deleted, path)
		}
	}
	return changed, deleted
}

// GetStaleFiles returns changed and deleted file paths relative to the
// manifest, comparing full content hashes.
func (idx *Index) GetStaleFiles(files []File) ([]File, []string, error) {
	m, err := manifest.Load(idx.indexDir, idx.embedder.ModelVersion())
	if err != nil {
		return nil, nil, err
	}
	changed, deleted := idx.staleFilesWithManifest(files, m)
	return changed, deleted, nil
}

// StaleCandidate is a file path plus its mtime, used for a fast staleness
// check that never reads file content.
type StaleCandidate struct {
	RelPath string
	MTime   time.Time
}

// GetStaleFilesFast compares only mtimes against the manifest, cheap enough
// to run before every search in a long-lived process.
func (idx *Index) GetStaleFilesFast(candidates []StaleCandidate) (maybeChanged []StaleCandidate, deleted []string, err error) {
	m, err := manifest.Load(idx.indexDir, idx.embedder.ModelVersion())
	if err != nil {
		return nil, nil, err
	}

	current := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		current[c.RelPath] = struct{}{}
		if entry, ok := m.Files[c.RelPath]; ok && entry.MTime.Equal(c.MTime.Truncate(time.Second)) && !c.MTime.IsZero() {
			continue
		}
		maybeChanged = append(maybeChanged, c)
	}
	for path := range m.Files {
		if _, ok := current[path]; !ok {
			deleted = append(deleted, path)
		}
	}
	return maybeChanged, deleted, nil
}

// Update re-indexes only changed or deleted files, by content hash.
func (idx *Index) Update(ctx context.Context, files []File) (Stats, error) {
	m, err := manifest.Load(idx.indexDir, idx.embedder.ModelVersion())
	if err != nil {
		return Stats{}, err
	}
	changed, deleted := idx.staleFilesWithManifest(files, m)

	if len(changed) == 0 && len(deleted) == 0 {
		return Stats{Skipped: len(files)}, nil
	}

	deletedCount, err := idx.deletePaths(ctx, deleted)
	if err != nil {
		return Stats{}, err
	}

	stats, err := idx.Build(ctx, changed, nil)
	if err != nil {
		return stats, err
	}
	stats.Deleted += deletedCount
	return stats, nil
}

func (idx *Index) deletePaths(ctx context.Context, paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	if err := idx.lock.Lock(); err != nil {
		return 0, fmt.Errorf("acquire build lock: %w", err)
	}
	defer func() { _ = idx.lock.Unlock() }()

	store, err := idx.openStore(ctx)
	if err != nil {
		return 0, err
	}
	m, err := manifest.Load(idx.indexDir, idx.embedder.ModelVersion())
	if err != nil {
		return 0, err
	}

	deletedCount := 0
	for _, path := range paths {
		blocks := m.Remove(path)
		for _, blockID := range blocks {
			_ = store.Delete(ctx, blockID)
		}
		deletedCount += len(blocks)
	}

	if deletedCount > 0 {
		if err := store.Flush(ctx); err != nil {
			return deletedCount, err
		}
		if err := m.Save(idx.indexDir); err != nil {
			return deletedCount, err
		}
	}
	return deletedCount, nil
}

// CheckAndUpdate does a fast mtime pre-check, reads content only for files
// that might have changed, and re-indexes those whose hash actually
// differs. Returns the number of files considered stale and the resulting
// stats, or (0, nil) if nothing needed updating.
func (idx *Index) CheckAndUpdate(ctx context.Context, candidates []StaleCandidate, readFile func(relPath string) ([]byte, error)) (int, *Stats, error) {
	maybeChanged, deleted, err := idx.GetStaleFilesFast(candidates)
	if err != nil {
		return 0, nil, err
	}
	if len(maybeChanged) == 0 && len(deleted) == 0 {
		return 0, nil, nil
	}

	m, err := manifest.Load(idx.indexDir, idx.embedder.ModelVersion())
	if err != nil {
		return 0, nil, err
	}

	var mu sync.Mutex
	var changedFiles []File
	for _, c := range maybeChanged {
		content, err := readFile(c.RelPath)
		if err != nil {
			continue
		}
		checkLen := len(content)
		if checkLen > 8192 {
			checkLen = 8192
		}
		if containsNUL(content[:checkLen]) {
			continue
		}
		hash := manifest.HashContent(content)
		if m.IsStale(c.RelPath, hash) {
			mu.Lock()
			changedFiles = append(changedFiles, File{RelPath: c.RelPath, Content: content, MTime: c.MTime})
			mu.Unlock()
		}
	}

	if len(changedFiles) == 0 && len(deleted) == 0 {
		return 0, nil, nil
	}
	actualStale := len(changedFiles) + len(deleted)

	deletedCount, err := idx.deletePaths(ctx, deleted)
	if err != nil {
		return 0, nil, err
	}

	stats, err := idx.Build(ctx, changedFiles, nil)
	if err != nil {
		return 0, nil, err
	}
	stats.Deleted += deletedCount
	return actualStale, &stats, nil
}

func containsNUL(b []byte) bool {
	for _, c := range b {
		if c == 0 {
			return true
		}
	}
	return false
}

// RemovePrefix removes every indexed file under a path prefix (e.g. a
// deleted directory), returning how many files and blocks were removed.
func (idx *Index) RemovePrefix(ctx context.Context, prefix string) (Stats, error) {
	prefix = filepath.ToSlash(prefix)
	for len(prefix) > 0 && prefix[len(prefix)-1] == '/' {
		prefix = prefix[:len(prefix)-1]
	}
	if prefix == "" || prefix == "." {
		return Stats{}, nil
	}

	if err := idx.lock.Lock(); err != nil {
		return Stats{}, fmt.Errorf("acquire build lock: %w", err)
	}
	defer func() { _ = idx.lock.Unlock() }()

	store, err := idx.openStore(ctx)
	if err != nil {
		return Stats{}, err
	}
	m, err := manifest.Load(idx.indexDir, idx.embedder.ModelVersion())
	if err != nil {
		return Stats{}, err
	}

	var toRemove []string
	for path := range m.Files {
		if path == prefix || (len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '/') {
			toRemove = append(toRemove, path)
		}
	}

	var stats Stats
	for _, path := range toRemove {
		blocks := m.Remove(path)
		for _, blockID := range blocks {
			_ = store.Delete(ctx, blockID)
		}
		stats.Blocks += len(blocks)
		stats.Files++
	}

	if err := store.Flush(ctx); err != nil {
		return stats, err
	}
	if err := m.Save(idx.indexDir); err != nil {
		return stats, err
	}
	return stats, nil
}
