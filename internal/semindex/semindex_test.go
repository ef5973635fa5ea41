package semindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nijaru/og/internal/embed"
)

func newTestIndex(t *testing.T) (*Index, string) {
	t.Helper()
	dir := t.TempDir()
	idx, err := Open(Options{Root: dir, Embedder: embed.NewMockEmbedder(8)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx, dir
}

func writeSourceFile(t *testing.T, root, relPath, content string) File {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	info, err := os.Stat(full)
	require.NoError(t, err)
	return File{RelPath: relPath, Content: []byte(content), MTime: info.ModTime()}
}

func TestBuildIndexesFilesAndIsIndexed(t *testing.T) {
	ctx := context.Background()
	idx, root := newTestIndex(t)

	f := writeSourceFile(t, root, "main.go", "package main\n\nfunc Hello() {}\n")

	assert.False(t, idx.IsIndexed())
	stats, err := idx.Build(ctx, []File{f}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)
	assert.Greater(t, stats.Blocks, 0)
	assert.True(t, idx.IsIndexed())

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, stats.Blocks, count)
}

func TestBuildSkipsUnchangedFiles(t *testing.T) {
	ctx := context.Background()
	idx, root := newTestIndex(t)

	f := writeSourceFile(t, root, "main.go", "package main\n\nfunc Hello() {}\n")
	_, err := idx.Build(ctx, []File{f}, nil)
	require.NoError(t, err)

	stats, err := idx.Build(ctx, []File{f}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Files)
}

func TestSearchFindsIndexedFunction(t *testing.T) {
	ctx := context.Background()
	idx, root := newTestIndex(t)

	f := writeSourceFile(t, root, "greeter.go", "package main\n\nfunc GreetUser(name string) string {\n\treturn name\n}\n")
	_, err := idx.Build(ctx, []File{f}, nil)
	require.NoError(t, err)

	results, err := idx.Search(ctx, "GreetUser", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	var names []string
	for _, r := range results {
		names = append(names, r.Name)
	}
	assert.Contains(t, names, "GreetUser")
}

func TestNeedsUpdateAndUpdate(t *testing.T) {
	ctx := context.Background()
	idx, root := newTestIndex(t)

	f := writeSourceFile(t, root, "a.go", "package main\n\nfunc A() {}\n")
	_, err := idx.Build(ctx, []File{f}, nil)
	require.NoError(t, err)

	n, err := idx.NeedsUpdate([]File{f})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f2 := writeSourceFile(t, root, "a.go", "package main\n\nfunc A() { return }\n")
	n, err = idx.NeedsUpdate([]File{f2})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err := idx.Update(ctx, []File{f2})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)
}

func TestUpdateHandlesDeletedFiles(t *testing.T) {
	ctx := context.Background()
	idx, root := newTestIndex(t)

	f := writeSourceFile(t, root, "gone.go", "package main\n\nfunc Gone() {}\n")
	_, err := idx.Build(ctx, []File{f}, nil)
	require.NoError(t, err)

	stats, err := idx.Update(ctx, []File{})
	require.NoError(t, err)
	assert.Greater(t, stats.Deleted, 0)
}

func TestGetStaleFilesFastDetectsMTimeChange(t *testing.T) {
	ctx := context.Background()
	idx, root := newTestIndex(t)

	f := writeSourceFile(t, root, "a.go", "package main\n\nfunc A() {}\n")
	_, err := idx.Build(ctx, []File{f}, nil)
	require.NoError(t, err)

	maybeChanged, deleted, err := idx.GetStaleFilesFast([]StaleCandidate{{RelPath: "a.go", MTime: f.MTime}})
	require.NoError(t, err)
	assert.Empty(t, maybeChanged)
	assert.Empty(t, deleted)

	laterMTime := f.MTime.Add(time.Second)
	maybeChanged, _, err = idx.GetStaleFilesFast([]StaleCandidate{{RelPath: "a.go", MTime: laterMTime}})
	require.NoError(t, err)
	assert.NotEmpty(t, maybeChanged)
}

func TestRemovePrefixDeletesMatchingFiles(t *testing.T) {
	ctx := context.Background()
	idx, root := newTestIndex(t)

	f1 := writeSourceFile(t, root, "pkg/a.go", "package pkg\n\nfunc A() {}\n")
	f2 := writeSourceFile(t, root, "other/b.go", "package other\n\nfunc B() {}\n")
	_, err := idx.Build(ctx, []File{f1, f2}, nil)
	require.NoError(t, err)

	stats, err := idx.RemovePrefix(ctx, "pkg")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)

	n, err := idx.NeedsUpdate([]File{f2})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestClearRemovesIndexDirectory(t *testing.T) {
	ctx := context.Background()
	idx, root := newTestIndex(t)

	f := writeSourceFile(t, root, "a.go", "package main\n\nfunc A() {}\n")
	_, err := idx.Build(ctx, []File{f}, nil)
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	require.NoError(t, idx.Clear())
	assert.False(t, idx.IsIndexed())
}
