package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(dim int, seed float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = seed + float32(i)*0.01
	}
	return v
}

func newTestStore(t *testing.T, dim int) *Composite {
	t.Helper()
	store, err := Open(Dirs{}, dim)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreWithTextAndGetTokens(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 4)

	tokens := [][]float32{vec(4, 1), vec(4, 2)}
	meta := Metadata{File: "a.go", Type: "function", Name: "Foo", StartLine: 1, EndLine: 5, Content: "func Foo() {}"}
	require.NoError(t, store.StoreWithText(ctx, "a.go:1:Foo", tokens, "foo func", meta))

	got, err := store.GetTokens(ctx, "a.go:1:Foo")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	gotMeta, ok, err := store.GetMetadataByID(ctx, "a.go:1:Foo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, meta.Name, gotMeta.Name)
}

func TestQueryWithOptionsRanksClosestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 4)

	require.NoError(t, store.StoreWithText(ctx, "near", [][]float32{vec(4, 1)}, "near", Metadata{File: "near.go"}))
	require.NoError(t, store.StoreWithText(ctx, "far", [][]float32{vec(4, -1)}, "far", Metadata{File: "far.go"}))

	results, err := store.QueryWithOptions(ctx, [][]float32{vec(4, 1)}, 2, SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "near", results[0].ID)
}

func TestQueryWithOptionsFilterFile(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 4)

	require.NoError(t, store.StoreWithText(ctx, "a", [][]float32{vec(4, 1)}, "a", Metadata{File: "a.go"}))
	require.NoError(t, store.StoreWithText(ctx, "b", [][]float32{vec(4, 1)}, "b", Metadata{File: "b.go"}))

	results, err := store.QueryWithOptions(ctx, [][]float32{vec(4, 1)}, 10, SearchOptions{FilterFile: "a.go"})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "a.go", r.Metadata.File)
	}
}

func TestDeleteRemovesFromAllStores(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 4)

	require.NoError(t, store.StoreWithText(ctx, "x", [][]float32{vec(4, 1)}, "x", Metadata{File: "x.go"}))
	require.NoError(t, store.Delete(ctx, "x"))

	_, ok, err := store.GetMetadataByID(ctx, "x")
	require.NoError(t, err)
	assert.False(t, ok)

	results, err := store.QueryWithOptions(ctx, [][]float32{vec(4, 1)}, 10, SearchOptions{})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "x", r.ID)
	}
}

func TestSearchMultiWithTextMergesLexicalAndSemantic(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 4)
	require.NoError(t, store.EnableTextSearch(ctx))

	require.NoError(t, store.StoreWithText(ctx, "a", [][]float32{vec(4, 1)}, "hello world function", Metadata{File: "a.go", Name: "Hello"}))
	require.NoError(t, store.StoreWithText(ctx, "b", [][]float32{vec(4, -5)}, "unrelated text here", Metadata{File: "b.go", Name: "Other"}))

	results, err := store.SearchMultiWithText(ctx, "hello", [][]float32{vec(4, 1)}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	var ids []string
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	assert.Contains(t, ids, "a")
}

func TestEnableTextSearchIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 4)
	require.NoError(t, store.EnableTextSearch(ctx))
	require.NoError(t, store.EnableTextSearch(ctx))
}

func TestStoreWithTextRejectsEmptyTokens(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 4)
	err := store.StoreWithText(ctx, "empty", nil, "text", Metadata{})
	assert.Error(t, err)
}

func TestReopenRebuildsTokenGraphFromDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dirs := Dirs{MetadataPath: filepath.Join(dir, "vectors.db")}

	store, err := Open(dirs, 4)
	require.NoError(t, err)
	require.NoError(t, store.StoreWithText(ctx, "a", [][]float32{vec(4, 1)}, "a", Metadata{File: "a.go"}))
	require.NoError(t, store.Close())

	reopened, err := Open(dirs, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	results, err := reopened.QueryWithOptions(ctx, [][]float32{vec(4, 1)}, 5, SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].ID)
}

func TestCloseThenOperationsError(t *testing.T) {
	ctx := context.Background()
	store, err := Open(Dirs{}, 4)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.StoreWithText(ctx, "a", [][]float32{vec(4, 1)}, "a", Metadata{})
	assert.Error(t, err)
}
