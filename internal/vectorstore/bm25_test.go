package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBM25IndexSearchRanksMatchingDoc(t *testing.T) {
	ctx := context.Background()
	idx, err := openBM25Index("")
	require.NoError(t, err)
	defer idx.close()

	require.NoError(t, idx.indexText(ctx, "a", "getUserById fetches a user record"))
	require.NoError(t, idx.indexText(ctx, "b", "completely unrelated prose about weather"))

	ids, err := idx.search(ctx, "user", 5)
	require.NoError(t, err)
	assert.Contains(t, ids, "a")
	assert.NotContains(t, ids, "b")
}

func TestBM25IndexEmptyQueryReturnsNoResults(t *testing.T) {
	ctx := context.Background()
	idx, err := openBM25Index("")
	require.NoError(t, err)
	defer idx.close()

	require.NoError(t, idx.indexText(ctx, "a", "some content"))
	ids, err := idx.search(ctx, "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestBM25IndexDelete(t *testing.T) {
	ctx := context.Background()
	idx, err := openBM25Index("")
	require.NoError(t, err)
	defer idx.close()

	require.NoError(t, idx.indexText(ctx, "a", "getUserById"))
	require.NoError(t, idx.delete(ctx, "a"))

	ids, err := idx.search(ctx, "user", 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCodeTokenizerSplitsIdentifiers(t *testing.T) {
	tok := &codeTokenizer{}
	stream := tok.Tokenize([]byte("getUserById"))
	var terms []string
	for _, tk := range stream {
		terms = append(terms, string(tk.Term))
	}
	assert.Contains(t, terms, "get")
	assert.Contains(t, terms, "user")
	assert.Contains(t, terms, "id")
}
