package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenGraphAddAndCandidateBlocks(t *testing.T) {
	g := newTokenGraph(4)
	require.NoError(t, g.add("a", [][]float32{{1, 0, 0, 0}}))
	require.NoError(t, g.add("b", [][]float32{{-1, 0, 0, 0}}))

	candidates, err := g.candidateBlocks([][]float32{{1, 0, 0, 0}}, 5)
	require.NoError(t, err)
	_, ok := candidates["a"]
	assert.True(t, ok)
}

func TestTokenGraphDeleteRemovesBlock(t *testing.T) {
	g := newTokenGraph(4)
	require.NoError(t, g.add("a", [][]float32{{1, 0, 0, 0}}))
	g.delete("a")

	candidates, err := g.candidateBlocks([][]float32{{1, 0, 0, 0}}, 5)
	require.NoError(t, err)
	_, ok := candidates["a"]
	assert.False(t, ok)
}

func TestTokenGraphRejectsDimensionMismatch(t *testing.T) {
	g := newTokenGraph(4)
	err := g.add("a", [][]float32{{1, 0}})
	assert.Error(t, err)
}

func TestMaxSimPrefersCloserMatch(t *testing.T) {
	query := [][]float32{{1, 0, 0, 0}}
	closeDoc := [][]float32{{1, 0, 0, 0}}
	farDoc := [][]float32{{0, 1, 0, 0}}

	assert.Greater(t, maxSim(query, closeDoc), maxSim(query, farDoc))
}

func TestCosineSimilarityIdentical(t *testing.T) {
	a := []float32{1, 2, 3}
	assert.InDelta(t, 1.0, cosineSimilarity(a, a), 1e-6)
}
