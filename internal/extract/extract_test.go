package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractGoFunctionsAndTypes(t *testing.T) {
	src := []byte(`package main

func Add(a, b int) int {
	return a + b
}

type Point struct {
	X, Y int
}
`)
	blocks, err := Extract(context.Background(), "main.go", src)
	require.NoError(t, err)

	var names []string
	for _, b := range blocks {
		names = append(names, b.Name)
	}
	assert.Contains(t, names, "Add")
	assert.Contains(t, names, "Point")
}

func TestExtractPythonFunctionsAndClasses(t *testing.T) {
	src := []byte(`def greet(name):
    return f"hello {name}"


class Greeter:
    def greet(self):
        pass
`)
	blocks, err := Extract(context.Background(), "greet.py", src)
	require.NoError(t, err)

	var names []string
	for _, b := range blocks {
		names = append(names, b.Name)
	}
	assert.Contains(t, names, "greet")
	assert.Contains(t, names, "Greeter")
}

func TestExtractFallsBackForUnknownExtension(t *testing.T) {
	src := []byte("line one\nline two\nline three\n")
	blocks, err := Extract(context.Background(), "data.yaml", src)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "file", blocks[0].Type)
}

func TestExtractFallbackTruncatesToMaxLines(t *testing.T) {
	var src []byte
	for i := 0; i < 100; i++ {
		src = append(src, []byte("line\n")...)
	}
	blocks := ExtractFallback("big.json", src, 50)
	require.Len(t, blocks, 1)
	assert.Equal(t, 50, blocks[0].EndLine)
}

func TestExtractMarkdownSplitsCodeAndProse(t *testing.T) {
	md := "# Title\n\nSome prose here.\n\n```go\nfunc main() {}\n```\n"
	blocks := ExtractMarkdownBlocks("doc.md", md)
	require.NotEmpty(t, blocks)

	var types []string
	for _, b := range blocks {
		types = append(types, b.Type)
	}
	assert.Contains(t, types, "code")
}

func TestExtractMarkdownCodeFenceNamedByLanguageUnderHeader(t *testing.T) {
	md := "# H1\n\n```rust\nfn x(){}\n```\n"
	blocks := ExtractMarkdownBlocks("doc.md", md)
	require.Len(t, blocks, 1)
	assert.Equal(t, "rust", blocks[0].Name)
	assert.Equal(t, "H1 | rust\nfn x(){}", blocks[0].Content)
}

func TestExtractMarkdownCodeFenceNamedCodeWithoutLanguage(t *testing.T) {
	md := "```\nplain text\n```\n"
	blocks := ExtractMarkdownBlocks("doc.md", md)
	require.Len(t, blocks, 1)
	assert.Equal(t, "code", blocks[0].Name)
	assert.Equal(t, "code\nplain text", blocks[0].Content)
}

func TestExtractMarkdownDropsChunksBelowMinTokenEstimate(t *testing.T) {
	md := "# H1\n\nshort\n"
	blocks := ExtractMarkdownBlocks("doc.md", md)
	assert.Empty(t, blocks)
}

func TestBlockEmbeddingText(t *testing.T) {
	b := Block{Type: "function", Name: "Add", Content: "func Add() {}"}
	assert.Equal(t, "function Add\nfunc Add() {}", b.EmbeddingText())
}

func TestMakeIDIsDeterministic(t *testing.T) {
	a := MakeID("a.go", 10, "Foo")
	b := MakeID("a.go", 10, "Foo")
	assert.Equal(t, a, b)
	assert.Equal(t, "a.go:10:Foo", a)
}
