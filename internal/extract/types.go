// Package extract turns file content into searchable Blocks: syntax-aware
// functions/classes/types for code via tree-sitter capture queries, and
// chunked sections for prose (markdown, plain text), with a first-lines
// fallback for anything else.
package extract

import "strconv"

// Block is one unit of searchable content extracted from a file.
type Block struct {
	ID        string
	File      string
	Type      string
	Name      string
	StartLine int
	EndLine   int
	Content   string
}

// MakeID builds a Block's deterministic id from its file, start line, and
// name, so the same logical block always gets the same id across runs.
func MakeID(file string, startLine int, name string) string {
	return file + ":" + strconv.Itoa(startLine) + ":" + name
}

// EmbeddingText is the text handed to the embedder: block type and name
// give the model a lexical signal beyond raw content alone.
func (b Block) EmbeddingText() string {
	return b.Type + " " + b.Name + "\n" + b.Content
}
