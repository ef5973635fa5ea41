package extract

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// ExtractCode parses source with the tree-sitter grammar registered for
// ext and returns one Block per capture, using the language's query. If no
// captures are produced (or ext isn't registered), the caller should fall
// back to ExtractFallback.
func ExtractCode(ctx context.Context, file string, source []byte, ext string) ([]Block, error) {
	def, ok := languageForExt(ext)
	if !ok {
		return nil, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(def.lang)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parse %s: nil tree", file)
	}

	query, err := sitter.NewQuery([]byte(def.query), def.lang)
	if err != nil {
		return nil, fmt.Errorf("compile query for %s: %w", def.name, err)
	}
	defer query.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(query, tree.RootNode())

	var captures []capturedNode
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		for _, c := range match.Captures {
			captures = append(captures, capturedNode{
				label: query.CaptureNameForId(c.Index),
				node:  c.Node,
			})
		}
	}

	captures = removeNested(captures)

	blocks := make([]Block, 0, len(captures))
	for _, c := range captures {
		blockType := captureLabelToType(c.label)
		name := findName(c.node, source)
		startLine := int(c.node.StartPoint().Row) + 1
		endLine := int(c.node.EndPoint().Row) + 1
		content := string(source[c.node.StartByte():c.node.EndByte()])

		blocks = append(blocks, Block{
			ID:        MakeID(file, startLine, name),
			File:      file,
			Type:      blockType,
			Name:      name,
			StartLine: startLine,
			EndLine:   endLine,
			Content:   content,
		})
	}
	return blocks, nil
}

type capturedNode struct {
	label string
	node  *sitter.Node
}

func captureLabelToType(label string) string {
	switch label {
	case "function":
		return "function"
	case "class":
		return "class"
	default:
		return label
	}
}

// removeNested drops any captured node strictly contained inside another
// captured node with the same capture label, keeping the outermost one
// (e.g. a nested closure matched by the same pattern as its enclosing
// function). Captures with different labels are never folded together: a
// function-labelled method inside a class-labelled class yields both blocks.
func removeNested(captures []capturedNode) []capturedNode {
	keep := make([]bool, len(captures))
	for i := range captures {
		keep[i] = true
	}
	for i, a := range captures {
		for j, b := range captures {
			if i == j || !keep[i] {
				continue
			}
			if a.label != b.label {
				continue
			}
			if contains(b.node, a.node) && !contains(a.node, b.node) {
				keep[i] = false
			}
		}
	}
	out := make([]capturedNode, 0, len(captures))
	for i, c := range captures {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}

func contains(outer, inner *sitter.Node) bool {
	return outer.StartByte() <= inner.StartByte() && outer.EndByte() >= inner.EndByte() && outer != inner
}

// findName extracts an identifier name from a captured node: it looks for
// a child field named "name", falling back to the first identifier-like
// child, and finally an empty string for anonymous constructs (e.g. an
// arrow function assigned to nothing).
func findName(node *sitter.Node, source []byte) string {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return string(source[nameNode.StartByte():nameNode.EndByte()])
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier", "type_identifier", "property_identifier", "field_identifier":
			return string(source[child.StartByte():child.EndByte()])
		}
	}
	return ""
}

// ExtractFallback returns a single block covering the first maxLines lines
// of content, used for languages/extensions with no registered query
// (YAML, JSON) or where parsing failed.
func ExtractFallback(file string, source []byte, maxLines int) []Block {
	lines := splitLines(source)
	if len(lines) == 0 {
		return nil
	}
	end := maxLines
	if end > len(lines) {
		end = len(lines)
	}
	content := joinLines(lines[:end])
	return []Block{{
		ID:        MakeID(file, 1, ""),
		File:      file,
		Type:      "file",
		Name:      "",
		StartLine: 1,
		EndLine:   end,
		Content:   content,
	}}
}

func splitLines(source []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range source {
		if b == '\n' {
			lines = append(lines, source[start:i])
			start = i + 1
		}
	}
	if start < len(source) {
		lines = append(lines, source[start:])
	}
	return lines
}

func joinLines(lines [][]byte) string {
	total := 0
	for _, l := range lines {
		total += len(l) + 1
	}
	buf := make([]byte, 0, total)
	for i, l := range lines {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, l...)
	}
	return string(buf)
}
