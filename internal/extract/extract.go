package extract

import (
	"context"
	"path/filepath"
	"strings"
)

const fallbackLines = 50

// Extract dispatches file to the appropriate strategy: tree-sitter code
// extraction, markdown/prose chunking, or a first-lines fallback, based on
// its extension.
func Extract(ctx context.Context, file string, content []byte) ([]Block, error) {
	ext := strings.ToLower(filepath.Ext(file))
	base := filepath.Base(file)

	if ext == ".md" || ext == ".mdx" || ext == ".markdown" {
		return ExtractMarkdownBlocks(file, string(content)), nil
	}
	if isTextExtension(ext) {
		return ExtractPlainTextBlocks(file, base, string(content)), nil
	}

	if _, ok := languageForExt(ext); ok {
		blocks, err := ExtractCode(ctx, file, content, ext)
		if err != nil {
			return ExtractFallback(file, content, fallbackLines), nil
		}
		if len(blocks) > 0 {
			return blocks, nil
		}
	}

	return ExtractFallback(file, content, fallbackLines), nil
}
