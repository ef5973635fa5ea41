package extract

import (
	"regexp"
	"strings"
)

const (
	chunkSize     = 400
	chunkOverlap  = 50
	minChunkSize  = 30
)

var (
	fenceRe     = regexp.MustCompile(`^(` + "`" + `{3,}|~{3,})(\w+)?`)
	headerRe    = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	sentenceRe  = regexp.MustCompile(`[.!?]\s+`)
)

// estimateTokens approximates token count as characters / 4, matching the
// heuristic used to decide when a chunk is "big enough" without needing a
// real tokenizer.
func estimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

type markdownSection struct {
	sectionType string // "text" or "code"
	headers     []string
	language    string
	content     string
}

// ExtractMarkdownBlocks chunks markdown content into fenced-code blocks
// (kept whole, one block per fence) and prose sections (recursively split
// and overlapped), each block's content prefixed with its header path for
// context.
func ExtractMarkdownBlocks(file string, content string) []Block {
	sections := parseMarkdownStructure(content)

	var blocks []Block
	line := 1
	for _, sec := range sections {
		lineCount := strings.Count(sec.content, "\n") + 1
		if sec.sectionType == "code" {
			lang := sec.language
			if lang == "" {
				lang = "code"
			}
			ctx := strings.Join(sec.headers, " > ")
			prefix := lang
			if ctx != "" {
				prefix = ctx + " | " + lang
			}
			blocks = append(blocks, Block{
				ID:        MakeID(file, line, lang),
				File:      file,
				Type:      "code",
				Name:      lang,
				StartLine: line,
				EndLine:   line + lineCount - 1,
				Content:   prefix + "\n" + sec.content,
			})
			line += lineCount
			continue
		}

		ctx := strings.Join(sec.headers, " > ")
		chunks := addOverlap(splitTextRecursive(sec.content), chunkOverlap)
		name := ""
		if len(sec.headers) > 0 {
			name = sec.headers[len(sec.headers)-1]
		}
		blockType := "text"
		if len(sec.headers) > 0 {
			blockType = "section"
		}
		for _, chunk := range chunks {
			if estimateTokens(chunk) < minChunkSize {
				continue
			}
			body := chunk
			if ctx != "" {
				body = ctx + " | " + chunk
			}
			blocks = append(blocks, Block{
				ID:        MakeID(file, line, name),
				File:      file,
				Type:      blockType,
				Name:      name,
				StartLine: line,
				EndLine:   line + lineCount - 1,
				Content:   body,
			})
		}
		line += lineCount
	}
	return blocks
}

// ExtractPlainTextBlocks chunks non-markdown prose (.txt, .rst) without any
// header tracking.
func ExtractPlainTextBlocks(file, baseName, content string) []Block {
	chunks := addOverlap(splitTextRecursive(content), chunkOverlap)
	var blocks []Block
	line := 1
	for _, chunk := range chunks {
		if estimateTokens(chunk) < minChunkSize {
			continue
		}
		lineCount := strings.Count(chunk, "\n") + 1
		blocks = append(blocks, Block{
			ID:        MakeID(file, line, baseName),
			File:      file,
			Type:      "text",
			Name:      baseName,
			StartLine: line,
			EndLine:   line + lineCount - 1,
			Content:   chunk,
		})
		line += lineCount
	}
	return blocks
}

// parseMarkdownStructure walks content line by line, tracking a header
// stack and grouping lines into alternating prose/fenced-code sections.
func parseMarkdownStructure(content string) []markdownSection {
	var sections []markdownSection
	var headerStack []string
	var cur strings.Builder
	var curType string
	inFence := false
	fenceLang := ""

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		sections = append(sections, markdownSection{
			sectionType: curType,
			headers:     append([]string(nil), headerStack...),
			language:    fenceLang,
			content:     strings.TrimRight(cur.String(), "\n"),
		})
		cur.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if m := fenceRe.FindStringSubmatch(line); m != nil {
			if inFence {
				flush()
				inFence = false
				fenceLang = ""
				curType = "text"
				continue
			}
			flush()
			inFence = true
			fenceLang = m[2]
			curType = "code"
			continue
		}
		if inFence {
			cur.WriteString(line)
			cur.WriteString("\n")
			continue
		}
		if m := headerRe.FindStringSubmatch(line); m != nil {
			flush()
			level := len(m[1])
			title := strings.TrimSpace(m[2])
			if level-1 < len(headerStack) {
				headerStack = headerStack[:level-1]
			}
			headerStack = append(headerStack, title)
			curType = "text"
			continue
		}
		curType = "text"
		cur.WriteString(line)
		cur.WriteString("\n")
	}
	flush()
	return sections
}

// splitTextRecursive splits text into chunks at most chunkSize tokens,
// preferring paragraph breaks, then lines, then sentences, then spaces.
func splitTextRecursive(text string) []string {
	return splitWithSeparators(text, []string{"\n\n", "\n", "", " "})
}

func splitWithSeparators(text string, seps []string) []string {
	if estimateTokens(text) <= chunkSize {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardSplit(text)
	}

	sep := seps[0]
	var parts []string
	if sep == "" {
		parts = sentenceRe.Split(text, -1)
	} else {
		parts = strings.Split(text, sep)
	}

	var chunks []string
	var cur strings.Builder
	for _, part := range parts {
		candidate := part
		if cur.Len() > 0 && sep != "" {
			candidate = cur.String() + sep + part
		} else if cur.Len() > 0 {
			candidate = cur.String() + " " + part
		}

		if estimateTokens(candidate) <= chunkSize {
			cur.Reset()
			cur.WriteString(candidate)
			continue
		}

		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}

		if estimateTokens(part) > chunkSize {
			chunks = append(chunks, splitWithSeparators(part, seps[1:])...)
		} else {
			cur.WriteString(part)
		}
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// hardSplit is the last-resort separator: accumulate words until the chunk
// is at or above chunkSize tokens.
func hardSplit(text string) []string {
	words := strings.Fields(text)
	var chunks []string
	var cur []string
	for _, w := range words {
		cur = append(cur, w)
		if estimateTokens(strings.Join(cur, " ")) >= chunkSize {
			chunks = append(chunks, strings.Join(cur, " "))
			cur = nil
		}
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}
	return chunks
}

// addOverlap prepends the last overlap words of each chunk to the next
// one, so retrieval near a chunk boundary still has some context from the
// previous chunk. The first chunk is left untouched.
func addOverlap(chunks []string, overlap int) []string {
	if len(chunks) <= 1 {
		return chunks
	}
	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1])
		start := len(prevWords) - overlap
		if start < 0 {
			start = 0
		}
		prefix := strings.Join(prevWords[start:], " ")
		if prefix == "" {
			out[i] = chunks[i]
		} else {
			out[i] = prefix + " " + chunks[i]
		}
	}
	return out
}
