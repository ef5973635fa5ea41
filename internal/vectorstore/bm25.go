package vectorstore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/nijaru/og/internal/tokenize"
)

// Registered under an "og_" prefix, distinct from any other package that
// registers its own code tokenizer/analyzer into bleve's global registry,
// so the two can coexist in the same process without a name collision.
const (
	tokenizerName = "og_code_tokenizer"
	stopFilterName = "og_code_stop"
	analyzerName  = "og_code_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(tokenizerName, tokenizerConstructor)
	_ = registry.RegisterTokenFilter(stopFilterName, stopFilterConstructor)
}

// bm25Index wraps a bleve full-text index scoring blocks by BM25 over their
// lexical text (identifier-split code, or prose).
type bm25Index struct {
	mu    sync.RWMutex
	index bleve.Index
}

type bm25Doc struct {
	Text string `json:"text"`
}

func openBM25Index(path string) (*bm25Index, error) {
	indexMapping, err := buildIndexMapping()
	if err != nil {
		return nil, err
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil && isCorruptIndexError(err) {
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return nil, fmt.Errorf("bm25 index corrupted, cannot clear: %w (original: %v)", rmErr, err)
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open bm25 index: %w", err)
	}

	return &bm25Index{index: idx}, nil
}

func buildIndexMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	err := m.AddCustomAnalyzer(analyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": tokenizerName,
		"token_filters": []string{
			lowercase.Name,
			stopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add custom analyzer: %w", err)
	}
	m.DefaultAnalyzer = analyzerName
	return m, nil
}

// isCorruptIndexError reports whether err looks like bleve segment/metadata
// corruption rather than a legitimate open failure, so callers know when it
// is safe to clear the index directory and rebuild from scratch.
func isCorruptIndexError(err error) bool {
	s := err.Error()
	return strings.Contains(s, "unexpected end of JSON") ||
		strings.Contains(s, "error parsing mapping JSON") ||
		strings.Contains(s, "failed to load segment") ||
		strings.Contains(s, "checksum mismatch")
}

func (b *bm25Index) indexText(ctx context.Context, id, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.IndexContext(ctx, id, bm25Doc{Text: text})
}

func (b *bm25Index) delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.DeleteContext(ctx, id)
}

// search returns up to k document ids ranked by BM25 score, descending.
func (b *bm25Index) search(ctx context.Context, queryStr string, k int) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if strings.TrimSpace(queryStr) == "" {
		return nil, nil
	}

	q := bleve.NewMatchQuery(queryStr)
	q.SetField("text")

	req := bleve.NewSearchRequest(q)
	req.Size = k
	req.Fields = []string{}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func (b *bm25Index) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}

func tokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &codeTokenizer{}, nil
}

// codeTokenizer splits on identifier boundaries the same way as
// tokenize.ExtractTerms, so index-time and query-time term extraction for
// code stay byte-for-byte consistent with the rest of og's lexical layer.
type codeTokenizer struct{}

func (t *codeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	terms := tokenize.ExtractTerms(string(input))

	result := make(analysis.TokenStream, 0, len(terms))
	text := strings.ToLower(string(input))
	offset := 0
	pos := 1
	for _, term := range terms {
		start := strings.Index(text[offset:], term)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(term)
		result = append(result, &analysis.Token{
			Term:     []byte(term),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return result
}

func stopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &codeStopFilter{}, nil
}

type codeStopFilter struct{}

func (f *codeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := make(analysis.TokenStream, 0, len(input))
	for _, tok := range input {
		if len(tok.Term) < 2 {
			continue
		}
		out = append(out, tok)
	}
	return out
}
