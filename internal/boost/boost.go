// Package boost re-ranks search results using lightweight lexical and
// structural signals, on top of whatever distance/score a retriever
// produced. It never changes the result set, only the ordering.
package boost

import (
	"math"
	"sort"
	"strings"

	"github.com/nijaru/og/internal/tokenize"
)

// Result is the minimal shape boost needs. Callers adapt their own search
// result type to this before calling Apply and copy Score back afterward.
// Index identifies the result's position in the caller's original slice, so
// the caller can re-associate a boosted score after Apply reorders results.
type Result struct {
	Name      string
	Type      string
	FilePath  string
	Score     float64
	Index     int
}

// shortWhitelist holds short (<3 char) terms that are meaningful on their
// own and should not be filtered out of the query term set.
var shortWhitelist = map[string]struct{}{
	"db": {}, "fs": {}, "io": {}, "ui": {}, "id": {}, "ok": {}, "fn": {}, "rx": {}, "tx": {},
	"api": {}, "vm": {}, "os": {}, "gc": {}, "ip": {}, "sql": {}, "cli": {}, "tls": {}, "rpc": {},
}

var classTypes = map[string]struct{}{"class": {}, "struct": {}, "type": {}}
var funcTypes = map[string]struct{}{"function": {}, "func": {}, "fn": {}, "method": {}, "def": {}}

const maxBoost = 4.0

// Apply re-ranks results in place for the given query, sorting descending
// by boosted score. It is a no-op if results or query is empty.
func Apply(results []*Result, query string) {
	if len(results) == 0 || strings.TrimSpace(query) == "" {
		return
	}

	queryTerms := filterTerms(tokenize.ExtractTerms(query))
	querySet := toSet(queryTerms)

	wantsClass := intersects(querySet, classTypes)
	wantsFunc := intersects(querySet, funcTypes)

	for _, r := range results {
		b := nameBoost(r.Name, querySet)
		b *= typeBoost(r.Type, wantsClass, wantsFunc)
		b *= pathBoost(r.FilePath, queryTerms)
		b = math.Min(b, maxBoost)
		r.Score *= b
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func filterTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if len(t) >= 3 {
			out = append(out, t)
			continue
		}
		if _, ok := shortWhitelist[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func toSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}

func intersects(a map[string]struct{}, b map[string]struct{}) bool {
	for t := range a {
		if _, ok := b[t]; ok {
			return true
		}
	}
	return false
}

func nameBoost(name string, querySet map[string]struct{}) float64 {
	if _, ok := querySet[strings.ToLower(name)]; ok {
		return 2.5
	}
	nameSet := toSet(tokenize.ExtractTerms(name))
	overlap := 0
	for t := range querySet {
		if _, ok := nameSet[t]; ok {
			overlap++
		}
	}
	if overlap > 0 {
		return 1 + 0.3*float64(overlap)
	}
	return 1.0
}

func typeBoost(blockType string, wantsClass, wantsFunc bool) float64 {
	isClass := blockType == "class" || blockType == "struct"
	isFunc := blockType == "function" || blockType == "method"

	if (wantsClass && isClass) || (wantsFunc && isFunc) {
		return 1.5
	}
	if wantsClass || wantsFunc {
		return 1.0
	}

	switch blockType {
	case "class", "struct":
		return 1.3
	case "function", "method":
		return 1.2
	case "interface", "type", "trait", "enum":
		return 1.1
	default:
		return 1.0
	}
}

func pathBoost(filePath string, queryTerms []string) float64 {
	lower := strings.ToLower(filePath)
	for _, t := range queryTerms {
		if len(t) >= 3 && strings.Contains(lower, t) {
			return 1.15
		}
	}
	return 1.0
}
