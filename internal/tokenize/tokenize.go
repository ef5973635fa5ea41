// Package tokenize expands code identifiers for lexical search: it augments
// text with the lowercase parts of camelCase, PascalCase, UPPER_SNAKE, and
// snake_case identifiers, so that a query for "user" matches a block that
// only mentions getUserById.
package tokenize

import (
	"regexp"
	"sort"
	"strings"
)

var (
	identRe = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9_]*[a-zA-Z0-9]`)
	camelRe = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	upperRe = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
)

// keywordStopList holds common language keywords that are never worth
// splitting or indexing as identifier parts on their own.
var keywordStopList = buildStopSet([]string{
	"pub", "fn", "let", "mut", "const", "use", "mod", "impl", "self", "crate", "super",
	"struct", "enum", "trait", "type", "where", "async", "await", "move", "ref",
	"return", "match", "loop", "while", "for", "break", "continue", "unsafe", "static", "extern", "dyn",
	"true", "false",
	"def", "class", "import", "from", "pass", "None", "True", "False", "elif", "else",
	"try", "except", "finally", "with", "yield", "lambda", "raise", "assert", "del", "global",
	"func", "var", "package", "defer", "chan", "select", "case", "default", "goto", "range",
	"void", "int", "char", "float", "double", "long", "short", "unsigned", "signed", "bool", "string", "null", "nil",
	"this", "new", "delete", "throw", "catch", "throws", "extends", "implements",
	"interface", "abstract", "final", "override", "virtual", "protected", "private", "public",
})

func buildStopSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// splitWord splits a camelCase, PascalCase, UPPER_CASE-acronym, or
// snake_case word into its lowercase parts. It returns nil if the word has
// no camel/upper/underscore boundary, or if splitting would produce only a
// single part (no real split occurred).
func splitWord(word string) []string {
	hasUnderscore := strings.Contains(word, "_")
	hasCamel := camelRe.MatchString(word)
	hasUpperRun := upperRe.MatchString(word)
	if !hasUnderscore && !hasCamel && !hasUpperRun {
		return nil
	}

	expanded := upperRe.ReplaceAllString(word, "$1 $2")
	expanded = camelRe.ReplaceAllString(expanded, "$1 $2")

	raw := strings.FieldsFunc(expanded, func(r rune) bool {
		return r == '_' || r == ' '
	})

	var parts []string
	for _, p := range raw {
		if len(p) >= 2 {
			parts = append(parts, strings.ToLower(p))
		}
	}
	if len(parts) <= 1 {
		return nil
	}
	return parts
}

// SplitIdentifiers appends the lowercase split parts of every identifier of
// length >= 4 (that isn't a stop word) to the end of text, preserving term
// frequency: an identifier repeated N times contributes its parts N times.
// If no identifier produces any extra parts, text is returned unchanged.
func SplitIdentifiers(text string) string {
	matches := identRe.FindAllString(text, -1)
	var extra []string
	for _, word := range matches {
		if len(word) < 4 {
			continue
		}
		if _, stop := keywordStopList[word]; stop {
			continue
		}
		for _, part := range splitWord(word) {
			if _, stop := keywordStopList[part]; !stop {
				extra = append(extra, part)
			}
		}
	}
	if len(extra) == 0 {
		return text
	}
	return text + " " + strings.Join(extra, " ")
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// ExtractTerms extracts a sorted, deduplicated set of lowercase search terms
// from text: every identifier is kept lowercased whole and, if it splits,
// also contributes its parts, and every short (<3 char) alphanumeric word is
// kept as-is. Used for both query term extraction and boost matching.
func ExtractTerms(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	add := func(t string) {
		if t == "" {
			return
		}
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			terms = append(terms, t)
		}
	}

	for _, word := range identRe.FindAllString(text, -1) {
		add(strings.ToLower(word))
		for _, p := range splitWord(word) {
			add(p)
		}
	}

	for _, word := range nonAlnum.Split(text, -1) {
		if word == "" {
			continue
		}
		if len(word) < 3 {
			add(strings.ToLower(word))
		}
	}

	sort.Strings(terms)
	return terms
}
