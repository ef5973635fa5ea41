// Package walker discovers indexable files under a project root: it
// applies ignore-file rules, skips hidden directories, and filters out
// files that are oversized or binary, without following symlinks.
package walker

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nijaru/og/internal/gitignore"
)

// matcherCacheSize bounds the number of per-directory gitignore matchers
// kept in memory, so a walk over a tree with many nested .gitignore files
// does not grow unbounded.
const matcherCacheSize = 1000

// defaultExcludeDirs are always skipped regardless of ignore files.
var defaultExcludeDirs = []string{
	".git", "node_modules", "vendor", "__pycache__", "dist", "build", ".og",
}

// sniffBytes is how much of a file's head is scanned for a NUL byte when
// deciding whether it is binary.
const sniffBytes = 8192

// Options configures a walk.
type Options struct {
	// Root is the project directory to scan. Required.
	Root string

	// Include, if non-empty, restricts results to files whose relative
	// path matches at least one of these gitignore-style patterns.
	Include []string

	// Exclude adds gitignore-style patterns excluded on top of the
	// default exclusions and any .gitignore files found in the tree.
	Exclude []string

	// MaxFileSize is the ceiling in bytes above which a file is skipped.
	// Zero means DefaultMaxFileSize.
	MaxFileSize int64
}

// DefaultMaxFileSize is the ceiling applied when Options.MaxFileSize is 0.
const DefaultMaxFileSize = 1_000_000

// File describes one file discovered by a walk.
type File struct {
	// Path is relative to the walk root, using forward slashes.
	Path    string
	AbsPath string
	Size    int64
	MTime   time.Time
}

// Walker discovers files, caching parsed ignore-file matchers by directory.
type Walker struct {
	matcherCache *lru.Cache[string, *gitignore.Matcher]
	mu           sync.Mutex
}

// New constructs a Walker.
func New() (*Walker, error) {
	cache, err := lru.New[string, *gitignore.Matcher](matcherCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create gitignore cache: %w", err)
	}
	return &Walker{matcherCache: cache}, nil
}

// Walk synchronously discovers every indexable file under opts.Root and
// returns them in traversal order.
func (w *Walker) Walk(opts Options) ([]File, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	var files []File
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		if relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if w.shouldExcludeDir(d.Name(), relPath, opts) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if w.shouldExcludeFile(relPath, absRoot, opts) {
			return nil
		}

		fileInfo, err := d.Info()
		if err != nil {
			return nil
		}
		if fileInfo.Size() > maxFileSize {
			return nil
		}
		if isBinary(path) {
			return nil
		}

		files = append(files, File{
			Path:    relPath,
			AbsPath: path,
			Size:    fileInfo.Size(),
			MTime:   fileInfo.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (w *Walker) shouldExcludeDir(name, relPath string, opts Options) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, d := range defaultExcludeDirs {
		if name == d {
			return true
		}
	}
	for _, pattern := range opts.Exclude {
		if matchesDirPattern(relPath, pattern) {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExcludeFile(relPath, absRoot string, opts Options) bool {
	base := filepath.Base(relPath)
	for _, pattern := range opts.Exclude {
		if matchesFilePattern(base, relPath, pattern) {
			return true
		}
	}
	if len(opts.Include) > 0 && !w.matchesAny(relPath, opts.Include) {
		return true
	}
	if w.isIgnored(relPath, absRoot) {
		return true
	}
	return false
}

func (w *Walker) matchesAny(relPath string, patterns []string) bool {
	base := filepath.Base(relPath)
	for _, pattern := range patterns {
		if matchesFilePattern(base, relPath, pattern) {
			return true
		}
	}
	return false
}

// isIgnored walks from absRoot down to the file's directory, checking every
// .gitignore found along the way, lazily parsed and cached by directory.
func (w *Walker) isIgnored(relPath, absRoot string) bool {
	dir := filepath.Dir(relPath)
	segments := []string{}
	if dir != "." {
		segments = strings.Split(dir, "/")
	}

	cur := absRoot
	for i := -1; i < len(segments); i++ {
		if i >= 0 {
			cur = filepath.Join(cur, segments[i])
		}
		matcher := w.getMatcher(cur)
		if matcher == nil {
			continue
		}
		relFromCur, err := filepath.Rel(cur, filepath.Join(absRoot, relPath))
		if err != nil {
			continue
		}
		if matcher.Match(filepath.ToSlash(relFromCur), false) {
			return true
		}
	}
	return false
}

func (w *Walker) getMatcher(dir string) *gitignore.Matcher {
	w.mu.Lock()
	defer w.mu.Unlock()

	if m, ok := w.matcherCache.Get(dir); ok {
		return m
	}

	gitignorePath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignorePath); err != nil {
		w.matcherCache.Add(dir, nil)
		return nil
	}

	matcher := gitignore.New()
	if err := matcher.AddFromFile(gitignorePath, ""); err != nil {
		w.matcherCache.Add(dir, nil)
		return nil
	}
	w.matcherCache.Add(dir, matcher)
	return matcher
}

// isBinary reports whether path looks binary: a NUL byte in the first
// sniffBytes bytes, or content that fails UTF-8 validation.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, sniffBytes)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false
	}
	buf = buf[:n]

	if bytes.Contains(buf, []byte{0}) {
		return true
	}
	return !utf8.Valid(buf)
}

func matchesDirPattern(relPath, pattern string) bool {
	pattern = strings.TrimPrefix(pattern, "**/")
	pattern = strings.TrimSuffix(pattern, "/**")
	for _, part := range strings.Split(relPath, "/") {
		if part == pattern {
			return true
		}
	}
	return false
}

func matchesFilePattern(base, relPath, pattern string) bool {
	if ok, _ := filepath.Match(pattern, base); ok {
		return true
	}
	if ok, _ := filepath.Match(pattern, relPath); ok {
		return true
	}
	return false
}
