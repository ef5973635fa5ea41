package semindex

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindRoot walks up from searchPath looking for an existing index,
// returning the directory containing it (or searchPath itself, with ok
// false, if none is found up to the filesystem root).
func FindRoot(searchPath string) (root string, found bool) {
	abs, err := filepath.Abs(searchPath)
	if err != nil {
		abs = searchPath
	}

	current := abs
	for {
		if hasManifest(current) {
			return current, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return abs, false
}

// FindParentIndex looks for an existing index in an ancestor of path,
// never at path itself.
func FindParentIndex(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	current := filepath.Dir(abs)
	if current == abs {
		return "", false
	}
	for {
		if hasManifest(current) {
			return current, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return "", false
}

// FindSubdirIndexes returns every directory under path that has its own
// index, excluding path itself unless includeRoot is true. Hidden
// directories are skipped during the walk except IndexDirName itself.
func FindSubdirIndexes(path string, includeRoot bool) []string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	var indexes []string
	_ = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if name != IndexDirName && strings.HasPrefix(name, ".") && p != abs {
			return filepath.SkipDir
		}
		if name == IndexDirName && hasManifestDir(p) {
			parent := filepath.Dir(p)
			if includeRoot || parent != abs {
				indexes = append(indexes, parent)
			}
			return filepath.SkipDir
		}
		return nil
	})
	return indexes
}

func hasManifest(dir string) bool {
	return hasManifestDir(filepath.Join(dir, IndexDirName))
}

func hasManifestDir(indexDir string) bool {
	_, err := os.Stat(filepath.Join(indexDir, "manifest.json"))
	return err == nil
}
