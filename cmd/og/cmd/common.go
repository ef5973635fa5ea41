package cmd

import (
	"os"

	"github.com/nijaru/og/internal/semindex"
)

// resolveRoot returns the project root: the --root flag if set, otherwise
// the nearest ancestor already holding an index, otherwise the cwd.
func resolveRoot() (string, error) {
	if rootPath != "" {
		return rootPath, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if root, found := semindex.FindRoot(cwd); found {
		return root, nil
	}
	return cwd, nil
}

func openIndex(root string) (*semindex.Index, error) {
	idx, err := semindex.Open(semindex.Options{Root: root})
	if err != nil {
		return nil, err
	}
	if searchScope != "" {
		idx.SetSearchScope(searchScope)
	}
	return idx, nil
}
