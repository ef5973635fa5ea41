package semindex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// buildLock serializes build/update/delete operations against a single
// index directory across processes, so two og invocations on the same
// project never interleave writes to the manifest or vector store.
type buildLock struct {
	path  string
	flock *flock.Flock
}

func newBuildLock(indexDir string) *buildLock {
	path := filepath.Join(indexDir, ".build.lock")
	return &buildLock{path: path, flock: flock.New(path)}
}

// Lock acquires the cross-process build lock, blocking until available.
func (l *buildLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire build lock: %w", err)
	}
	return nil
}

// Unlock releases the build lock. Safe to call even if Lock failed.
func (l *buildLock) Unlock() error {
	if !l.flock.Locked() {
		return nil
	}
	return l.flock.Unlock()
}
