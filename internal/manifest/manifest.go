// Package manifest tracks which files have been indexed, their content
// hashes and mtimes, and the blocks extracted from each, so that an
// incremental build can tell which files changed since the last run.
package manifest

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"lukechampine.com/blake3"

	"github.com/nijaru/og/internal/ogerrors"
)

// Version is the current on-disk manifest format version.
const Version = 9

const manifestFile = "manifest.json"
const tmpManifestFile = ".manifest.json.tmp"

// FileEntry records what was last indexed for a single file.
type FileEntry struct {
	Hash   string
	MTime  time.Time
	Blocks []string
}

// fileEntryJSON is the on-disk shape of FileEntry: mtime is unix seconds,
// 0 meaning unknown, rather than an RFC3339 timestamp.
type fileEntryJSON struct {
	Hash   string   `json:"hash"`
	MTime  int64    `json:"mtime"`
	Blocks []string `json:"blocks"`
}

// MarshalJSON implements the unix-seconds mtime schema described above.
func (e FileEntry) MarshalJSON() ([]byte, error) {
	var sec int64
	if !e.MTime.IsZero() {
		sec = e.MTime.Unix()
	}
	return json.Marshal(fileEntryJSON{Hash: e.Hash, MTime: sec, Blocks: e.Blocks})
}

// UnmarshalJSON implements the unix-seconds mtime schema described above.
func (e *FileEntry) UnmarshalJSON(data []byte) error {
	var aux fileEntryJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.Hash = aux.Hash
	e.Blocks = aux.Blocks
	if aux.MTime != 0 {
		e.MTime = time.Unix(aux.MTime, 0).UTC()
	} else {
		e.MTime = time.Time{}
	}
	return nil
}

// Manifest is the persisted state of an index.
type Manifest struct {
	Version int                  `json:"version"`
	Model   string               `json:"model"`
	Files   map[string]FileEntry `json:"files"`
}

// New returns an empty manifest for the given embedding model version.
func New(model string) *Manifest {
	return &Manifest{
		Version: Version,
		Model:   model,
		Files:   make(map[string]FileEntry),
	}
}

// Load reads the manifest from indexDir. A missing file returns an empty
// manifest, not an error. A manifest written by a newer og, or a non-empty
// manifest written by an older incompatible one, returns an *ogerrors.Error.
func Load(indexDir, model string) (*Manifest, error) {
	path := filepath.Join(indexDir, manifestFile)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(model), nil
	}
	if err != nil {
		return nil, ogerrors.Wrap(ogerrors.ErrCodeFilePermission, err)
	}
	if len(data) == 0 {
		return New(model), nil
	}

	var probe struct {
		Version int                  `json:"version"`
		Files   map[string]FileEntry `json:"files"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, ogerrors.Wrap(ogerrors.ErrCodeConfigInvalid, err)
	}

	if probe.Version > Version {
		return nil, ogerrors.FutureFormat()
	}
	if probe.Version < Version && len(probe.Files) > 0 {
		return nil, ogerrors.StaleFormatVersion()
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, ogerrors.Wrap(ogerrors.ErrCodeConfigInvalid, err)
	}

	if m.Model != "" && m.Model != model && len(m.Files) > 0 {
		return nil, ogerrors.StaleFormatModel(m.Model, model)
	}

	return &m, nil
}

// Save atomically persists m to indexDir, writing to a temp file first and
// renaming it into place so a crash mid-write never leaves a torn manifest.
func (m *Manifest) Save(indexDir string) error {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return ogerrors.Wrap(ogerrors.ErrCodeFilePermission, err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return ogerrors.Wrap(ogerrors.ErrCodeInternal, err)
	}

	tmpPath := filepath.Join(indexDir, tmpManifestFile)
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return ogerrors.Wrap(ogerrors.ErrCodeFilePermission, err)
	}

	finalPath := filepath.Join(indexDir, manifestFile)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return ogerrors.Wrap(ogerrors.ErrCodeFilePermission, err)
	}
	return nil
}

// HashContent returns the first 16 hex characters of the BLAKE3 hash of
// content: enough to detect changes without storing a full 64-char digest
// per file in the manifest.
func HashContent(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])[:16]
}

// IsStale reports whether a file's recorded entry no longer matches its
// current content hash (or is absent entirely).
func (m *Manifest) IsStale(path string, currentHash string) bool {
	entry, ok := m.Files[path]
	if !ok {
		return true
	}
	return entry.Hash != currentHash
}

// IsStaleFast reports staleness using only mtime, skipping the cost of
// hashing file content. Used by read-only staleness probes that must not
// pay the full indexing cost just to answer "does this need a rebuild".
func (m *Manifest) IsStaleFast(path string, mtime time.Time) bool {
	entry, ok := m.Files[path]
	if !ok {
		return true
	}
	return !entry.MTime.Equal(mtime.Truncate(time.Second))
}

// Remove deletes path's entry from the manifest, returning the block ids it
// previously owned so the caller can remove them from the vector store.
func (m *Manifest) Remove(path string) []string {
	entry, ok := m.Files[path]
	if !ok {
		return nil
	}
	delete(m.Files, path)
	return entry.Blocks
}

// RemovePrefix removes every file entry whose path has the given prefix
// (used when a directory is deleted), returning the union of block ids
// previously owned by those files.
func (m *Manifest) RemovePrefix(prefix string) []string {
	var blocks []string
	for path, entry := range m.Files {
		if hasPathPrefix(path, prefix) {
			blocks = append(blocks, entry.Blocks...)
			delete(m.Files, path)
		}
	}
	return blocks
}

func hasPathPrefix(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	if path == prefix {
		return true
	}
	return len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '/'
}

// Set records path's current hash, mtime, and block ids. mtime is truncated
// to second precision, matching the on-disk unix-seconds schema, so a
// reloaded manifest compares equal to a freshly stat'd mtime.
func (m *Manifest) Set(path string, hash string, mtime time.Time, blocks []string) {
	m.Files[path] = FileEntry{Hash: hash, MTime: mtime.Truncate(time.Second), Blocks: blocks}
}

// StaleFiles returns the paths present in currentPaths that are missing
// from the manifest or whose hash has changed, plus the paths present in
// the manifest but absent from currentPaths (deleted files).
func (m *Manifest) StaleFiles(currentHashes map[string]string) (changed, deleted []string) {
	for path, hash := range currentHashes {
		if m.IsStale(path, hash) {
			changed = append(changed, path)
		}
	}
	for path := range m.Files {
		if _, ok := currentHashes[path]; !ok {
			deleted = append(deleted, path)
		}
	}
	return changed, deleted
}
