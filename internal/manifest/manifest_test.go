package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nijaru/og/internal/ogerrors"
)

func TestLoadMissingReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(dir, "model-v1")
	require.NoError(t, err)
	assert.Equal(t, Version, m.Version)
	assert.Equal(t, "model-v1", m.Model)
	assert.Empty(t, m.Files)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := New("model-v1")
	m.Set("a.go", "abc123", time.Unix(1000, 0), []string{"a.go:1:foo"})

	require.NoError(t, m.Save(dir))

	loaded, err := Load(dir, "model-v1")
	require.NoError(t, err)
	assert.Equal(t, m.Files["a.go"].Hash, loaded.Files["a.go"].Hash)
	assert.Equal(t, []string{"a.go:1:foo"}, loaded.Files["a.go"].Blocks)
}

func TestFileEntryJSONUsesUnixSecondsMTime(t *testing.T) {
	dir := t.TempDir()
	m := New("model-v1")
	m.Set("a.go", "abc123", time.Unix(1700000000, 123456789), []string{"a.go:1:foo"})
	m.Set("b.go", "def456", time.Time{}, nil)

	require.NoError(t, m.Save(dir))

	raw, err := os.ReadFile(filepath.Join(dir, manifestFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"mtime": 1700000000`)
	assert.Contains(t, string(raw), `"mtime": 0`)

	loaded, err := Load(dir, "model-v1")
	require.NoError(t, err)
	assert.True(t, time.Unix(1700000000, 0).Equal(loaded.Files["a.go"].MTime))
	assert.True(t, loaded.Files["b.go"].MTime.IsZero())
}

func TestSaveUsesAtomicRename(t *testing.T) {
	dir := t.TempDir()
	m := New("model-v1")
	require.NoError(t, m.Save(dir))

	_, err := os.Stat(filepath.Join(dir, tmpManifestFile))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, manifestFile))
	require.NoError(t, err)
}

func TestLoadFutureFormatIsFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestFile),
		[]byte(`{"version":999,"model":"x","files":{}}`), 0o644))

	_, err := Load(dir, "model-v1")
	require.Error(t, err)
	assert.True(t, ogerrors.IsFutureFormat(err))
}

func TestLoadStaleFormatVersionWithFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestFile),
		[]byte(`{"version":1,"model":"x","files":{"a.go":{"hash":"x","blocks":[]}}}`), 0o644))

	_, err := Load(dir, "model-v1")
	require.Error(t, err)
	assert.True(t, ogerrors.IsStale(err))
	assert.Contains(t, err.Error(), "older version")
}

func TestLoadStaleFormatOldEmptyIsOK(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestFile),
		[]byte(`{"version":1,"model":"x","files":{}}`), 0o644))

	m, err := Load(dir, "model-v1")
	require.NoError(t, err)
	assert.Empty(t, m.Files)
}

func TestLoadStaleModelMismatch(t *testing.T) {
	dir := t.TempDir()
	m := New("old-model")
	m.Set("a.go", "h", time.Now(), nil)
	require.NoError(t, m.Save(dir))

	_, err := Load(dir, "new-model")
	require.Error(t, err)
	assert.True(t, ogerrors.IsStale(err))
	assert.Contains(t, err.Error(), "different model")
}

func TestIsStale(t *testing.T) {
	m := New("model")
	m.Set("a.go", "hash1", time.Now(), nil)

	assert.True(t, m.IsStale("b.go", "hash2"))
	assert.False(t, m.IsStale("a.go", "hash1"))
	assert.True(t, m.IsStale("a.go", "hash2"))
}

func TestRemoveReturnsBlocks(t *testing.T) {
	m := New("model")
	m.Set("a.go", "hash1", time.Now(), []string{"a.go:1:foo", "a.go:10:bar"})

	blocks := m.Remove("a.go")
	assert.ElementsMatch(t, []string{"a.go:1:foo", "a.go:10:bar"}, blocks)
	_, ok := m.Files["a.go"]
	assert.False(t, ok)
}

func TestRemovePrefix(t *testing.T) {
	m := New("model")
	m.Set("pkg/a.go", "h1", time.Now(), []string{"pkg/a.go:1:foo"})
	m.Set("pkg/b.go", "h2", time.Now(), []string{"pkg/b.go:1:bar"})
	m.Set("other/c.go", "h3", time.Now(), []string{"other/c.go:1:baz"})

	blocks := m.RemovePrefix("pkg")
	assert.ElementsMatch(t, []string{"pkg/a.go:1:foo", "pkg/b.go:1:bar"}, blocks)
	assert.Len(t, m.Files, 1)
	_, ok := m.Files["other/c.go"]
	assert.True(t, ok)
}

func TestStaleFiles(t *testing.T) {
	m := New("model")
	m.Set("a.go", "hash1", time.Now(), nil)
	m.Set("deleted.go", "hash-old", time.Now(), nil)

	changed, deleted := m.StaleFiles(map[string]string{
		"a.go":   "hash1",
		"new.go": "hash2",
	})
	assert.ElementsMatch(t, []string{"new.go"}, changed)
	assert.ElementsMatch(t, []string{"deleted.go"}, deleted)
}

func TestHashContentDeterministic(t *testing.T) {
	h1 := HashContent([]byte("hello world"))
	h2 := HashContent([]byte("hello world"))
	h3 := HashContent([]byte("different"))
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 16)
}
