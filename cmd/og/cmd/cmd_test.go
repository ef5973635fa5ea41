package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProjectFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func runCmd(t *testing.T, args ...string) (string, int) {
	t.Helper()
	rootPath = ""
	searchScope = ""
	exitCode = ExitMatch

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err := root.Execute()
	code := ExitMatch
	if err != nil {
		code = ExitError
	} else {
		code = exitCode
	}
	return buf.String(), code
}

func TestBuildThenStatusThenSearch(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "greeter.go", "package main\n\nfunc GreetUser(name string) string {\n\treturn name\n}\n")

	out, code := runCmd(t, "build", "--root", dir)
	require.Equal(t, ExitMatch, code, out)
	assert.Contains(t, out, "indexed 1 files")

	out, code = runCmd(t, "status", "--root", dir)
	require.Equal(t, ExitMatch, code, out)
	assert.Contains(t, out, "blocks")

	out, code = runCmd(t, "search", "--root", dir, "GreetUser")
	require.Equal(t, ExitMatch, code, out)
	assert.Contains(t, out, "GreetUser")
}

func TestSearchWithNoIndexErrors(t *testing.T) {
	dir := t.TempDir()
	_, code := runCmd(t, "search", "--root", dir, "anything")
	assert.Equal(t, ExitError, code)
}

func TestClearRemovesIndex(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "a.go", "package main\n\nfunc A() {}\n")

	_, code := runCmd(t, "build", "--root", dir)
	require.Equal(t, ExitMatch, code)

	out, code := runCmd(t, "clear", "--root", dir)
	require.Equal(t, ExitMatch, code, out)

	_, err := os.Stat(filepath.Join(dir, ".og", "manifest.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestSearchNoResultsExitsWithNoMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	writeProjectFile(t, dir, "a.go", "package main\n\nfunc A() {}\n")
	_, code := runCmd(t, "build", "--root", dir)
	require.Equal(t, ExitMatch, code)

	require.NoError(t, os.Remove(path))
	out, code := runCmd(t, "build", "--root", dir)
	require.Equal(t, ExitMatch, code, out)
	assert.Contains(t, out, "1 deleted")

	out, code = runCmd(t, "search", "--root", dir, "A")
	assert.Equal(t, ExitNoMatch, code, out)
}
