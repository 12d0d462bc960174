package main

import (
	"bytes"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionJSON(t *testing.T) {
	out, err := run(t, "version", "--json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, sonic.ConfigStd.UnmarshalFromString(out, &info))
	assert.Equal(t, Version, info["version"])
	assert.Equal(t, Commit, info["commit"])
}

func TestFSCommandsPersist(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()

	out, err := run(t, "fs", "--storage-dir", dir, "-u", "alice", "ls", "/users/alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Desktop/")
	assert.Contains(t, out, "Documents/")

	out, err = run(t, "fs", "--storage-dir", dir, "write", "/users/alice/Documents/todo.txt", "milk")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote /users/alice/Documents/todo.txt (4 bytes)")

	out, err = run(t, "fs", "--storage-dir", dir, "cat", "/users/alice/Documents/todo.txt")
	require.NoError(t, err)
	assert.Equal(t, "milk\n", out)

	_, err = run(t, "fs", "--storage-dir", dir, "rm", "/users/alice/Documents/todo.txt")
	require.NoError(t, err)

	_, err = run(t, "fs", "--storage-dir", dir, "cat", "/users/alice/Documents/todo.txt")
	assert.Error(t, err)
}
