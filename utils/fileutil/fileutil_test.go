package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSONMissingOrBlank(t *testing.T) {
	dir := t.TempDir()

	var v []string
	found, err := ReadJSON(filepath.Join(dir, "missing.json"), &v)
	require.NoError(t, err)
	assert.False(t, found)

	blank := filepath.Join(dir, "blank.json")
	require.NoError(t, os.WriteFile(blank, []byte("  \n"), 0644))
	found, err = ReadJSON(blank, &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadJSONInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	var v map[string]any
	_, err := ReadJSON(path, &v)
	assert.Error(t, err)
}

func TestWriteJSONKeepsNonASCII(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")

	require.NoError(t, WriteJSON(path, map[string]string{"instruction": "請介紹台北 <html>"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "請介紹台北 <html>")
	assert.Contains(t, string(data), "\n\t\"instruction\"")

	var back map[string]string
	found, err := ReadJSON(path, &back)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "請介紹台北 <html>", back["instruction"])
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0644))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}
