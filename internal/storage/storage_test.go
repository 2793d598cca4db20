package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStoreWritesFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStore(dir)
	require.NoError(t, err)

	ref, err := s.Store(context.Background(), "speech-abc.mp3", []byte("audio-bytes"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "speech-abc.mp3"), ref)

	data, err := os.ReadFile(ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("audio-bytes"), data)
}

func TestFSStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "audio")
	_, err := NewFSStore(dir)
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFSStoreFailsOnUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.Chmod(dir, 0o500))
	defer os.Chmod(dir, 0o755)

	_, err = s.Store(context.Background(), "x.mp3", []byte("a"))
	assert.Error(t, err)
}
