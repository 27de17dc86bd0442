package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/pageindex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "db")
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
	info, err := os.Stat(tmpDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0644))

	_, err := OpenBackend(tmpFile, false)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)

	assert.False(t, backend.IsClosed())

	err = backend.Close()
	require.NoError(t, err)

	assert.True(t, backend.IsClosed())

	_, err = backend.CountPrefix(context.Background(), cacheEntryPrefix)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestBackend_CancelledContext(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = backend.CountPrefix(ctx, cacheEntryPrefix)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, backend.DropPrefix(ctx, cacheEntryPrefix), context.Canceled)
}

func TestOpenRepositories_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cacheRepo, historyRepo, backend, err := OpenRepositories(dir)
	require.NoError(t, err)
	_, err = cacheRepo.PutEntry(ctx, newEntry("k1", "what is pmf"))
	require.NoError(t, err)
	require.NoError(t, historyRepo.Close())
	require.NoError(t, cacheRepo.Close())
	require.NoError(t, backend.Close())

	cacheRepo, historyRepo, backend, err = OpenRepositories(dir)
	require.NoError(t, err)
	defer func() {
		historyRepo.Close()
		cacheRepo.Close()
		backend.Close()
	}()

	got, err := cacheRepo.GetEntry(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "what is pmf", got.NormalizedQuery)

	// Sequence numbers keep increasing across reopen.
	second, err := cacheRepo.PutEntry(ctx, newEntry("k2", "growth loops"))
	require.NoError(t, err)
	assert.Greater(t, second.Seq, got.Seq)
}
