package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"operator-verify/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Save(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)

	path, err := store.Save(context.Background(), "jules-scratch/verification/locked_screen.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "jules-scratch/verification/locked_screen.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_Save_Unwritable(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file, not dir"), 0644))

	store := NewFileStore(root)
	_, err := store.Save(context.Background(), "blocker/shot.png", []byte("png"))
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrArtifact)
}

func TestFileStore_Save_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileStore(t.TempDir()).Save(ctx, "shot.png", []byte("png"))
	assert.ErrorIs(t, err, context.Canceled)
}
