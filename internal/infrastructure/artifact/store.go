package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"operator-verify/internal/application/port/output"
	"operator-verify/internal/domain/entity"
)

var _ output.ArtifactPort = (*FileStore)(nil)

// FileStore writes artifacts relative to Root; absolute paths are kept as is.
type FileStore struct {
	Root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{Root: root}
}

func (s *FileStore) Save(ctx context.Context, path string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if !filepath.IsAbs(path) && s.Root != "" {
		path = filepath.Join(s.Root, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("%w: create dir for %s: %v", entity.ErrArtifact, path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", entity.ErrArtifact, path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("%w: rename %s: %v", entity.ErrArtifact, path, err)
	}

	return path, nil
}
