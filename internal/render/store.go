package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

var ErrArtifactNotFound = errors.New("artifact_not_found")

// ArtifactStore persists the last rendered summary image.
type ArtifactStore interface {
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context) ([]byte, time.Time, error)
}

// FileStore keeps the artifact at a fixed path on an afero filesystem.
type FileStore struct {
	fs   afero.Fs
	path string
}

func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: filepath.Clean(path)}
}

func (s *FileStore) Path() string { return s.path }

// Write replaces the artifact through a temp file and rename so readers never
// observe a partial image.
func (s *FileStore) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, ".summary-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

func (s *FileStore) Read(ctx context.Context) ([]byte, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, err
	}
	info, err := s.fs.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, time.Time{}, ErrArtifactNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, time.Time{}, ErrArtifactNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, info.ModTime(), nil
}

var _ ArtifactStore = (*FileStore)(nil)
