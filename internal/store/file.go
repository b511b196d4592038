package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore writes artifacts into a run directory. Unchanged content is not
// rewritten.
type FileStore struct {
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	hashes map[Artifact]string
	writes int
}

func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{dir: dir, logger: logger, hashes: make(map[Artifact]string)}, nil
}

// Dir returns the run directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file path of an artifact.
func (s *FileStore) Path(a Artifact) string {
	return filepath.Join(s.dir, string(a))
}

func (s *FileStore) Put(ctx context.Context, a Artifact, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hash := ContentHashHex(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hashes[a] == hash {
		s.logger.Debug("artifact unchanged", "artifact", a)
		return nil
	}
	if err := writeFileAtomic(s.Path(a), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", a, err)
	}
	s.hashes[a] = hash
	s.writes++
	s.logger.Debug("artifact written", "artifact", a, "bytes", len(data))
	return nil
}

func (s *FileStore) Get(ctx context.Context, a Artifact) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(a))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Writes returns how many writes reached disk.
func (s *FileStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// writeFileAtomic writes data to a temporary file, fsyncs it and renames it
// over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
