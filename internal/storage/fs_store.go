package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
	"go.uber.org/zap"
)

const (
	fileSuffix = ".json"
	filePerm   = 0o600
	dirPerm    = 0o700
)

// FileStore keeps every key in its own file on a hackpadfs file system.
type FileStore struct {
	fs     hackpadfs.FS
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore wraps an existing hackpadfs file system. Keys are written at its root.
func NewFileStore(fileSystem hackpadfs.FS, logger *zap.Logger) (*FileStore, error) {
	if fileSystem == nil {
		return nil, errors.New("storage: file system is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{fs: fileSystem, logger: logger}, nil
}

// OpenDirectory creates dataDir on the host file system when missing and returns a
// FileStore rooted there.
func OpenDirectory(dataDir string, logger *zap.Logger) (*FileStore, error) {
	absolute, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve %s: %w", dataDir, err)
	}
	host := osfs.NewFS()
	root, err := host.FromOSPath(absolute)
	if err != nil {
		return nil, fmt.Errorf("storage: map %s: %w", absolute, err)
	}
	if err := hackpadfs.MkdirAll(host, root, dirPerm); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", absolute, err)
	}
	sub, err := host.Sub(root)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", absolute, err)
	}
	return NewFileStore(sub, logger)
}

// Get reads the file that backs key.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := hackpadfs.ReadFile(s.fs, key+fileSuffix)
	if errors.Is(err, hackpadfs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}

// Set replaces the file that backs key.
func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := hackpadfs.WriteFullFile(s.fs, key+fileSuffix, value, filePerm); err != nil {
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	s.logger.Debug("storage value written",
		zap.String("key", key),
		zap.Int("bytes", len(value)))
	return nil
}
