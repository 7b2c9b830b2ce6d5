package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage keeps objects under a directory and serves them from
// baseURL. All file access goes through an os.Root, so no key can reach
// outside the directory.
type LocalStorage struct {
	root     *os.Root
	basePath string
	baseURL  string
	logger   *slog.Logger
}

// NewLocalStorage opens (creating if needed) the storage directory.
func NewLocalStorage(cfg LocalConfig, logger *slog.Logger) (*LocalStorage, error) {
	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage directory: %w", err)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	logger.Info("initialized local storage", "base_path", absPath, "base_url", baseURL)

	return &LocalStorage{
		root:     root,
		basePath: absPath,
		baseURL:  baseURL,
		logger:   logger,
	}, nil
}

// Dir returns the storage directory, for serving it over HTTP.
func (s *LocalStorage) Dir() string {
	return s.basePath
}

// FS returns the storage as a read-only filesystem.
func (s *LocalStorage) FS() fs.FS {
	return s.root.FS()
}

func (s *LocalStorage) Close() error {
	return s.root.Close()
}

func (s *LocalStorage) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ValidKey(key) {
		return &StorageError{Op: "Put", Key: key, Err: ErrInvalidKey}
	}

	if !opts.Overwrite {
		if _, err := s.root.Stat(key); err == nil {
			return &StorageError{Op: "Put", Key: key, Err: ErrKeyExists}
		}
	}

	if err := s.mkdirAll(path.Dir(key)); err != nil {
		return &StorageError{Op: "Put", Key: key, Err: fmt.Errorf("failed to create directory: %w", err)}
	}

	file, err := s.root.Create(key)
	if err != nil {
		return &StorageError{Op: "Put", Key: key, Err: fmt.Errorf("failed to create file: %w", err)}
	}

	src := data
	if opts.MaxSize > 0 {
		src = io.LimitReader(data, opts.MaxSize+1)
	}
	written, err := io.Copy(file, src)
	closeErr := file.Close()

	switch {
	case err != nil:
		_ = s.root.Remove(key)
		return &StorageError{Op: "Put", Key: key, Err: fmt.Errorf("failed to write file: %w", err)}
	case opts.MaxSize > 0 && written > opts.MaxSize:
		_ = s.root.Remove(key)
		return &StorageError{Op: "Put", Key: key, Err: ErrTooLarge}
	case closeErr != nil:
		_ = s.root.Remove(key)
		return &StorageError{Op: "Put", Key: key, Err: fmt.Errorf("failed to close file: %w", closeErr)}
	}

	s.logger.Debug("stored file", "key", key, "size", written)
	return nil
}

// mkdirAll creates dir and its parents inside the root.
func (s *LocalStorage) mkdirAll(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	current := ""
	for _, part := range strings.Split(dir, "/") {
		current = path.Join(current, part)
		if err := s.root.Mkdir(current, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	if !ValidKey(key) {
		return nil, ObjectInfo{}, &StorageError{Op: "Get", Key: key, Err: ErrInvalidKey}
	}

	file, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, &StorageError{Op: "Get", Key: key, Err: ErrNotFound}
		}
		return nil, ObjectInfo{}, &StorageError{Op: "Get", Key: key, Err: fmt.Errorf("failed to open file: %w", err)}
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, ObjectInfo{}, &StorageError{Op: "Get", Key: key, Err: fmt.Errorf("failed to stat file: %w", err)}
	}

	return file, ObjectInfo{
		Key:          key,
		Size:         stat.Size(),
		ContentType:  DetectContentType("", key, nil),
		LastModified: stat.ModTime(),
	}, nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ValidKey(key) {
		return &StorageError{Op: "Delete", Key: key, Err: ErrInvalidKey}
	}

	if err := s.root.Remove(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &StorageError{Op: "Delete", Key: key, Err: fmt.Errorf("failed to delete file: %w", err)}
	}
	return nil
}

// URL returns the public URL; local files never expire.
func (s *LocalStorage) URL(ctx context.Context, key string, _ time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !ValidKey(key) {
		return "", &StorageError{Op: "URL", Key: key, Err: ErrInvalidKey}
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !ValidKey(key) {
		return false, &StorageError{Op: "Exists", Key: key, Err: ErrInvalidKey}
	}

	if _, err := s.root.Stat(key); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &StorageError{Op: "Exists", Key: key, Err: fmt.Errorf("failed to stat file: %w", err)}
	}
	return true, nil
}

var _ Storage = (*LocalStorage)(nil)
