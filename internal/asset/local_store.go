package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore writes assets below a directory that the HTTP server exposes
// under baseURL. It is meant for development and single-node deployments.
type LocalStore struct {
	validator *PathValidator
	baseURL   string
	now       func() time.Time
}

func NewLocalStore(root string, baseURL string) (*LocalStore, error) {
	validator, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(validator.RootAbs(), 0o755); err != nil {
		return nil, fmt.Errorf("create asset root: %w", err)
	}

	return &LocalStore{
		validator: validator,
		baseURL:   strings.TrimRight(baseURL, "/"),
		now:       time.Now,
	}, nil
}

func (s *LocalStore) RootAbs() string {
	return s.validator.RootAbs()
}

func (s *LocalStore) Put(ctx context.Context, upload Upload) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}

	key := objectKey(upload.Kind, upload.Filename, s.now())
	resolved, err := s.validator.ResolveKey(key)
	if err != nil {
		return Asset{}, err
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return Asset{}, fmt.Errorf("create parent directory: %w", err)
	}

	file, err := os.OpenFile(resolved, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return Asset{}, fmt.Errorf("create %q: %w", key, err)
	}

	written, copyErr := io.Copy(file, upload.Body)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(resolved)
		return Asset{}, fmt.Errorf("write %q: %w", key, errors.Join(copyErr, closeErr))
	}

	return Asset{
		Key:         key,
		URL:         s.baseURL + "/" + key,
		ContentType: upload.ContentType,
		Size:        written,
	}, nil
}

func (s *LocalStore) Delete(_ context.Context, url string) error {
	key, ok := keyFromURL(s.baseURL, url)
	if !ok {
		return nil
	}

	resolved, err := s.validator.ResolveKey(key)
	if err != nil {
		return err
	}

	if err := os.Remove(resolved); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", key, err)
	}

	return nil
}
