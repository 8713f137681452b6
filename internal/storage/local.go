package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"spendview/internal/domain"
)

// LocalStore guarda los archivos en disco; el router los sirve bajo publicBaseURL.
type LocalStore struct {
	root          string
	publicBaseURL string
}

func NewLocalStore(root, publicBaseURL string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("local storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	if publicBaseURL == "" {
		publicBaseURL = "/files"
	}
	return &LocalStore{root: root, publicBaseURL: publicBaseURL}, nil
}

// Root devuelve el directorio base, para montarlo como estatico.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (domain.BlobRef, error) {
	if err := validateKey(key); err != nil {
		return domain.BlobRef{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.BlobRef{}, err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return domain.BlobRef{}, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return domain.BlobRef{}, err
	}
	defer out.Close()

	written, err := io.Copy(out, reader)
	if err != nil {
		_ = os.Remove(dst)
		return domain.BlobRef{}, err
	}

	return domain.BlobRef{
		Key:         key,
		URL:         s.URL(key),
		ContentType: contentType,
		Size:        written,
	}, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *LocalStore) URL(key string) string {
	return joinURL(s.publicBaseURL, key)
}
