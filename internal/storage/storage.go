package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"spendview/internal/domain"
)

// BlobStore define el contrato comun para guardar archivos subidos y exponer su URL publica.
type BlobStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (domain.BlobRef, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

var ErrInvalidKey = errors.New("invalid blob key")

// NewKey arma la key uploads/<kind>/<uuid>.<ext>.
func NewKey(kind domain.BlobKind, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("uploads/%s/%s.%s", kind, uuid.NewString(), ext)
}

// validateKey rechaza keys vacias o que intenten salir del prefijo.
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
