// Package imagestore abstracts where entry photos live. The S3 backend is
// used in deployments, the memory backend in tests and local runs.
package imagestore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dalanapp/dalan-go/internal/conf"
	"github.com/dalanapp/dalan-go/internal/errors"
)

// Kind partitions stored objects by purpose.
type Kind string

const (
	KindOriginal  Kind = "original"
	KindAnnotated Kind = "annotated"
)

// Store uploads and fetches entry images by public URL.
type Store interface {
	// Put stores imageData and returns a publicly reachable URL.
	Put(ctx context.Context, kind Kind, userID string, imageData []byte) (string, error)
	// Get fetches the image bytes behind a URL previously returned by Put.
	Get(ctx context.Context, url string) ([]byte, error)
}

// New builds the store selected by settings.imagestore.provider.
func New(ctx context.Context, settings *conf.Settings) (Store, error) {
	switch settings.ImageStore.Provider {
	case "s3":
		return NewS3Store(ctx, settings)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, errors.New(fmt.Errorf("unsupported image store provider: %s", settings.ImageStore.Provider)).
			Component("imagestore").
			Category(errors.CategoryConfiguration).
			Context("provider", settings.ImageStore.Provider).
			Build()
	}
}

// objectKey yields a collision free key scoped to a user and purpose.
func objectKey(kind Kind, userID string) string {
	return fmt.Sprintf("images/%s/%s/%s.jpg", kind, userID, uuid.New())
}
