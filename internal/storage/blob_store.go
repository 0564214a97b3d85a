package storage

import (
	"context"
	"path"
	"strings"

	inbox_errors "tenant-inbox/pkg/errors"
)

// BlobStore persists attachment bytes under a slash separated key.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns ErrNotFound when nothing is stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// CleanKey rejects keys that could escape the store root.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasPrefix(key, `\`) {
		return "", inbox_errors.ErrInvalidInput
	}
	if strings.Contains(key, "..") || strings.ContainsRune(key, '\x00') || strings.Contains(key, `\`) {
		return "", inbox_errors.ErrInvalidInput
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned != key {
		return "", inbox_errors.ErrInvalidInput
	}
	return cleaned, nil
}
