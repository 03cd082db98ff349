// Package storage keeps uploaded files (gallery photos, credentials,
// message attachments) outside the database.  Records only hold the key
// returned by NewKey.
package storage

import (
    "context"
    "io"
    "path/filepath"
    "strings"

    "github.com/google/uuid"
)

// BlobStore stores and serves uploaded files by key.
type BlobStore interface {
    Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
    URL(ctx context.Context, key string) (string, error)
    Delete(ctx context.Context, key string) error
}

// File is one uploaded file on its way to a BlobStore.
type File struct {
    Name        string
    ContentType string
    Size        int64
    Body        io.Reader
}

// NewKey builds a collision-free key under prefix, keeping the lower-cased
// extension of the original file name.
func NewKey(prefix, filename string) string {
    ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
    if len(ext) > 10 {
        ext = ""
    }
    prefix = strings.Trim(prefix, "/")
    if prefix == "" {
        return uuid.NewString() + ext
    }
    return prefix + "/" + uuid.NewString() + ext
}

// IsImage reports whether contentType is an image MIME type.
func IsImage(contentType string) bool {
    return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
