package service

import (
    "context"
    "log/slog"

    "github.com/iliyamo/kmerpro-marketplace/internal/storage"
)

// putFiles stores files under prefix and returns their keys.  On failure
// the files already written are removed again.
func putFiles(ctx context.Context, store storage.BlobStore, prefix string, files []storage.File) ([]string, error) {
    keys := make([]string, 0, len(files))
    for _, f := range files {
        key := storage.NewKey(prefix, f.Name)
        if err := store.Put(ctx, key, f.Body, f.Size, f.ContentType); err != nil {
            dropBlobs(ctx, store, keys)
            return nil, err
        }
        keys = append(keys, key)
    }
    return keys, nil
}

// dropBlobs deletes keys, logging failures.  Rows referencing them are
// already gone, so a leftover blob is only wasted space.
func dropBlobs(ctx context.Context, store storage.BlobStore, keys []string) {
    if store == nil {
        return
    }
    for _, k := range keys {
        if k == "" {
            continue
        }
        if err := store.Delete(ctx, k); err != nil {
            slog.Warn("blob not deleted", "key", k, "error", err)
        }
    }
}

// blobURL resolves key to a URL, or "" when it cannot.
func blobURL(ctx context.Context, store storage.BlobStore, key string) string {
    if store == nil || key == "" {
        return ""
    }
    u, err := store.URL(ctx, key)
    if err != nil {
        slog.Warn("blob url unavailable", "key", key, "error", err)
        return ""
    }
    return u
}
