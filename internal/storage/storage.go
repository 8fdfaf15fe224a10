package storage

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// BlobStore keeps uploaded file bytes. Handles are opaque to callers.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (handle string, err error)
	Get(ctx context.Context, handle string) ([]byte, error)
	// Delete is idempotent: deleting a missing blob is not an error.
	Delete(ctx context.Context, handle string) error
}

const keyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewKey builds "<prefix>/<unix-ms>-<random>.<ext>".
func NewKey(prefix, ext string, now time.Time) string {
	var b strings.Builder
	for range 8 {
		b.WriteByte(keyAlphabet[rand.IntN(len(keyAlphabet))])
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	key := fmt.Sprintf("%d-%s", now.UnixMilli(), b.String())
	if ext != "" {
		key += "." + ext
	}
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	return key
}
