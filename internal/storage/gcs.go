package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/joseph-ayodele/docintake/internal/common"
)

// GCS stores blobs as objects in one bucket. The handle is the object name.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	logger *slog.Logger
}

// NewGCS uses application default credentials.
func NewGCS(ctx context.Context, bucket string, logger *slog.Logger) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("gcs: bucket is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(bucket), logger: logger}, nil
}

func (g *GCS) Close() error { return g.client.Close() }

// Put never overwrites an existing object.
func (g *GCS) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	w := g.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", g.writeError(key, err)
	}
	if err := w.Close(); err != nil {
		return "", g.writeError(key, err)
	}
	g.logger.Debug("storage.gcs.put", "object", key, "bytes", len(data))
	return key, nil
}

func (g *GCS) writeError(key string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("%w: object %q already exists", common.ErrConflict, key)
	}
	g.logger.Error("storage.gcs.write_failed", "object", key, "error", err)
	return fmt.Errorf("%w: write %q: %w", common.ErrStorage, key, err)
}

func (g *GCS) Get(ctx context.Context, handle string) ([]byte, error) {
	r, err := g.bucket.Object(handle).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("object %q: %w", handle, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %w", common.ErrStorage, handle, err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %w", common.ErrStorage, handle, err)
	}
	return b, nil
}

func (g *GCS) Delete(ctx context.Context, handle string) error {
	err := g.bucket.Object(handle).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: delete %q: %w", common.ErrStorage, handle, err)
	}
	g.logger.Debug("storage.gcs.delete", "object", handle)
	return nil
}
