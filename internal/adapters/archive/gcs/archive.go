// Package gcs keeps normalised receipt photos in a Cloud Storage bucket.
package gcs

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/core/ports/gateways"
	"github.com/SscSPs/shared_expense_bot/internal/middleware"
	"google.golang.org/api/option"
)

const uploadTimeout = 2 * time.Minute

// objectWriter opens a writer for one object. It is the only bucket operation Store needs.
type objectWriter func(ctx context.Context, object string, contentType string) io.WriteCloser

// Archive implements gateways.ReceiptArchive on a GCS bucket.
type Archive struct {
	bucket string
	open   objectWriter
	client *storage.Client
}

var _ gateways.ReceiptArchive = (*Archive)(nil)

// NewArchive creates a storage client for bucket. Without a credentials file the client
// uses Application Default Credentials.
func NewArchive(ctx context.Context, bucket, credentialsFile string) (*Archive, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, apperrors.External("failed to create storage client", err)
	}
	bkt := client.Bucket(bucket)
	a := newArchive(bucket, func(ctx context.Context, object, contentType string) io.WriteCloser {
		w := bkt.Object(object).NewWriter(ctx)
		w.ContentType = contentType
		return w
	})
	a.client = client
	return a, nil
}

func newArchive(bucket string, open objectWriter) *Archive {
	return &Archive{bucket: bucket, open: open}
}

// Store uploads img under key and returns its gs:// URI.
func (a *Archive) Store(ctx context.Context, key string, img domain.ReceiptImage) (string, error) {
	key = strings.TrimPrefix(key, "/")
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.open(ctx, key, img.MIMEType)
	if _, err := io.Copy(w, bytes.NewReader(img.Data)); err != nil {
		_ = w.Close()
		return "", apperrors.External("failed to upload receipt photo "+key, err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", apperrors.External("failed to finalize receipt photo "+key, err)
	}

	uri := "gs://" + a.bucket + "/" + key
	middleware.GetLoggerFromCtx(ctx).Debug("Receipt photo archived", slog.String("uri", uri), slog.Int("bytes", len(img.Data)))
	return uri, nil
}

// Close releases the storage client.
func (a *Archive) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

// Nop stores nothing. It is used when no bucket is configured.
type Nop struct{}

var _ gateways.ReceiptArchive = Nop{}

// Store returns an empty reference.
func (Nop) Store(context.Context, string, domain.ReceiptImage) (string, error) {
	return "", nil
}
