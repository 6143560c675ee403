// Package archive stores successfully processed statement PDFs in a GCS
// bucket for later re-processing or audit.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// GCSArchiver uploads raw attachment bytes to a bucket. It assumes
// Application Default Credentials are configured.
type GCSArchiver struct {
	bucket string
}

func NewGCSArchiver(bucket string) *GCSArchiver {
	return &GCSArchiver{bucket: bucket}
}

// Archive uploads the attachment under a date-partitioned object name and
// returns the resulting gs:// URI.
func (a *GCSArchiver) Archive(ctx context.Context, filename string, data []byte) (string, error) {
	objectName := fmt.Sprintf("statements/%s/%s-%s",
		time.Now().Format("2006/01/02"), uuid.NewString(), filepath.Base(filename))

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("archive: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/pdf"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("archive: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("archive: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName), nil
}
