// Package documents stores the files that accompany HR processes (resumes,
// contracts, offer letters) behind a pluggable storage driver. Uploaded
// document URLs are typically written into workflow instance metadata so
// guard conditions such as "resumeUrl exists" can see them.
package documents

import (
	"context"
	"io"
	"time"
)

// StorageDriver defines how we interact with the binary storage
type StorageDriver interface {
	// Save writes the content to the storage under the given key
	Save(ctx context.Context, key string, body io.Reader, contentType string) error

	// Get returns a ReadCloser to stream the file back and its content type
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)

	// Delete removes the file
	Delete(ctx context.Context, key string) error

	// GenerateURL returns a public-facing URL
	GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
