package gcs

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrObjectNotFound is returned when the requested object does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrURLNotAllowed is returned by a Fetcher for URLs outside the
	// configured bucket or with a scheme other than http(s).
	ErrURLNotAllowed = errors.New("url not allowed")

	// ErrTooLarge is returned by a Fetcher when a file exceeds its size limit.
	ErrTooLarge = errors.New("file too large")
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Created     time.Time `json:"createdAt"`
}

// ObjectStore provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type ObjectStore interface {
	// Upload stores data under objectName and returns its public URL.
	Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error)

	// Download returns the bytes of an object in the bucket.
	Download(ctx context.Context, objectName string) ([]byte, error)

	// Delete removes an object. A missing object yields ErrObjectNotFound.
	Delete(ctx context.Context, objectName string) error

	// List returns up to limit objects whose name starts with prefix.
	// A limit of zero or less means no limit.
	List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error)

	// SignedUploadURL returns a short-lived URL a client can PUT the object to.
	SignedUploadURL(ctx context.Context, objectName, contentType string, ttl time.Duration) (string, error)

	// URL returns the public URL of an object.
	URL(objectName string) string

	// ObjectName maps a URL handed out by URL back to the object name.
	ObjectName(rawURL string) string
}

// Fetcher downloads a file by URL, returning the bytes and the content type.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}
