package gcsuploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/imagexbot/internal/gcs"
)

const publicHost = "storage.googleapis.com"

// Store is the Google Cloud Storage implementation of gcs.ObjectStore.
// It holds a single client that is safe for concurrent use.
type Store struct {
	client *storage.Client
	bucket string
}

// New creates a Store for bucket. It assumes Application Default Credentials
// are configured (gcloud auth application-default login).
func New(ctx context.Context, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("New: bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("New: create storage client: %w", err)
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// Upload implements gcs.ObjectStore.
func (s *Store) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Upload: write %s: %w", objectName, err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Upload: finalize %s: %w", objectName, err)
	}

	return s.URL(objectName), nil
}

// UploadFile uploads a local file under the given object name.
func (s *Store) UploadFile(ctx context.Context, objectName, filePath, contentType string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("UploadFile: copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("UploadFile: finalize upload: %w", err)
	}

	return s.URL(objectName), nil
}

// Download implements gcs.ObjectStore.
func (s *Store) Download(ctx context.Context, objectName string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("Download: %s: %w", objectName, gcs.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("Download: open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Download: read GCS object: %w", err)
	}

	return data, nil
}

// Delete implements gcs.ObjectStore.
func (s *Store) Delete(ctx context.Context, objectName string) error {
	err := s.client.Bucket(s.bucket).Object(objectName).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("Delete: %s: %w", objectName, gcs.ErrObjectNotFound)
	}
	if err != nil {
		return fmt.Errorf("Delete: %s: %w", objectName, err)
	}
	return nil
}

// List implements gcs.ObjectStore.
func (s *Store) List(ctx context.Context, prefix string, limit int) ([]gcs.ObjectInfo, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	objects := []gcs.ObjectInfo{}
	for limit <= 0 || len(objects) < limit {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("List: iterating %q: %w", prefix, err)
		}
		objects = append(objects, gcs.ObjectInfo{
			Name:        attrs.Name,
			URL:         s.URL(attrs.Name),
			ContentType: attrs.ContentType,
			Size:        attrs.Size,
			Created:     attrs.Created,
		})
	}

	return objects, nil
}

// SignedUploadURL implements gcs.ObjectStore using a V4 signed PUT URL.
func (s *Store) SignedUploadURL(ctx context.Context, objectName, contentType string, ttl time.Duration) (string, error) {
	u, err := s.client.Bucket(s.bucket).SignedURL(objectName, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      "PUT",
		ContentType: contentType,
		Expires:     time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("SignedUploadURL: signing %s: %w", objectName, err)
	}
	return u, nil
}

// URL implements gcs.ObjectStore.
func (s *Store) URL(objectName string) string {
	return PublicURL(s.bucket, objectName)
}

// ObjectName implements gcs.ObjectStore.
func (s *Store) ObjectName(rawURL string) string {
	return ObjectNameFromURL(rawURL, s.bucket)
}

// PublicURL returns the https URL of an object in a publicly readable bucket.
func PublicURL(bucket, objectName string) string {
	return (&url.URL{Scheme: "https", Host: publicHost, Path: "/" + bucket + "/" + objectName}).String()
}

// ParseGCSURI splits "gs://bucket/path/to/file.pdf" into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("ParseGCSURI: invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("ParseGCSURI: invalid GCS URI (no object path): %s", uri)
	}

	return parts[0], parts[1], nil
}

// ObjectNameFromURL derives the object name of bucket from a URL that was
// handed out to a client. gs:// URIs and storage.googleapis.com URLs map to
// their object path. Any other URL falls back to its base name without the
// extension, which is how public IDs were derived from delivery URLs.
func ObjectNameFromURL(rawURL, bucket string) string {
	if b, obj, err := ParseGCSURI(rawURL); err == nil {
		if bucket == "" || b == bucket {
			return obj
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		base := path.Base(strings.SplitN(rawURL, "?", 2)[0])
		return strings.TrimSuffix(base, path.Ext(base))
	}

	p := strings.TrimPrefix(u.Path, "/")
	switch {
	case u.Host == publicHost && strings.HasPrefix(p, bucket+"/"):
		return strings.TrimPrefix(p, bucket+"/")
	case u.Host == bucket+"."+publicHost && p != "":
		return p
	}

	base := path.Base(u.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Ensure Store implements gcs.ObjectStore.
var _ gcs.ObjectStore = (*Store)(nil)
