package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/imagexbot/internal/gcs"
)

// DefaultMaxDownload caps the size of a fetched file.
const DefaultMaxDownload int64 = 20 << 20

// Downloader fetches files referenced by URL. gs:// URIs are read through the
// storage client and only from its own bucket; anything else must be http or
// https.
type Downloader struct {
	storage  *storage.Client
	bucket   string
	http     *http.Client
	maxBytes int64
}

// NewDownloader creates a Downloader reading gs:// URIs of bucket only.
// storageClient may be nil, in which case gs:// URIs are rejected.
func NewDownloader(storageClient *storage.Client, bucket string, httpClient *http.Client) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Downloader{storage: storageClient, bucket: bucket, http: httpClient, maxBytes: DefaultMaxDownload}
}

// Downloader returns a Downloader sharing the Store's storage client and
// bucket.
func (s *Store) Downloader(httpClient *http.Client) *Downloader {
	return NewDownloader(s.client, s.bucket, httpClient)
}

// Fetch implements gcs.Fetcher. The content type is taken from the object
// metadata or response header, falling back to sniffing the bytes.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if bucket, object, err := ParseGCSURI(rawURL); err == nil {
		if d.bucket == "" || bucket != d.bucket {
			return nil, "", fmt.Errorf("Fetch: bucket %q: %w", bucket, gcs.ErrURLNotAllowed)
		}
		return d.fetchGCS(ctx, bucket, object)
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, "", fmt.Errorf("Fetch: %q: %w", rawURL, gcs.ErrURLNotAllowed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("Fetch: building request: %w", err)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("Fetch: GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("Fetch: GET %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	data, err := d.read(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("Fetch: reading body: %w", err)
	}

	return data, contentType(resp.Header.Get("Content-Type"), data), nil
}

func (d *Downloader) fetchGCS(ctx context.Context, bucket, object string) ([]byte, string, error) {
	if d.storage == nil {
		return nil, "", fmt.Errorf("Fetch: no storage client for gs://%s/%s", bucket, object)
	}

	r, err := d.storage.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	data, err := d.read(r)
	if err != nil {
		return nil, "", fmt.Errorf("Fetch: reading bytes: %w", err)
	}

	return data, contentType(r.Attrs.ContentType, data), nil
}

// read reads at most maxBytes, failing with gcs.ErrTooLarge past that.
func (d *Downloader) read(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, d.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("over %d bytes: %w", d.maxBytes, gcs.ErrTooLarge)
	}
	return data, nil
}

func contentType(declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return http.DetectContentType(data)
}

// Ensure Downloader implements gcs.Fetcher.
var _ gcs.Fetcher = (*Downloader)(nil)
