package gcs

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an ObjectStore kept in process memory. It backs local
// development runs without a bucket and the package tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	deletes map[string]int
	now     func() time.Time

	// DeleteErr, when set, is returned by Delete for every object.
	DeleteErr error
}

type memoryObject struct {
	data        []byte
	contentType string
	created     time.Time
}

// NewMemoryStore creates an empty store. now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		deletes: make(map[string]int),
		now:     now,
	}
}

// Put stores an object with an explicit creation time.
func (m *MemoryStore) Put(objectName string, data []byte, contentType string, created time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectName] = memoryObject{data: append([]byte(nil), data...), contentType: contentType, created: created}
}

// Has reports whether the object exists.
func (m *MemoryStore) Has(objectName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[objectName]
	return ok
}

// Deletes returns how many times Delete was called for objectName.
func (m *MemoryStore) Deletes(objectName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes[objectName]
}

// Upload implements ObjectStore.
func (m *MemoryStore) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	m.Put(objectName, data, contentType, m.now())
	return m.URL(objectName), nil
}

// Download implements ObjectStore.
func (m *MemoryStore) Download(ctx context.Context, objectName string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[objectName]
	if !ok {
		return nil, fmt.Errorf("Download: %s: %w", objectName, ErrObjectNotFound)
	}
	return append([]byte(nil), obj.data...), nil
}

// Delete implements ObjectStore.
func (m *MemoryStore) Delete(ctx context.Context, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes[objectName]++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.objects[objectName]; !ok {
		return fmt.Errorf("Delete: %s: %w", objectName, ErrObjectNotFound)
	}
	delete(m.objects, objectName)
	return nil
}

// List implements ObjectStore. Objects are returned in name order.
func (m *MemoryStore) List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := []ObjectInfo{}
	for _, name := range names {
		if limit > 0 && len(out) >= limit {
			break
		}
		obj := m.objects[name]
		out = append(out, ObjectInfo{
			Name:        name,
			URL:         m.URL(name),
			ContentType: obj.contentType,
			Size:        int64(len(obj.data)),
			Created:     obj.created,
		})
	}
	return out, nil
}

// SignedUploadURL implements ObjectStore. The URL is not backed by a server.
func (m *MemoryStore) SignedUploadURL(ctx context.Context, objectName, contentType string, ttl time.Duration) (string, error) {
	q := url.Values{}
	q.Set("expires", m.now().Add(ttl).UTC().Format(time.RFC3339))
	q.Set("content_type", contentType)
	return m.URL(objectName) + "?" + q.Encode(), nil
}

// URL implements ObjectStore.
func (m *MemoryStore) URL(objectName string) string {
	return "memory://" + objectName
}

// ObjectName implements ObjectStore.
func (m *MemoryStore) ObjectName(rawURL string) string {
	name := strings.TrimPrefix(rawURL, "memory://")
	return strings.SplitN(name, "?", 2)[0]
}

// Fetcher returns a Fetcher that serves memory:// URLs from the store and
// passes every other URL to next.
func (m *MemoryStore) Fetcher(next Fetcher) Fetcher {
	return memoryFetcher{store: m, next: next}
}

type memoryFetcher struct {
	store *MemoryStore
	next  Fetcher
}

func (f memoryFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if !strings.HasPrefix(rawURL, "memory://") {
		if f.next == nil {
			return nil, "", fmt.Errorf("Fetch: unsupported URL %q", rawURL)
		}
		return f.next.Fetch(ctx, rawURL)
	}

	name := f.store.ObjectName(rawURL)
	f.store.mu.Lock()
	obj, ok := f.store.objects[name]
	f.store.mu.Unlock()
	if !ok {
		return nil, "", fmt.Errorf("Fetch: %s: %w", name, ErrObjectNotFound)
	}
	return append([]byte(nil), obj.data...), obj.contentType, nil
}

var _ ObjectStore = (*MemoryStore)(nil)
