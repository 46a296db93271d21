package gcs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryStore(func() time.Time { return now })

	u, err := m.Upload(ctx, "imageBot_generated_image_1", []byte("png"), "image/png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if name := m.ObjectName(u); name != "imageBot_generated_image_1" {
		t.Errorf("ObjectName(%q) = %q", u, name)
	}

	m.Put("other/file.json", []byte("{}"), "application/json", now.Add(-time.Hour))

	objs, err := m.List(ctx, "imageBot", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(objs) != 1 || objs[0].Name != "imageBot_generated_image_1" || !objs[0].Created.Equal(now) {
		t.Errorf("unexpected list result: %+v", objs)
	}

	if err := m.Delete(ctx, "imageBot_generated_image_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := m.Delete(ctx, "imageBot_generated_image_1"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("second Delete = %v, want ErrObjectNotFound", err)
	}
	if got := m.Deletes("imageBot_generated_image_1"); got != 2 {
		t.Errorf("Deletes = %d, want 2", got)
	}

	if _, err := m.Download(ctx, "imageBot_generated_image_1"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Download after delete = %v", err)
	}
	data, err := m.Download(ctx, "other/file.json")
	if err != nil || string(data) != "{}" {
		t.Errorf("Download = %q, %v", data, err)
	}
}

func TestMemoryStore_ListLimit(t *testing.T) {
	m := NewMemoryStore(nil)
	for _, name := range []string{"a/1", "a/2", "a/3", "b/1"} {
		m.Put(name, nil, "", time.Time{})
	}

	objs, _ := m.List(context.Background(), "a/", 2)
	if len(objs) != 2 || objs[0].Name != "a/1" || objs[1].Name != "a/2" {
		t.Errorf("unexpected list result: %+v", objs)
	}
}

type stubFetcher struct{ calls []string }

func (s *stubFetcher) Fetch(_ context.Context, rawURL string) ([]byte, string, error) {
	s.calls = append(s.calls, rawURL)
	return []byte("remote"), "image/jpeg", nil
}

func TestMemoryStore_Fetcher(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(nil)
	m.Put("uploads/a.pdf", []byte("%PDF"), "application/pdf", time.Now())

	next := &stubFetcher{}
	f := m.Fetcher(next)

	data, ct, err := f.Fetch(ctx, m.URL("uploads/a.pdf"))
	if err != nil || string(data) != "%PDF" || ct != "application/pdf" {
		t.Errorf("Fetch(memory) = %q, %q, %v", data, ct, err)
	}
	if _, _, err := f.Fetch(ctx, m.URL("uploads/missing.pdf")); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Fetch(missing) = %v, want ErrObjectNotFound", err)
	}
	if data, _, err := f.Fetch(ctx, "https://example.com/cat.jpg"); err != nil || string(data) != "remote" {
		t.Errorf("Fetch(remote) = %q, %v", data, err)
	}
	if len(next.calls) != 1 {
		t.Errorf("next called %d times, want 1", len(next.calls))
	}
}
