package pipeline

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/dvloznov/imagexbot/internal/jobs"
)

// MockGenerator is a mock implementation of llm.Generator for testing.
type MockGenerator struct {
	GenerateContentFunc       func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStreamFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

func (m *MockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, model, contents, config)
	}
	return nil, errors.New("not implemented")
}

func (m *MockGenerator) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	if m.GenerateContentStreamFunc != nil {
		return m.GenerateContentStreamFunc(ctx, model, contents, config)
	}
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		yield(nil, errors.New("not implemented"))
	}
}

// MockFileService serves scripted file states. Each Get returns the next
// state for the file until the script runs out, then repeats the last one.
type MockFileService struct {
	States    map[string][]genai.FileState
	UploadErr error

	mu      sync.Mutex
	uploads []*genai.UploadFileConfig
	gets    map[string]int
	next    int
}

func (m *MockFileService) Upload(ctx context.Context, r io.Reader, config *genai.UploadFileConfig) (*genai.File, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return nil, m.UploadErr
	}
	m.uploads = append(m.uploads, config)
	m.next++
	name := "files/" + string(rune('a'+m.next-1))
	return &genai.File{Name: name, State: genai.FileStateProcessing}, nil
}

func (m *MockFileService) Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gets == nil {
		m.gets = make(map[string]int)
	}
	script, ok := m.States[name]
	if !ok || len(script) == 0 {
		script = []genai.FileState{genai.FileStateActive}
	}
	i := m.gets[name]
	m.gets[name]++
	if i >= len(script) {
		i = len(script) - 1
	}
	return &genai.File{
		Name:     name,
		URI:      "https://files.example/" + name,
		MIMEType: "application/pdf",
		State:    script[i],
	}, nil
}

func (m *MockFileService) Gets(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets[name]
}

func (m *MockFileService) Uploads() []*genai.UploadFileConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*genai.UploadFileConfig(nil), m.uploads...)
}

type scheduled struct {
	Object string
	Kind   jobs.ArtifactKind
	Delay  time.Duration
}

// MockScheduler records armed deletions.
type MockScheduler struct {
	mu    sync.Mutex
	Armed []scheduled
}

func (m *MockScheduler) Schedule(ctx context.Context, objectName string, kind jobs.ArtifactKind, delay time.Duration) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Armed = append(m.Armed, scheduled{Object: objectName, Kind: kind, Delay: delay})
	return "job"
}

// MockFetcher is a mock implementation of gcs.Fetcher.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, rawURL string) ([]byte, string, error)
}

func (m *MockFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, rawURL)
	}
	return []byte("%PDF-1.4"), "application/pdf", nil
}

// recordingSleep returns a Sleep that never blocks and counts its calls.
func recordingSleep(calls *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*calls = append(*calls, d)
		return ctx.Err()
	}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
}
