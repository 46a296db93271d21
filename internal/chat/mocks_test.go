package chat

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/dvloznov/imagexbot/internal/jobs"
)

type generateCall struct {
	Model    string
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// MockGenerator is a mock implementation of llm.Generator for testing.
type MockGenerator struct {
	GenerateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

	mu    sync.Mutex
	Calls []generateCall
}

func (m *MockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, generateCall{Model: model, Contents: contents, Config: config})
	m.mu.Unlock()
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, model, contents, config)
	}
	return nil, errors.New("not implemented")
}

func (m *MockGenerator) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		yield(nil, errors.New("not implemented"))
	}
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
	return nil, "", errors.New("not implemented")
}

func textResponse(text string, prompt, completion int32) *genai.GenerateContentResponse {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
	if prompt > 0 || completion > 0 {
		resp.UsageMetadata = &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     prompt,
			CandidatesTokenCount: completion,
		}
	}
	return resp
}

func partsResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: parts},
		}},
	}
}
