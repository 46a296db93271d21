package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/imagexbot/internal/auth"
	"github.com/dvloznov/imagexbot/internal/chat"
	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/notionsync"
	"github.com/dvloznov/imagexbot/internal/pipeline"
)

// MockChatService is a mock implementation of ChatService.
type MockChatService struct {
	UploadFunc func(ctx context.Context, req chat.UploadRequest) (*chat.Exchange, error)
	TurnsFunc  func(ctx context.Context, userID string) ([]*domain.Turn, error)

	Uploads []chat.UploadRequest
}

func (m *MockChatService) Upload(ctx context.Context, req chat.UploadRequest) (*chat.Exchange, error) {
	m.Uploads = append(m.Uploads, req)
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, req)
	}
	return &chat.Exchange{
		Mode: chat.ModeText,
		User: &domain.Turn{ID: "t1", UserID: req.UserID, Content: req.Context, Role: domain.RoleUser},
		AI:   &domain.Turn{ID: "t2", UserID: req.UserID, Content: "hi", Role: domain.RoleBot},
	}, nil
}

func (m *MockChatService) Turns(ctx context.Context, userID string) ([]*domain.Turn, error) {
	if m.TurnsFunc != nil {
		return m.TurnsFunc(ctx, userID)
	}
	return nil, nil
}

// MockAuthenticator is a mock implementation of Authenticator.
type MockAuthenticator struct {
	LoginFunc func(ctx context.Context, in auth.LoginInput) (*auth.LoginResult, error)
}

func (m *MockAuthenticator) Login(ctx context.Context, in auth.LoginInput) (*auth.LoginResult, error) {
	return m.LoginFunc(ctx, in)
}

// MockAnalyzer is a mock implementation of StatementAnalyzer.
type MockAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, sources []pipeline.SourceFile) (*domain.Statement, error)
}

func (m *MockAnalyzer) Analyze(ctx context.Context, sources []pipeline.SourceFile) (*domain.Statement, error) {
	return m.AnalyzeFunc(ctx, sources)
}

// MockStreamer yields Chunks, then Err if set.
type MockStreamer struct {
	Chunks []string
	Err    error

	Requests []pipeline.FollowUpRequest
}

func (m *MockStreamer) Stream(ctx context.Context, req pipeline.FollowUpRequest) iter.Seq2[string, error] {
	m.Requests = append(m.Requests, req)
	return func(yield func(string, error) bool) {
		for _, c := range m.Chunks {
			if !yield(c, nil) {
				return
			}
		}
		if m.Err != nil {
			yield("", m.Err)
		}
	}
}

// MockExporter is a mock implementation of StatementExporter.
type MockExporter struct {
	ExportFunc func(ctx context.Context, st *domain.Statement, dryRun bool) (*notionsync.ExportResult, error)
}

func (m *MockExporter) Export(ctx context.Context, st *domain.Statement, dryRun bool) (*notionsync.ExportResult, error) {
	return m.ExportFunc(ctx, st, dryRun)
}

// serve runs one request through a router built from rt.
func serve(t *testing.T, rt Routes, method, target string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	rec := httptest.NewRecorder()
	NewRouter(rt, zerolog.Nop()).ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
