package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/metrics"
	"github.com/dvloznov/imagexbot/internal/store"
)

// MockDispatcher is a mock implementation of Dispatcher for testing.
type MockDispatcher struct {
	DispatchFunc func(ctx context.Context, req Request) (*Result, error)
	Requests     []Request
}

func (m *MockDispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	m.Requests = append(m.Requests, req)
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, req)
	}
	return &Result{Mode: req.Mode, Content: "ok"}, nil
}

func newTestService(d Dispatcher, repo *store.Memory, m *metrics.Metrics) *Service {
	s := NewService(d, newTestWriter(repo, func() time.Time { return fixedNow }), repo, m)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestUpload_RecordsBothTurns(t *testing.T) {
	repo := store.NewMemory()
	m := metrics.New(prometheus.NewRegistry())
	d := &MockDispatcher{DispatchFunc: func(ctx context.Context, req Request) (*Result, error) {
		return &Result{Mode: req.Mode, Content: "Paris", PromptTokens: 10, CompletionTokens: 2}, nil
	}}
	s := newTestService(d, repo, m)

	ex, err := s.Upload(context.Background(), UploadRequest{UserID: "u1", Context: "capital of France?"})
	require.NoError(t, err)

	assert.Equal(t, ModeText, ex.Mode)
	assert.Equal(t, "capital of France?", ex.User.Content)
	assert.Equal(t, "Paris", ex.AI.Content)
	assert.Equal(t, int64(10), ex.User.TokensUsed)
	assert.Equal(t, int64(2), ex.AI.TokensUsed)
	assert.Equal(t, 2, repo.Len())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatRequests.WithLabelValues("text", "success")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.Tokens.WithLabelValues("prompt", "text")))
}

func TestUpload_MissingFields(t *testing.T) {
	tests := []UploadRequest{
		{UserID: "", Context: "hi"},
		{UserID: "u1", Context: "  "},
	}
	for _, req := range tests {
		d := &MockDispatcher{}
		repo := store.NewMemory()
		_, err := newTestService(d, repo, nil).Upload(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidRequest)
		assert.Empty(t, d.Requests)
		assert.Zero(t, repo.Len())
	}
}

func TestUpload_ProviderFailurePersistsNothing(t *testing.T) {
	repo := store.NewMemory()
	m := metrics.New(prometheus.NewRegistry())
	boom := errors.New("provider down")
	d := &MockDispatcher{DispatchFunc: func(context.Context, Request) (*Result, error) { return nil, boom }}

	_, err := newTestService(d, repo, m).Upload(context.Background(), UploadRequest{UserID: "u1", Context: "/imagine a cat"})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, repo.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatRequests.WithLabelValues("image_generation", "error")))
}

func TestUpload_EmptyReplyIsInvalid(t *testing.T) {
	repo := store.NewMemory()
	d := &MockDispatcher{DispatchFunc: func(ctx context.Context, req Request) (*Result, error) {
		return &Result{Mode: req.Mode, Content: "   "}, nil
	}}

	_, err := newTestService(d, repo, nil).Upload(context.Background(), UploadRequest{UserID: "u1", Context: "hi"})
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Zero(t, repo.Len())
}

func TestUpload_HistoryFromStore(t *testing.T) {
	repo := store.NewMemory()
	for i := 0; i < 12; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleBot
		}
		require.NoError(t, repo.InsertTurns(context.Background(), []*domain.Turn{{
			ID: "t", UserID: "u1", Role: role, Content: "m", CreatedAt: fixedNow.Add(-time.Hour + time.Duration(i)*time.Minute),
		}}))
	}
	d := &MockDispatcher{}

	_, err := newTestService(d, repo, nil).Upload(context.Background(), UploadRequest{UserID: "u1", Context: "next"})
	require.NoError(t, err)

	require.Len(t, d.Requests, 1)
	history := d.Requests[0].History
	require.Len(t, history, HistoryWindow)
	assert.Equal(t, domain.MessageRoleUser, history[0].Role)
	assert.Equal(t, domain.MessageRoleModel, history[HistoryWindow-1].Role)
}

func TestUpload_CallerHistoryWins(t *testing.T) {
	repo := store.NewMemory()
	d := &MockDispatcher{}
	caller := []domain.Message{{Role: "assistant", Content: "earlier"}}

	_, err := newTestService(d, repo, nil).Upload(context.Background(), UploadRequest{UserID: "u1", Context: "/code sort a list", History: caller})
	require.NoError(t, err)

	req := d.Requests[0]
	assert.Equal(t, ModeCode, req.Mode)
	assert.Equal(t, []domain.Message{{Role: domain.MessageRoleModel, Content: "earlier"}}, req.History)
}

func TestUpload_SingleShotModesSkipHistory(t *testing.T) {
	repo := store.NewMemory()
	d := &MockDispatcher{}
	s := newTestService(d, repo, nil)

	_, err := s.Upload(context.Background(), UploadRequest{UserID: "u1", Context: "what is this", ImageURL: "memory://a.jpg", History: []domain.Message{{Role: "user", Content: "x"}}})
	require.NoError(t, err)

	req := d.Requests[0]
	assert.Equal(t, ModeImageAnalysis, req.Mode)
	assert.Equal(t, "memory://a.jpg", req.ImageURL)
	assert.Nil(t, req.History)
}

func TestTurns(t *testing.T) {
	repo := store.NewMemory()
	s := newTestService(&MockDispatcher{}, repo, nil)

	_, err := s.Turns(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	turns, err := s.Turns(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, turns)
}
