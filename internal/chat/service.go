package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/logger"
	"github.com/dvloznov/imagexbot/internal/metrics"
	"github.com/dvloznov/imagexbot/internal/store"
)

// Dispatcher sends a classified request to the provider.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (*Result, error)
}

// UploadRequest is one user message.
type UploadRequest struct {
	UserID   string
	Context  string
	ImageURL string
	// History is the caller's view of the conversation. When nil, the
	// stored turns of UserID are used instead.
	History []domain.Message
}

// Exchange is the pair of turns recorded for one request.
type Exchange struct {
	Mode Mode
	User *domain.Turn
	AI   *domain.Turn
}

// Service runs one chat request end to end: classify, dispatch, persist.
// Cleanup of transient images is armed by the dispatcher.
type Service struct {
	router  Dispatcher
	writer  *Writer
	turns   store.TurnRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates a Service.
func NewService(router Dispatcher, writer *Writer, turns store.TurnRepository, m *metrics.Metrics) *Service {
	return &Service{router: router, writer: writer, turns: turns, metrics: m, now: time.Now}
}

// Upload handles one user message and returns both recorded turns. Nothing
// is persisted when the provider call fails.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*Exchange, error) {
	received := s.now()
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Context) == "" {
		return nil, ErrInvalidRequest
	}

	mode := Classify(req.Context, req.ImageURL != "")
	log := logger.FromContext(ctx).With().Str("user_id", req.UserID).Str("mode", string(mode)).Logger()

	history, err := s.history(ctx, req, mode)
	if err != nil {
		return nil, err
	}

	res, err := s.router.Dispatch(ctx, Request{
		Mode:     mode,
		Text:     req.Context,
		ImageURL: req.ImageURL,
		History:  history,
	})
	if err == nil && strings.TrimSpace(res.Content) == "" && res.ImageURL == nil {
		err = ErrInvalidResponse
	}
	if err != nil {
		s.metrics.ObserveChat(string(mode), err, 0, 0)
		log.Error().Err(err).Msg("Chat dispatch failed")
		return nil, err
	}

	user, bot, err := s.writer.Record(ctx, RecordInput{
		UserID:        req.UserID,
		Prompt:        req.Context,
		AttachedImage: req.ImageURL,
		ReceivedAt:    received,
		Result:        res,
	})
	s.metrics.ObserveChat(string(mode), err, res.PromptTokens, res.CompletionTokens)
	if err != nil {
		log.Error().Err(err).Msg("Persisting chat turns failed")
		return nil, fmt.Errorf("Upload: %w", err)
	}

	log.Info().
		Int64("prompt_tokens", res.PromptTokens).
		Int64("completion_tokens", res.CompletionTokens).
		Msg("Chat exchange recorded")

	return &Exchange{Mode: mode, User: user, AI: bot}, nil
}

// history returns the window sent with text and code requests. The other
// modes are single-shot.
func (s *Service) history(ctx context.Context, req UploadRequest, mode Mode) ([]domain.Message, error) {
	if mode != ModeText && mode != ModeCode {
		return nil, nil
	}
	if req.History != nil {
		return TrimHistory(req.History), nil
	}

	turns, err := s.turns.FindTurnsByUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("Upload: loading history: %w", err)
	}
	return FormatHistory(turns), nil
}

// Turns returns every stored turn of userID, oldest first.
func (s *Service) Turns(ctx context.Context, userID string) ([]*domain.Turn, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidRequest
	}
	turns, err := s.turns.FindTurnsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Turns: %w", err)
	}
	return turns, nil
}
