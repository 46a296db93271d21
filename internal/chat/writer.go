package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/store"
)

// Writer records the two turns of every successful exchange.
type Writer struct {
	repo  store.TurnRepository
	now   func() time.Time
	newID func() string
}

// NewWriter creates a Writer. now defaults to time.Now.
func NewWriter(repo store.TurnRepository, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{repo: repo, now: now, newID: func() string { return uuid.New().String() }}
}

// RecordInput is everything needed to persist one exchange.
type RecordInput struct {
	UserID string
	Prompt string
	// AttachedImage is the image sent with the prompt, if any.
	AttachedImage string
	ReceivedAt    time.Time
	Result        *Result
}

// Record builds the user and bot turns and writes both in one batch. The
// user turn carries the prompt tokens and the attached image (except for
// image generation); the bot turn carries the completion tokens and any
// generated image. The write is not transactional.
func (w *Writer) Record(ctx context.Context, in RecordInput) (*domain.Turn, *domain.Turn, error) {
	if in.Result == nil {
		return nil, nil, fmt.Errorf("Record: missing result")
	}

	received := in.ReceivedAt
	if received.IsZero() {
		received = w.now()
	}
	answered := w.now()
	if answered.Before(received) {
		answered = received
	}

	user := &domain.Turn{
		ID:         w.newID(),
		UserID:     in.UserID,
		Content:    in.Prompt,
		Role:       domain.RoleUser,
		TokensUsed: nonNegative(in.Result.PromptTokens),
		CreatedAt:  received.UTC(),
	}
	if in.AttachedImage != "" && in.Result.Mode != ModeImageGeneration {
		img := in.AttachedImage
		user.ImageURL = &img
	}

	bot := &domain.Turn{
		ID:         w.newID(),
		UserID:     in.UserID,
		Content:    in.Result.Content,
		Role:       domain.RoleBot,
		TokensUsed: nonNegative(in.Result.CompletionTokens),
		CreatedAt:  answered.UTC(),
	}
	if in.Result.Mode == ModeImageGeneration && in.Result.ImageURL != nil {
		img := *in.Result.ImageURL
		bot.ImageURL = &img
	}

	if err := w.repo.InsertTurns(ctx, []*domain.Turn{user, bot}); err != nil {
		return nil, nil, fmt.Errorf("Record: inserting turns: %w", err)
	}
	return user, bot, nil
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
