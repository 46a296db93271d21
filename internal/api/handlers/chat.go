package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dvloznov/imagexbot/internal/api/middleware"
	"github.com/dvloznov/imagexbot/internal/chat"
	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/gcs"
	"github.com/dvloznov/imagexbot/internal/logger"
)

// ChatService runs chat exchanges and reads stored turns.
type ChatService interface {
	Upload(ctx context.Context, req chat.UploadRequest) (*chat.Exchange, error)
	Turns(ctx context.Context, userID string) ([]*domain.Turn, error)
}

// Sweeper deletes expired generated images.
type Sweeper interface {
	Sweep(ctx context.Context) ([]string, error)
}

// ChatHandler serves /upload and /getChats.
type ChatHandler struct {
	svc     ChatService
	sweeper Sweeper
}

// NewChatHandler creates a ChatHandler. sweeper may be nil.
func NewChatHandler(svc ChatService, sweeper Sweeper) *ChatHandler {
	return &ChatHandler{svc: svc, sweeper: sweeper}
}

type uploadRequest struct {
	Context  string           `json:"context" validate:"required"`
	ImageURL string           `json:"imageUrl" validate:"omitempty,url"`
	UserID   string           `json:"userId" validate:"required"`
	History  []domain.Message `json:"history"`
}

// Upload handles POST /upload.
func (h *ChatHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decode(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if !authorizedFor(r, req.UserID) {
		middleware.WriteError(w, http.StatusForbidden, "Forbidden")
		return
	}

	ex, err := h.svc.Upload(r.Context(), chat.UploadRequest{
		UserID:   req.UserID,
		Context:  req.Context,
		ImageURL: req.ImageURL,
		History:  req.History,
	})
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrInvalidRequest):
		middleware.WriteError(w, http.StatusBadRequest, "All fields are required")
		return
	case errors.Is(err, chat.ErrNoImage):
		middleware.WriteError(w, http.StatusBadRequest, "Image generation failed")
		return
	case errors.Is(err, chat.ErrInvalidResponse):
		middleware.WriteError(w, http.StatusBadRequest, "Invalid AI response format")
		return
	case errors.Is(err, gcs.ErrURLNotAllowed), errors.Is(err, gcs.ErrTooLarge):
		middleware.WriteError(w, http.StatusBadRequest, "Invalid image URL")
		return
	default:
		middleware.WriteErrorDetail(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "AI response generated successfully",
		"status":  true,
		"chats": map[string]*domain.Turn{
			"user": ex.User,
			"ai":   ex.AI,
		},
	})
}

// GetChats handles GET /getChats/{userId}. It first sweeps generated images
// past their lifetime; sweep failures are logged and do not fail the read.
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.sweeper != nil {
		deleted, err := h.sweeper.Sweep(ctx)
		if err != nil {
			log.Warn().Err(err).Int("deleted", len(deleted)).Msg("Generated image sweep failed")
		} else if len(deleted) > 0 {
			log.Info().Int("deleted", len(deleted)).Msg("Swept expired generated images")
		}
	}

	userID := r.PathValue("userId")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "User ID is required")
		return
	}
	if !authorizedFor(r, userID) {
		middleware.WriteError(w, http.StatusForbidden, "Forbidden")
		return
	}

	turns, err := h.svc.Turns(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load chats")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if turns == nil {
		turns = []*domain.Turn{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Chats fetched successfully",
		"status":  true,
		"chats":   turns,
	})
}

// authorizedFor reports whether an authenticated caller may act for userID.
// Anonymous requests pass; the Auth middleware rejects them when tokens are
// required.
func authorizedFor(r *http.Request, userID string) bool {
	id, ok := middleware.AccountIDFromContext(r.Context())
	return !ok || id == userID
}
