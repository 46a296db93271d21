package handlers

import (
	"context"
	"errors"
	"iter"
	"net/http"

	"github.com/dvloznov/imagexbot/internal/api/middleware"
	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/gcs"
	"github.com/dvloznov/imagexbot/internal/logger"
	"github.com/dvloznov/imagexbot/internal/notionsync"
	"github.com/dvloznov/imagexbot/internal/pipeline"
)

// StatementAnalyzer extracts a statement from uploaded PDFs.
type StatementAnalyzer interface {
	Analyze(ctx context.Context, sources []pipeline.SourceFile) (*domain.Statement, error)
}

// FollowUpStreamer answers questions about a statement.
type FollowUpStreamer interface {
	Stream(ctx context.Context, req pipeline.FollowUpRequest) iter.Seq2[string, error]
}

// StatementExporter writes statement transactions elsewhere.
type StatementExporter interface {
	Export(ctx context.Context, st *domain.Statement, dryRun bool) (*notionsync.ExportResult, error)
}

// StatementsHandler serves the statement analyzer endpoints.
type StatementsHandler struct {
	analyzer StatementAnalyzer
	followUp FollowUpStreamer
	exporter StatementExporter
}

// NewStatementsHandler creates a StatementsHandler. exporter may be nil.
func NewStatementsHandler(analyzer StatementAnalyzer, followUp FollowUpStreamer, exporter StatementExporter) *StatementsHandler {
	return &StatementsHandler{analyzer: analyzer, followUp: followUp, exporter: exporter}
}

type analyzeRequest struct {
	Files []pipeline.SourceFile `json:"files" validate:"required,min=1,dive"`
}

// Analyze handles POST /api/analyze.
func (h *StatementsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decode(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "At least one file is required for analysis")
		return
	}

	st, err := h.analyzer.Analyze(r.Context(), req.Files)
	if err != nil {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Int("files", len(req.Files)).Msg("Statement analysis failed")
		switch {
		case errors.Is(err, pipeline.ErrNoFiles):
			middleware.WriteError(w, http.StatusBadRequest, "At least one file is required for analysis")
		case errors.Is(err, gcs.ErrURLNotAllowed), errors.Is(err, gcs.ErrTooLarge):
			middleware.WriteError(w, http.StatusBadRequest, "Invalid file URL")
		case errors.Is(err, pipeline.ErrInvalidExtraction):
			middleware.WriteError(w, http.StatusBadRequest, "Invalid AI response format")
		case errors.Is(err, pipeline.ErrPollingExhausted):
			middleware.WriteErrorDetail(w, http.StatusInternalServerError, "File processing timed out", err)
		case errors.Is(err, pipeline.ErrFileProcessingFailed):
			middleware.WriteErrorDetail(w, http.StatusInternalServerError, "File processing failed", err)
		default:
			middleware.WriteErrorDetail(w, http.StatusInternalServerError, "Internal server error", err)
		}
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"message":  "Analysis completed successfully",
		"status":   true,
		"analysis": st,
	})
}

// Chat handles POST /api/chat, streaming the reply as plain text. Errors
// after the first chunk can only end the stream.
func (h *StatementsHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req pipeline.FollowUpRequest
	if err := decode(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Statement and message are required")
		return
	}

	ctx := r.Context()
	log := logger.FromContext(ctx)
	rc := http.NewResponseController(w)
	started := false

	for chunk, err := range h.followUp.Stream(ctx, req) {
		if err != nil {
			log.Error().Err(err).Bool("streaming", started).Msg("Follow-up chat failed")
			if !started {
				middleware.WriteErrorDetail(w, http.StatusInternalServerError, "Internal server error", err)
			}
			return
		}
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := w.Write([]byte(chunk)); err != nil {
			log.Debug().Err(err).Msg("Client went away during follow-up chat")
			return
		}
		_ = rc.Flush()
	}

	if !started {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
	}
}

type exportRequest struct {
	Statement *domain.Statement `json:"statement" validate:"required"`
	DryRun    bool              `json:"dryRun"`
}

// Export handles POST /api/statements/export.
func (h *StatementsHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		middleware.WriteError(w, http.StatusNotImplemented, "Statement export is not configured")
		return
	}

	var req exportRequest
	if err := decode(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Statement is required")
		return
	}

	res, err := h.exporter.Export(r.Context(), req.Statement, req.DryRun)
	if errors.Is(err, notionsync.ErrNotConfigured) {
		middleware.WriteError(w, http.StatusNotImplemented, "Statement export is not configured")
		return
	}
	if err != nil {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Msg("Statement export failed")
		middleware.WriteErrorDetail(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Statement exported",
		"status":  true,
		"result":  res,
	})
}
