package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/imagexbot/internal/api/middleware"
	"github.com/dvloznov/imagexbot/internal/jobs"
	"github.com/dvloznov/imagexbot/internal/logger"
)

// JobsHandler exposes the status of deferred cleanup jobs.
type JobsHandler struct {
	store jobs.JobStore
}

// NewJobsHandler creates a JobsHandler.
func NewJobsHandler(store jobs.JobStore) *JobsHandler {
	return &JobsHandler{store: store}
}

// GetJob handles GET /api/cleanup/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/cleanup/jobs. It filters on object_name, status,
// kind and overdue_at, and pages with limit and offset.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		ObjectName: query.Get("object_name"),
		Status:     jobs.JobStatus(query.Get("status")),
		Kind:       jobs.ArtifactKind(query.Get("kind")),
	}

	if overdue := query.Get("overdue_at"); overdue != "" {
		t, err := time.Parse(time.RFC3339, overdue)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "overdue_at must be an RFC 3339 time")
			return
		}
		filter.OverdueAt = t
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobsList == nil {
		jobsList = []*jobs.DeleteArtifactJob{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
