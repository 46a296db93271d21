// Package cleanup deletes transient objects from the object store after a
// delay. Deletions are best-effort: they are attempted once, failures are
// logged and never reach the request that armed them.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/imagexbot/internal/gcs"
	"github.com/dvloznov/imagexbot/internal/jobs"
	"github.com/dvloznov/imagexbot/internal/metrics"
)

// Scheduler arms delayed deletions on a jobs.Publisher.
type Scheduler struct {
	publisher jobs.Publisher
	now       func() time.Time
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithNow sets the clock used to compute visibility times.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithMetrics records scheduled deletions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// NewScheduler creates a Scheduler publishing to p.
func NewScheduler(p jobs.Publisher, log zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{publisher: p, now: time.Now, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule arms the deletion of objectName after delay and returns the job
// ID, or "" when the job could not be enqueued. It never blocks on the delay
// and never fails the caller.
func (s *Scheduler) Schedule(ctx context.Context, objectName string, kind jobs.ArtifactKind, delay time.Duration) string {
	if s == nil || objectName == "" {
		return ""
	}

	now := s.now()
	job := &jobs.DeleteArtifactJob{
		ObjectName: objectName,
		Kind:       kind,
		CreatedAt:  now,
		VisibleAt:  now.Add(delay),
	}

	// The job outlives the request that armed it.
	if err := s.publisher.PublishDeleteArtifact(context.WithoutCancel(ctx), job); err != nil {
		s.log.Error().
			Err(err).
			Str("object", objectName).
			Str("kind", string(kind)).
			Msg("Failed to schedule artifact deletion")
		return ""
	}

	s.metrics.ObserveScheduled(string(kind))
	s.log.Debug().
		Str("job_id", job.JobID).
		Str("object", objectName).
		Str("kind", string(kind)).
		Dur("delay", delay).
		Msg("Scheduled artifact deletion")

	return job.JobID
}

// NewDeleteHandler returns the job handler that removes the artifact of a
// DeleteArtifactJob. An object that is already gone counts as deleted.
func NewDeleteHandler(store gcs.ObjectStore, log zerolog.Logger, m *metrics.Metrics) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		j, ok := job.(*jobs.DeleteArtifactJob)
		if !ok {
			return fmt.Errorf("DeleteHandler: unsupported job type %s", job.GetType())
		}

		err := store.Delete(ctx, j.ObjectName)
		switch {
		case err == nil:
			m.ObserveDeletion(string(j.Kind), "deleted")
			log.Info().Str("job_id", j.JobID).Str("object", j.ObjectName).Msg("Deleted artifact")
			return nil
		case errors.Is(err, gcs.ErrObjectNotFound):
			m.ObserveDeletion(string(j.Kind), "missing")
			log.Debug().Str("job_id", j.JobID).Str("object", j.ObjectName).Msg("Artifact already gone")
			return nil
		default:
			m.ObserveDeletion(string(j.Kind), "failed")
			log.Error().Err(err).Str("job_id", j.JobID).Str("object", j.ObjectName).Msg("Failed to delete artifact")
			return fmt.Errorf("DeleteHandler: %w", err)
		}
	}
}
