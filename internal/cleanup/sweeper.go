package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/dvloznov/imagexbot/internal/gcs"
	"github.com/dvloznov/imagexbot/internal/jobs"
	"github.com/dvloznov/imagexbot/internal/metrics"
)

// Sweeper removes generated images that outlived their scheduled deletion,
// e.g. because the process restarted before the timer fired.
type Sweeper struct {
	store   gcs.ObjectStore
	prefix  string
	maxAge  time.Duration
	limit   int
	now     func() time.Time
	log     zerolog.Logger
	metrics *metrics.Metrics

	group singleflight.Group
}

// SweeperConfig configures a Sweeper.
type SweeperConfig struct {
	Prefix  string
	MaxAge  time.Duration
	Limit   int
	Now     func() time.Time
	Metrics *metrics.Metrics
}

// NewSweeper creates a Sweeper over objects named with cfg.Prefix.
func NewSweeper(store gcs.ObjectStore, cfg SweeperConfig, log zerolog.Logger) *Sweeper {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Sweeper{
		store:   store,
		prefix:  cfg.Prefix,
		maxAge:  cfg.MaxAge,
		limit:   cfg.Limit,
		now:     cfg.Now,
		log:     log,
		metrics: cfg.Metrics,
	}
}

// Sweep lists up to limit objects under the prefix and deletes those at
// least maxAge old. Concurrent calls share one in-flight sweep, so an object
// is never deleted twice. It returns the names it deleted.
//
// The shared sweep is not cancelled with the caller that started it; a
// cancelled caller stops waiting and the sweep finishes for the others.
func (s *Sweeper) Sweep(ctx context.Context) ([]string, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(s.prefix, func() (any, error) {
		return s.sweep(shared)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		deleted, _ := res.Val.([]string)
		return deleted, res.Err
	}
}

func (s *Sweeper) sweep(ctx context.Context) ([]string, error) {
	objects, err := s.store.List(ctx, s.prefix, s.limit)
	if err != nil {
		return nil, fmt.Errorf("Sweep: listing %q: %w", s.prefix, err)
	}

	now := s.now()
	deleted := []string{}
	var errs []error

	for _, obj := range objects {
		if now.Sub(obj.Created) < s.maxAge {
			continue
		}

		err := s.store.Delete(ctx, obj.Name)
		switch {
		case err == nil:
			deleted = append(deleted, obj.Name)
			s.metrics.ObserveDeletion(string(jobs.ArtifactSwept), "deleted")
		case errors.Is(err, gcs.ErrObjectNotFound):
			s.metrics.ObserveDeletion(string(jobs.ArtifactSwept), "missing")
		default:
			s.metrics.ObserveDeletion(string(jobs.ArtifactSwept), "failed")
			errs = append(errs, err)
		}
	}

	if len(deleted) > 0 {
		s.log.Info().Strs("objects", deleted).Msg("Swept expired artifacts")
	}

	if len(errs) > 0 {
		return deleted, fmt.Errorf("Sweep: %w", errors.Join(errs...))
	}
	return deleted, nil
}
