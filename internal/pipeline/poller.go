package pipeline

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/dvloznov/imagexbot/internal/llm"
	"github.com/dvloznov/imagexbot/internal/metrics"
)

// PollConfig bounds the wait for an uploaded file to become usable.
type PollConfig struct {
	Interval time.Duration
	MaxPolls int
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep   func(ctx context.Context, d time.Duration) error
	Metrics *metrics.Metrics
}

func (c PollConfig) withDefaults() PollConfig {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = 60
	}
	if c.Sleep == nil {
		c.Sleep = sleepContext
	}
	return c
}

// WaitForFile polls the provider until the named file leaves the processing
// state. ACTIVE returns the file. FAILED returns ErrFileProcessingFailed.
// A file still processing after MaxPolls status reads returns
// ErrPollingExhausted.
func WaitForFile(ctx context.Context, files llm.FileService, name string, cfg PollConfig) (*genai.File, error) {
	cfg = cfg.withDefaults()

	for poll := 1; ; poll++ {
		f, err := files.Get(ctx, name, nil)
		if err != nil {
			return nil, fmt.Errorf("WaitForFile: get %s: %w", name, err)
		}

		state := f.State
		if state == "" {
			state = genai.FileStateUnspecified
		}
		cfg.Metrics.ObservePoll(string(state))

		switch state {
		case genai.FileStateActive:
			return f, nil
		case genai.FileStateFailed:
			if f.Error != nil && f.Error.Message != "" {
				return nil, fmt.Errorf("WaitForFile: %s: %w: %s", name, ErrFileProcessingFailed, f.Error.Message)
			}
			return nil, fmt.Errorf("WaitForFile: %s: %w", name, ErrFileProcessingFailed)
		}

		if poll >= cfg.MaxPolls {
			return nil, fmt.Errorf("WaitForFile: %s after %d polls: %w", name, poll, ErrPollingExhausted)
		}
		if err := cfg.Sleep(ctx, cfg.Interval); err != nil {
			return nil, fmt.Errorf("WaitForFile: %s: %w", name, err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
