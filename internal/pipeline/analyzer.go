// Package pipeline extracts structured data from bank statement PDFs with the
// hosted model and serves the follow-up chat grounded in the extraction.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/gcs"
	"github.com/dvloznov/imagexbot/internal/jobs"
	"github.com/dvloznov/imagexbot/internal/llm"
	"github.com/dvloznov/imagexbot/internal/metrics"
)

const (
	pdfMIMEType     = "application/pdf"
	pdfDisplayName  = "expense.pdf"
	defaultPDFDelay = 10 * time.Second
)

// Scheduler arms delayed deletions of transient objects.
type Scheduler interface {
	Schedule(ctx context.Context, objectName string, kind jobs.ArtifactKind, delay time.Duration) string
}

// SourceFile is a statement PDF already stored in the bucket.
type SourceFile struct {
	URL string `json:"url" validate:"required"`
	// ObjectName is the bucket object to clean up. Derived from URL when empty.
	ObjectName string `json:"public_id"`
}

// AnalyzerConfig configures an Analyzer.
type AnalyzerConfig struct {
	Model       string
	SourceDelay time.Duration
	Poll        PollConfig
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

// Analyzer runs one statement extraction per call.
type Analyzer struct {
	gen     llm.Generator
	files   llm.FileService
	fetcher gcs.Fetcher
	objects gcs.ObjectStore
	cleanup Scheduler
	cfg     AnalyzerConfig
	log     zerolog.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(gen llm.Generator, files llm.FileService, fetcher gcs.Fetcher, objects gcs.ObjectStore, cleanup Scheduler, cfg AnalyzerConfig, log zerolog.Logger) *Analyzer {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.SourceDelay <= 0 {
		cfg.SourceDelay = defaultPDFDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Poll.Metrics == nil {
		cfg.Poll.Metrics = cfg.Metrics
	}
	return &Analyzer{gen: gen, files: files, fetcher: fetcher, objects: objects, cleanup: cleanup, cfg: cfg, log: log}
}

// Analyze uploads every source file to the provider, waits until all are
// processed and extracts one statement from them. Deletion of the source
// objects is armed before any other work, whatever the outcome.
func (a *Analyzer) Analyze(ctx context.Context, sources []SourceFile) (*domain.Statement, error) {
	if len(sources) == 0 {
		return nil, ErrNoFiles
	}
	start := a.cfg.Now()
	defer func() { a.cfg.Metrics.ObserveExtraction(a.cfg.Now().Sub(start)) }()

	for _, src := range sources {
		name := src.ObjectName
		if name == "" {
			name = a.objects.ObjectName(src.URL)
		}
		a.cleanup.Schedule(ctx, name, jobs.ArtifactSourcePDF, a.cfg.SourceDelay)
	}

	uploaded := make([]*genai.File, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			f, err := a.prepare(gctx, src)
			if err != nil {
				return err
			}
			uploaded[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("Analyze: %w", err)
	}

	parts := []*genai.Part{{Text: extractionPrompt}}
	for _, f := range uploaded {
		if f.URI == "" {
			continue
		}
		mimeType := f.MIMEType
		if mimeType == "" {
			mimeType = pdfMIMEType
		}
		parts = append(parts, genai.NewPartFromURI(f.URI, mimeType))
	}

	resp, err := a.gen.GenerateContent(ctx, a.cfg.Model, []*genai.Content{{Role: domain.MessageRoleUser, Parts: parts}}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   statementSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("Analyze: generate content: %w", err)
	}

	st, err := ParseStatement(llm.Text(resp))
	if err != nil {
		return nil, fmt.Errorf("Analyze: %w", err)
	}

	if msg := Reconcile(st); msg != "" {
		a.log.Warn().Str("account", string(st.AccountName)).Msg("Statement does not reconcile: " + msg)
	}
	prompt, completion := llm.Usage(resp)
	a.log.Info().
		Int("files", len(sources)).
		Int("transactions", len(st.Transactions)).
		Int64("prompt_tokens", prompt).
		Int64("completion_tokens", completion).
		Msg("Statement extracted")

	return st, nil
}

// prepare downloads one source file, uploads it to the provider and waits
// for it to become active.
func (a *Analyzer) prepare(ctx context.Context, src SourceFile) (*genai.File, error) {
	data, _, err := a.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("prepare: fetching %s: %w", src.URL, err)
	}

	f, err := a.files.Upload(ctx, bytes.NewReader(data), &genai.UploadFileConfig{
		MIMEType:    pdfMIMEType,
		DisplayName: pdfDisplayName,
	})
	if err != nil {
		return nil, fmt.Errorf("prepare: uploading %s: %w", src.URL, err)
	}
	if f == nil || f.Name == "" {
		return nil, fmt.Errorf("prepare: uploaded file has no name")
	}

	return WaitForFile(ctx, a.files, f.Name, a.cfg.Poll)
}
