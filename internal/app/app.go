// Package app assembles the service from its configuration. It is shared by
// the API server and the CLI.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dvloznov/imagexbot/internal/api/handlers"
	"github.com/dvloznov/imagexbot/internal/auth"
	"github.com/dvloznov/imagexbot/internal/chat"
	"github.com/dvloznov/imagexbot/internal/cleanup"
	"github.com/dvloznov/imagexbot/internal/config"
	"github.com/dvloznov/imagexbot/internal/gcs"
	"github.com/dvloznov/imagexbot/internal/gcsuploader"
	infraBQ "github.com/dvloznov/imagexbot/internal/infra/bigquery"
	infraMongo "github.com/dvloznov/imagexbot/internal/infra/mongo"
	"github.com/dvloznov/imagexbot/internal/jobs/inmemory"
	"github.com/dvloznov/imagexbot/internal/llm"
	"github.com/dvloznov/imagexbot/internal/metrics"
	"github.com/dvloznov/imagexbot/internal/notionsync"
	"github.com/dvloznov/imagexbot/internal/pipeline"
	"github.com/dvloznov/imagexbot/internal/store"
)

// Objects is the object store and the fetcher reading from it.
type Objects struct {
	Store   gcs.ObjectStore
	Fetcher gcs.Fetcher
	close   func() error
}

// Close releases the storage client, if any.
func (o *Objects) Close() error {
	if o.close == nil {
		return nil
	}
	return o.close()
}

// OpenObjects connects to the configured bucket. Without a bucket it falls
// back to an in-memory store and plain HTTP fetches.
func OpenObjects(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Objects, error) {
	httpClient := &http.Client{Timeout: 60 * time.Second}

	if cfg.Storage.Bucket == "" {
		log.Warn().Msg("No GCS bucket configured - using in-memory object storage")
		mem := gcs.NewMemoryStore(nil)
		return &Objects{
			Store:   mem,
			Fetcher: mem.Fetcher(gcsuploader.NewDownloader(nil, "", httpClient)),
		}, nil
	}

	s, err := gcsuploader.New(ctx, cfg.Storage.Bucket)
	if err != nil {
		return nil, fmt.Errorf("OpenObjects: %w", err)
	}
	return &Objects{Store: s, Fetcher: s.Downloader(httpClient), close: s.Close}, nil
}

// OpenRepository connects to the configured turn and account store.
func OpenRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Repository, error) {
	switch cfg.Store.Driver {
	case config.DriverBigQuery:
		repo, err := infraBQ.NewRepository(ctx, cfg.Store.BigQuery.ProjectID, cfg.Store.BigQuery.Dataset)
		if err != nil {
			return nil, fmt.Errorf("OpenRepository: %w", err)
		}
		return repo, nil
	case config.DriverMongo:
		repo, err := infraMongo.NewRepository(ctx, cfg.Store.Mongo.URI, cfg.Store.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("OpenRepository: %w", err)
		}
		return repo, nil
	case config.DriverMemory:
		log.Warn().Msg("Using in-memory store - chats and accounts are lost on restart")
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("OpenRepository: unknown driver %q", cfg.Store.Driver)
	}
}

// App holds every long-lived component of the service.
type App struct {
	Config  *config.Config
	Log     zerolog.Logger
	Metrics *metrics.Metrics

	Objects    *Objects
	Repository store.Repository
	Jobs       *inmemory.Store
	Queue      *inmemory.Queue
	Scheduler  *cleanup.Scheduler
	Sweeper    *cleanup.Sweeper

	Chat     *chat.Service
	Analyzer *pipeline.Analyzer
	FollowUp *pipeline.FollowUp
	Issuer   *auth.Issuer
	Accounts *auth.Service
	// Exporter is nil when Notion is not configured.
	Exporter *notionsync.Exporter
}

// New connects every dependency. reg may be nil to skip metrics. The
// deletion queue is created but not started; see StartCleanup.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{Config: cfg, Log: log}
	if reg != nil {
		a.Metrics = metrics.New(reg)
	}

	client, err := llm.NewClient(ctx, cfg.AI.APIKey)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}

	a.Objects, err = OpenObjects(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}

	a.Repository, err = OpenRepository(ctx, cfg, log)
	if err != nil {
		_ = a.Objects.Close()
		return nil, fmt.Errorf("New: %w", err)
	}

	a.Jobs = inmemory.NewStore()
	a.Queue = inmemory.NewQueue(a.Jobs)
	a.Scheduler = cleanup.NewScheduler(a.Queue, log, cleanup.WithMetrics(a.Metrics))
	a.Sweeper = cleanup.NewSweeper(a.Objects.Store, cleanup.SweeperConfig{
		Prefix:  cfg.Storage.GeneratedImagePrefix,
		MaxAge:  cfg.Cleanup.SweepAge,
		Limit:   cfg.Cleanup.SweepLimit,
		Metrics: a.Metrics,
	}, log)

	router := chat.NewRouter(client.Models, a.Objects.Store, a.Objects.Fetcher, a.Scheduler, chat.RouterConfig{
		Models: chat.Models{
			Chat:   cfg.AI.ChatModel,
			Vision: cfg.AI.VisionModel,
			Image:  cfg.AI.ImageModel,
		},
		GeneratedImagePrefix: cfg.Storage.GeneratedImagePrefix,
		GeneratedImageDelay:  cfg.Cleanup.GeneratedImageDelay,
		AnalyzedImageDelay:   cfg.Cleanup.AnalyzedImageDelay,
	}, log)
	a.Chat = chat.NewService(router, chat.NewWriter(a.Repository, nil), a.Repository, a.Metrics)

	a.Analyzer = pipeline.NewAnalyzer(client.Models, client.Files, a.Objects.Fetcher, a.Objects.Store, a.Scheduler, pipeline.AnalyzerConfig{
		Model:       cfg.AI.StatementModel,
		SourceDelay: cfg.Cleanup.SourcePDFDelay,
		Poll: pipeline.PollConfig{
			Interval: cfg.Extraction.PollInterval,
			MaxPolls: cfg.Extraction.MaxPolls,
		},
		Metrics: a.Metrics,
	}, log)
	a.FollowUp = pipeline.NewFollowUp(client.Models, cfg.AI.FollowUpModel)

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = randomSecret()
		log.Warn().Msg("No JWT secret configured - tokens will not survive a restart")
	}
	a.Issuer, err = auth.NewIssuer(secret, cfg.Auth.TokenTTL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("New: %w", err)
	}
	a.Accounts = auth.NewService(a.Repository, a.Issuer)

	if cfg.Notion.Token != "" && cfg.Notion.DatabaseID != "" {
		a.Exporter = notionsync.NewExporter(notionsync.NewNotionClient(cfg.Notion.Token), cfg.Notion.DatabaseID)
	}

	return a, nil
}

// StartCleanup starts the deferred deletion worker.
func (a *App) StartCleanup(ctx context.Context) error {
	handler := cleanup.NewDeleteHandler(a.Objects.Store, a.Log, a.Metrics)
	if err := a.Queue.Start(ctx, handler); err != nil {
		return fmt.Errorf("StartCleanup: %w", err)
	}
	return nil
}

// Routes returns the HTTP handlers of the service.
func (a *App) Routes(gatherer prometheus.Gatherer) handlers.Routes {
	var exporter handlers.StatementExporter
	if a.Exporter != nil {
		exporter = a.Exporter
	}

	return handlers.Routes{
		Chat:       handlers.NewChatHandler(a.Chat, a.Sweeper),
		Accounts:   handlers.NewAccountsHandler(a.Accounts),
		Statements: handlers.NewStatementsHandler(a.Analyzer, a.FollowUp, exporter),
		Documents: handlers.NewDocumentsHandler(a.Objects.Store, handlers.DocumentsConfig{
			ExplorerPrefix: a.Config.Storage.FileExplorerPrefix,
			SignedURLTTL:   a.Config.Storage.SignedURLTTL,
		}),
		Jobs:         handlers.NewJobsHandler(a.Jobs),
		Issuer:       a.Issuer,
		AuthRequired: a.Config.Auth.Required,
		Gatherer:     gatherer,
		Metrics:      a.Metrics,
	}
}

// Shutdown drains the deletion queue, then closes every connection.
// Deletions that are not yet due are dropped; the sweeper catches
// generated images on a later start.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Queue.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stopping cleanup queue: %w", err))
	}
	if pending := a.Queue.Len(); pending > 0 {
		a.Log.Warn().Int("pending", pending).Msg("Dropping pending deletions")
	}
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close closes the repository and the storage client.
func (a *App) Close() error {
	var errs []error
	if a.Repository != nil {
		if err := a.Repository.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing repository: %w", err))
		}
	}
	if a.Objects != nil {
		if err := a.Objects.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing object store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
