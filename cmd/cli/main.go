package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/imagexbot/internal/app"
	"github.com/dvloznov/imagexbot/internal/cleanup"
	"github.com/dvloznov/imagexbot/internal/config"
	"github.com/dvloznov/imagexbot/internal/domain"
	infraBQ "github.com/dvloznov/imagexbot/internal/infra/bigquery"
	"github.com/dvloznov/imagexbot/internal/logger"
	"github.com/dvloznov/imagexbot/internal/notionsync"
	"github.com/dvloznov/imagexbot/internal/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// env is what every command needs: the loaded configuration and a logger.
type env struct {
	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "imagexbot",
		Short:         "Image-X-Bot operator CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log = logger.NewWithLevel(cfg.Log.Level, cfg.Log.Pretty)
			cmd.SetContext(logger.WithContext(cmd.Context(), e.log))
			return nil
		},
	}

	root.AddCommand(
		newAnalyzeCmd(e),
		newUploadCmd(e),
		newSweepCmd(e),
		newMigrateCmd(e),
		newChatsCmd(e),
		newNotionCmd(e),
	)
	return root
}

func newAnalyzeCmd(e *env) *cobra.Command {
	var (
		file    string
		url     string
		out     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Extract a bank statement from a PDF and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (url == "") {
				return fmt.Errorf("exactly one of --file or --url is required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			a, err := app.New(ctx, e.cfg, e.log, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			src := pipeline.SourceFile{URL: url}
			if file != "" {
				objectName, err := uploadLocal(ctx, a.Objects, file, "uploads/cli")
				if err != nil {
					return err
				}
				// The queue is not running here, so remove the upload directly.
				defer func() {
					if err := a.Objects.Store.Delete(context.Background(), objectName); err != nil {
						e.log.Warn().Err(err).Str("object", objectName).Msg("Failed to delete uploaded PDF")
					}
				}()
				src = pipeline.SourceFile{URL: a.Objects.Store.URL(objectName), ObjectName: objectName}
			}

			st, err := a.Analyzer.Analyze(ctx, []pipeline.SourceFile{src})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out, st)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to a local statement PDF")
	cmd.Flags().StringVar(&url, "url", "", "URL of a statement PDF already in storage")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the JSON to this file instead of stdout")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Overall timeout")
	return cmd
}

func newUploadCmd(e *env) *cobra.Command {
	var (
		file   string
		prefix string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a local file to the object store",
		RunE: func(cmd *cobra.Command, args []string) error {
			objects, err := app.OpenObjects(cmd.Context(), e.cfg, e.log)
			if err != nil {
				return err
			}
			defer objects.Close()

			objectName, err := uploadLocal(cmd.Context(), objects, file, prefix)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), objects.Store.URL(objectName))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the local file")
	cmd.Flags().StringVar(&prefix, "prefix", "uploads", "Object name prefix")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSweepCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete generated images older than the sweep age",
		RunE: func(cmd *cobra.Command, args []string) error {
			objects, err := app.OpenObjects(cmd.Context(), e.cfg, e.log)
			if err != nil {
				return err
			}
			defer objects.Close()

			sweeper := cleanup.NewSweeper(objects.Store, cleanup.SweeperConfig{
				Prefix: e.cfg.Storage.GeneratedImagePrefix,
				MaxAge: e.cfg.Cleanup.SweepAge,
				Limit:  e.cfg.Cleanup.SweepLimit,
			}, e.log)

			deleted, err := sweeper.Sweep(cmd.Context())
			for _, name := range deleted {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return err
		},
	}
}

func newMigrateCmd(e *env) *cobra.Command {
	var location string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the BigQuery dataset and any missing tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			bq := e.cfg.Store.BigQuery
			repo, err := infraBQ.NewRepository(cmd.Context(), bq.ProjectID, bq.Dataset)
			if err != nil {
				return err
			}
			defer repo.Close()

			created, err := infraBQ.EnsureSchema(cmd.Context(), repo.Client(), bq.Dataset, location)
			for _, name := range created {
				e.log.Info().Str("table", name).Msg("Created table")
			}
			if err != nil {
				return err
			}
			e.log.Info().Str("dataset", bq.Dataset).Int("created", len(created)).Msg("Schema is up to date")
			return nil
		},
	}

	cmd.Flags().StringVar(&location, "location", "EU", "Dataset location used when the dataset is created")
	return cmd
}

func newChatsCmd(e *env) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "chats",
		Short: "Print the stored conversation of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := app.OpenRepository(cmd.Context(), e.cfg, e.log)
			if err != nil {
				return err
			}
			defer repo.Close()

			turns, err := repo.FindTurnsByUser(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), "", turns)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newNotionCmd(e *env) *cobra.Command {
	var dryRun bool

	exporter := func() (*notionsync.Exporter, error) {
		n := e.cfg.Notion
		if n.Token == "" || n.DatabaseID == "" {
			return nil, notionsync.ErrNotConfigured
		}
		return notionsync.NewExporter(notionsync.NewNotionClient(n.Token), n.DatabaseID), nil
	}

	cmd := &cobra.Command{
		Use:   "notion",
		Short: "Manage the Notion transactions database",
	}
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Preview changes without writing to Notion")

	var statementPath string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the transactions of an analyzed statement",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := readStatement(statementPath)
			if err != nil {
				return err
			}
			ex, err := exporter()
			if err != nil {
				return err
			}
			res, err := ex.Export(cmd.Context(), st, dryRun)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), "", res)
		},
	}
	exportCmd.Flags().StringVar(&statementPath, "statement", "", "Path to the statement JSON produced by analyze")
	_ = exportCmd.MarkFlagRequired("statement")

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Archive pages that carry no transaction ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := exporter()
			if err != nil {
				return err
			}
			n, err := ex.Prune(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %d pages\n", n)
			return nil
		},
	}

	cmd.AddCommand(exportCmd, pruneCmd)
	return cmd
}

// uploadLocal copies path into the object store under prefix and returns the
// object name.
func uploadLocal(ctx context.Context, objects *app.Objects, path, prefix string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("uploadLocal: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectName := fmt.Sprintf("%s/%s-%s", prefix, uuid.New().String(), filepath.Base(path))
	if _, err := objects.Store.Upload(ctx, objectName, data, contentType); err != nil {
		return "", fmt.Errorf("uploadLocal: %w", err)
	}
	return objectName, nil
}

// readStatement loads a statement written by analyze. Both the bare
// statement and the /api/analyze response envelope are accepted.
func readStatement(path string) (*domain.Statement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("readStatement: %w", err)
	}

	var envelope struct {
		Analysis *domain.Statement `json:"analysis"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Analysis != nil {
		envelope.Analysis.Normalize()
		return envelope.Analysis, nil
	}

	st, err := pipeline.ParseStatement(string(data))
	if err != nil {
		return nil, fmt.Errorf("readStatement: %w", err)
	}
	return st, nil
}

func writeJSON(stdout io.Writer, path string, v any) error {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("writeJSON: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
