package notionsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/logger"
)

// BatchSize is the page size used when reading the database.
const BatchSize = 100

// ErrNotConfigured is returned when no database is configured.
var ErrNotConfigured = errors.New("notion export is not configured")

// ExportResult counts what an export did.
type ExportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Exporter writes statement transactions to a Notion database, one page per
// transaction. Pages already present (by Transaction ID) are skipped.
type Exporter struct {
	client     NotionService
	databaseID string
}

// NewExporter creates an Exporter. A nil client or empty databaseID makes
// every export fail with ErrNotConfigured.
func NewExporter(client NotionService, databaseID string) *Exporter {
	return &Exporter{client: client, databaseID: databaseID}
}

// Enabled reports whether exports can run.
func (e *Exporter) Enabled() bool {
	return e != nil && e.client != nil && e.databaseID != ""
}

// Export creates a page for every transaction not yet in the database. With
// dryRun set nothing is written. Individual page failures are logged and
// counted; only a failure to read the database fails the export.
func (e *Exporter) Export(ctx context.Context, st *domain.Statement, dryRun bool) (*ExportResult, error) {
	if !e.Enabled() {
		return nil, ErrNotConfigured
	}
	log := logger.FromContext(ctx)

	if st == nil {
		st = &domain.Statement{}
	}
	st.Normalize()

	existing, err := e.existingIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("Export: %w", err)
	}

	log.Info().
		Str("account", string(st.AccountName)).
		Int("transactions", len(st.Transactions)).
		Int("existing_pages", len(existing)).
		Bool("dry_run", dryRun).
		Msg("Starting statement export to Notion")

	res := &ExportResult{}
	for _, tx := range st.Transactions {
		id := TransactionID(st.AccountName, tx)
		if existing[id] {
			res.Skipped++
			continue
		}
		// Identical rows within one statement collapse to one page.
		existing[id] = true

		if dryRun {
			log.Info().Str("transaction_id", id).Msg("[DRY RUN] Would create Notion page")
			res.Created++
			continue
		}

		page, err := e.client.CreatePage(ctx, e.databaseID, TransactionToNotionProperties(st.AccountName, tx))
		if err != nil {
			log.Warn().Err(err).Str("transaction_id", id).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		log.Debug().Str("transaction_id", id).Str("page_id", string(page.ID)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("Statement export completed")

	return res, nil
}

// Prune archives pages that carry no Transaction ID, left behind by manual
// edits of the database. It returns the number of archived pages.
func (e *Exporter) Prune(ctx context.Context, dryRun bool) (int, error) {
	if !e.Enabled() {
		return 0, ErrNotConfigured
	}
	log := logger.FromContext(ctx)

	pages, err := queryAllNotionPages(ctx, e.client, e.databaseID)
	if err != nil {
		return 0, fmt.Errorf("Prune: %w", err)
	}

	var archived int
	for _, page := range pages {
		if extractTransactionID(page) != "" {
			continue
		}
		if dryRun {
			log.Info().Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive Notion page")
			archived++
			continue
		}
		if err := e.client.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive Notion page")
			continue
		}
		archived++
	}
	return archived, nil
}

func (e *Exporter) existingIDs(ctx context.Context) (map[string]bool, error) {
	pages, err := queryAllNotionPages(ctx, e.client, e.databaseID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(pages))
	for _, page := range pages {
		if id := extractTransactionID(page); id != "" {
			ids[id] = true
		}
	}
	return ids, nil
}

// queryAllNotionPages reads every page of a database, following cursors.
func queryAllNotionPages(ctx context.Context, client NotionService, databaseID string) ([]notionapi.Page, error) {
	var (
		all    []notionapi.Page
		cursor notionapi.Cursor
	)
	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: BatchSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}
