package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/store"
)

const (
	turnsTable    = "chats"
	accountsTable = "accounts"
)

// Dataset identifies where the tables live.
type Dataset struct {
	ProjectID string
	DatasetID string
}

func (d Dataset) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.ProjectID, d.DatasetID, name)
}

// Repository is the BigQuery implementation of store.Repository. It holds a
// shared BigQuery client to avoid creating a new connection per operation.
type Repository struct {
	client  *bigquery.Client
	dataset Dataset
}

// NewRepository creates a Repository with a shared BigQuery client.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewRepository: project ID is required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{
		client:  client,
		dataset: Dataset{ProjectID: projectID, DatasetID: datasetID},
	}, nil
}

// Client exposes the underlying client for schema management.
func (r *Repository) Client() *bigquery.Client {
	return r.client
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertTurns delegates to InsertTurnsWithClient with the shared client.
func (r *Repository) InsertTurns(ctx context.Context, turns []*domain.Turn) error {
	return InsertTurnsWithClient(ctx, r.client, r.dataset, turns)
}

// FindTurnsByUser delegates to FindTurnsByUserWithClient with the shared client.
func (r *Repository) FindTurnsByUser(ctx context.Context, userID string) ([]*domain.Turn, error) {
	return FindTurnsByUserWithClient(ctx, r.client, r.dataset, userID)
}

// FindAccountByEmail delegates to FindAccountByEmailWithClient with the shared client.
func (r *Repository) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return FindAccountByEmailWithClient(ctx, r.client, r.dataset, email)
}

// InsertAccount delegates to InsertAccountWithClient with the shared client.
func (r *Repository) InsertAccount(ctx context.Context, account *domain.Account) error {
	return InsertAccountWithClient(ctx, r.client, r.dataset, account)
}

var _ store.Repository = (*Repository)(nil)
