package bigquery

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	bq "github.com/dvloznov/imagexbot/internal/bigquery"
	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/store"
)

// FindAccountByEmailWithClient finds an account by case-insensitive email.
// Returns store.ErrNotFound if no account matches.
func FindAccountByEmailWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, email string) (*domain.Account, error) {
	normEmail := strings.ToLower(strings.TrimSpace(email))
	if normEmail == "" {
		return nil, fmt.Errorf("FindAccountByEmailWithClient: email cannot be empty")
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			account_id,
			name,
			email,
			password_hash,
			picture,
			created_ts
		FROM %s
		WHERE LOWER(email) = @email
		ORDER BY created_ts ASC
		LIMIT 1
	`, ds.table(accountsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "email", Value: normEmail},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindAccountByEmailWithClient: reading query: %w", err)
	}

	var row bq.AccountRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("FindAccountByEmailWithClient: %s: %w", normEmail, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("FindAccountByEmailWithClient: iterating: %w", err)
	}

	return row.Account(), nil
}

// InsertAccountWithClient inserts the account unless its email is already
// registered. The MERGE makes the uniqueness check and the insert one
// statement.
func InsertAccountWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, account *domain.Account) error {
	row := bq.NewAccountRow(account)

	q := client.Query(fmt.Sprintf(`
		MERGE %s T
		USING (SELECT @account_id AS account_id, @name AS name, @email AS email,
		              @password_hash AS password_hash, @picture AS picture, @created_ts AS created_ts) S
		ON LOWER(T.email) = LOWER(S.email)
		WHEN NOT MATCHED THEN
			INSERT (account_id, name, email, password_hash, picture, created_ts)
			VALUES (S.account_id, S.name, S.email, S.password_hash, S.picture, S.created_ts)
	`, ds.table(accountsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: row.AccountID},
		{Name: "name", Value: row.Name},
		{Name: "email", Value: row.Email},
		{Name: "password_hash", Value: row.PasswordHash},
		{Name: "picture", Value: row.Picture},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertAccountWithClient: running merge query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("InsertAccountWithClient: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("InsertAccountWithClient: job error: %w", err)
	}

	if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok && stats.NumDMLAffectedRows == 0 {
		return fmt.Errorf("InsertAccountWithClient: %s: %w", row.Email, store.ErrAlreadyExists)
	}

	return nil
}
