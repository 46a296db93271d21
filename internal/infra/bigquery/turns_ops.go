package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	bq "github.com/dvloznov/imagexbot/internal/bigquery"
	"github.com/dvloznov/imagexbot/internal/domain"
)

// InsertTurnsWithClient streams all turns into the chats table with a single
// insert request. Rows carry their turn ID as insert ID so a retried request
// is de-duplicated by BigQuery.
func InsertTurnsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, turns []*domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	savers := make([]*bigquery.StructSaver, 0, len(turns))
	for _, t := range turns {
		savers = append(savers, &bigquery.StructSaver{
			Struct:   bq.NewTurnRow(t),
			InsertID: t.ID,
		})
	}

	inserter := client.DatasetInProject(ds.ProjectID, ds.DatasetID).Table(turnsTable).Inserter()
	if err := inserter.Put(ctx, savers); err != nil {
		return fmt.Errorf("InsertTurnsWithClient: inserting rows: %w", err)
	}

	return nil
}

// FindTurnsByUserWithClient returns every turn of userID, oldest first.
func FindTurnsByUserWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) ([]*domain.Turn, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			turn_id,
			user_id,
			role,
			content,
			image_url,
			tokens_used,
			created_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY created_ts ASC, role DESC
	`, ds.table(turnsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindTurnsByUserWithClient: reading query: %w", err)
	}

	turns := []*domain.Turn{}
	for {
		var row bq.TurnRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("FindTurnsByUserWithClient: iterating: %w", err)
		}
		turns = append(turns, row.Turn())
	}

	return turns, nil
}
