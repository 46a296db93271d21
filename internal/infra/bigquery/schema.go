package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	bq "github.com/dvloznov/imagexbot/internal/bigquery"
)

// TableSpec describes one managed table.
type TableSpec struct {
	Name       string
	Row        any
	Partitions string
	Clustering []string
}

// Tables lists every table the repository reads or writes.
func Tables() []TableSpec {
	return []TableSpec{
		{Name: turnsTable, Row: bq.TurnRow{}, Partitions: "created_ts", Clustering: []string{"user_id"}},
		{Name: accountsTable, Row: bq.AccountRow{}, Clustering: []string{"email"}},
	}
}

// EnsureSchema creates the dataset and any missing table. Existing tables
// are left untouched. It returns the names of the tables it created.
func EnsureSchema(ctx context.Context, client *bigquery.Client, datasetID, location string) ([]string, error) {
	ds := client.Dataset(datasetID)
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: location}); err != nil && !isAlreadyExists(err) {
		return nil, fmt.Errorf("EnsureSchema: creating dataset %s: %w", datasetID, err)
	}

	created := []string{}
	for _, spec := range Tables() {
		schema, err := bigquery.InferSchema(spec.Row)
		if err != nil {
			return created, fmt.Errorf("EnsureSchema: inferring schema for %s: %w", spec.Name, err)
		}

		meta := &bigquery.TableMetadata{Schema: schema}
		if spec.Partitions != "" {
			meta.TimePartitioning = &bigquery.TimePartitioning{Type: bigquery.DayPartitioningType, Field: spec.Partitions}
		}
		if len(spec.Clustering) > 0 {
			meta.Clustering = &bigquery.Clustering{Fields: spec.Clustering}
		}

		err = ds.Table(spec.Name).Create(ctx, meta)
		if isAlreadyExists(err) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("EnsureSchema: creating table %s: %w", spec.Name, err)
		}
		created = append(created, spec.Name)
	}

	return created, nil
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}
