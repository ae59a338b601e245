package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"

	"github.com/dvloznov/statement-analyzer/internal/statement"
)

// BigQueryStatementRepository implements statement.Repository on BigQuery.
// It holds a shared client so each operation reuses one connection.
//
// Rows written by streaming insert sit in the streaming buffer for a while and
// cannot be removed by DML until flushed, so a delete shortly after a save fails.
type BigQueryStatementRepository struct {
	client *bigquery.Client
	ds     Dataset
	now    func() time.Time
}

var (
	_ statement.Repository    = (*BigQueryStatementRepository)(nil)
	_ statement.SchemaManager = (*BigQueryStatementRepository)(nil)
)

// NewBigQueryStatementRepository creates a client for project and targets dataset.
func NewBigQueryStatementRepository(ctx context.Context, project, dataset string) (*BigQueryStatementRepository, error) {
	if project == "" {
		return nil, fmt.Errorf("NewBigQueryStatementRepository: project is required")
	}
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryStatementRepository: creating client: %w", err)
	}
	return &BigQueryStatementRepository{
		client: client,
		ds:     Dataset{Project: project, Name: dataset},
		now:    time.Now,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryStatementRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// EnsureSchema creates the dataset and both tables when missing.
func (r *BigQueryStatementRepository) EnsureSchema(ctx context.Context) error {
	return EnsureSchemaWithClient(ctx, r.client, r.ds)
}

// SaveStatement inserts the statement row followed by its transactions.
func (r *BigQueryStatementRepository) SaveStatement(ctx context.Context, rec *statement.Record, filename, sourceURI string) (*statement.PersistedStatement, error) {
	if rec == nil {
		return nil, fmt.Errorf("SaveStatement: nil record: %w", statement.ErrPersistence)
	}
	ps := statement.NewPersisted(rec, filename, sourceURI)
	ps.ID = uuid.NewString()
	ps.CreatedAt = r.now().UTC()
	for i := range ps.Transactions {
		ps.Transactions[i].ID = uuid.NewString()
		ps.Transactions[i].StatementID = ps.ID
	}

	sr, txRows := ToRows(ps)
	if err := InsertStatementWithClient(ctx, r.client, r.ds, sr); err != nil {
		return nil, fmt.Errorf("SaveStatement: %w: %w", statement.ErrPersistence, err)
	}
	if err := InsertTransactionsWithClient(ctx, r.client, r.ds, txRows); err != nil {
		return nil, fmt.Errorf("SaveStatement: %w: %w", statement.ErrPersistence, err)
	}
	return ps, nil
}

// GetStatement loads a statement with its transactions.
func (r *BigQueryStatementRepository) GetStatement(ctx context.Context, id string) (*statement.PersistedStatement, error) {
	sr, err := GetStatementWithClient(ctx, r.client, r.ds, id)
	if err != nil {
		return nil, fmt.Errorf("GetStatement: %w: %w", statement.ErrPersistence, err)
	}
	if sr == nil {
		return nil, fmt.Errorf("GetStatement: %s: %w", id, statement.ErrStatementNotFound)
	}

	txRows, err := ListTransactionsByStatementWithClient(ctx, r.client, r.ds, id)
	if err != nil {
		return nil, fmt.Errorf("GetStatement: %w: %w", statement.ErrPersistence, err)
	}
	return FromRows(sr, txRows), nil
}

// ListStatements returns statement headers, newest first.
func (r *BigQueryStatementRepository) ListStatements(ctx context.Context, limit int) ([]*statement.PersistedStatement, error) {
	rows, err := ListStatementsWithClient(ctx, r.client, r.ds, limit)
	if err != nil {
		return nil, fmt.Errorf("ListStatements: %w: %w", statement.ErrPersistence, err)
	}
	out := make([]*statement.PersistedStatement, 0, len(rows))
	for _, sr := range rows {
		out = append(out, FromRows(sr, nil))
	}
	return out, nil
}

// DeleteStatement removes a statement and its transactions.
func (r *BigQueryStatementRepository) DeleteStatement(ctx context.Context, id string) error {
	n, err := DeleteStatementWithClient(ctx, r.client, r.ds, id)
	if err != nil {
		return fmt.Errorf("DeleteStatement: %w: %w", statement.ErrPersistence, err)
	}
	if n == 0 {
		return fmt.Errorf("DeleteStatement: %s: %w", id, statement.ErrStatementNotFound)
	}
	return nil
}

// EnsureSchemaWithClient creates the dataset and the statement tables, skipping any that already exist.
func EnsureSchemaWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) error {
	dataset := client.DatasetInProject(ds.Project, ds.Name)
	if err := dataset.Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("EnsureSchema: creating dataset: %w", err)
	}

	tables := []struct {
		name string
		row  any
	}{
		{statementsTable, StatementRow{}},
		{transactionsTable, TransactionRow{}},
	}
	for _, t := range tables {
		schema, err := bigquery.InferSchema(t.row)
		if err != nil {
			return fmt.Errorf("EnsureSchema: inferring %s schema: %w", t.name, err)
		}
		meta := &bigquery.TableMetadata{
			Schema: schema,
			TimePartitioning: &bigquery.TimePartitioning{
				Type:  bigquery.DayPartitioningType,
				Field: "created_ts",
			},
			Clustering: &bigquery.Clustering{Fields: []string{"statement_id"}},
		}
		if err := dataset.Table(t.name).Create(ctx, meta); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("EnsureSchema: creating table %s: %w", t.name, err)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusConflict
}
