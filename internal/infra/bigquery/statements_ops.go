package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// Dataset names the BigQuery project and dataset holding the statement tables.
type Dataset struct {
	Project string
	Name    string
}

func (d Dataset) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.Project, d.Name, name)
}

const statementSelect = `
		SELECT
			statement_id,
			filename,
			account_holder,
			account_number,
			period_start_raw,
			period_end_raw,
			period_start,
			period_end,
			beginning_balance,
			ending_balance,
			currency_symbol,
			warnings,
			source_uri,
			created_ts
		FROM `

// InsertStatementWithClient inserts a single StatementRow.
func InsertStatementWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *StatementRow) error {
	inserter := client.DatasetInProject(ds.Project, ds.Name).Table(statementsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertStatement: inserting row: %w", err)
	}
	return nil
}

// GetStatementWithClient returns the statement row for id, or nil if there is none.
func GetStatementWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, id string) (*StatementRow, error) {
	q := client.Query(statementSelect + ds.table(statementsTable) + `
		WHERE statement_id = @statement_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetStatement: query read: %w", err)
	}

	var row StatementRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetStatement: iter next: %w", err)
	}
	return &row, nil
}

// ListStatementsWithClient returns statement rows, newest first.
func ListStatementsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, limit int) ([]*StatementRow, error) {
	query := statementSelect + ds.table(statementsTable) + `
		ORDER BY created_ts DESC, statement_id
	`
	var params []bigquery.QueryParameter
	if limit > 0 {
		query += ` LIMIT @limit`
		params = append(params, bigquery.QueryParameter{Name: "limit", Value: int64(limit)})
	}

	q := client.Query(query)
	q.Parameters = params
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListStatements: reading query: %w", err)
	}

	rows := []*StatementRow{}
	for {
		var row StatementRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListStatements: iterating: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
