package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// InsertTransactionsWithClient streams a batch of TransactionRow into the transactions table.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.DatasetInProject(ds.Project, ds.Name).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// ListTransactionsByStatementWithClient returns the transactions of one statement in line order.
func ListTransactionsByStatementWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, statementID string) ([]*TransactionRow, error) {
	q := client.Query(`
		SELECT
			transaction_id,
			statement_id,
			line_no,
			date_raw,
			transaction_date,
			description,
			debit,
			credit,
			balance,
			created_ts
		FROM ` + ds.table(transactionsTable) + `
		WHERE statement_id = @statement_id
		ORDER BY line_no
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: statementID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsByStatement: query read: %w", err)
	}

	rows := []*TransactionRow{}
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactionsByStatement: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
