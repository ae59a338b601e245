package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// DeleteStatementWithClient deletes a statement's transactions and then the statement.
// It reports how many statement rows were removed.
func DeleteStatementWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, statementID string) (int64, error) {
	if _, err := runDelete(ctx, client, ds.table(transactionsTable), statementID); err != nil {
		return 0, fmt.Errorf("deleting transactions: %w", err)
	}

	n, err := runDelete(ctx, client, ds.table(statementsTable), statementID)
	if err != nil {
		return 0, fmt.Errorf("deleting statement: %w", err)
	}
	return n, nil
}

func runDelete(ctx context.Context, client *bigquery.Client, table, statementID string) (int64, error) {
	q := client.Query(`
		DELETE FROM ` + table + `
		WHERE statement_id = @statement_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: statementID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}
