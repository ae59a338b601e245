package postgres

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-analyzer/internal/statement"
)

func TestSchema_CascadesTransactions(t *testing.T) {
	assert.Contains(t, Schema, "REFERENCES statements(id) ON DELETE CASCADE")
	for _, col := range transactionColumns {
		assert.Contains(t, Schema, "\t"+col+" ", "transactions column %q missing from schema", col)
	}
}

func TestTransactionRows(t *testing.T) {
	txID, stmtID := uuid.New(), uuid.New()
	rows, err := transactionRows([]statement.PersistedTransaction{
		{ID: txID.String(), StatementID: stmtID.String(), LineNo: 1, Date: "01/02/2024", Description: "Fee", Debit: 2.5, Balance: 97.5},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(transactionColumns))
	assert.Equal(t, []any{txID, stmtID, int32(1), "01/02/2024", "Fee", 2.5, 0.0, 97.5}, rows[0])

	_, err = transactionRows([]statement.PersistedTransaction{{ID: "t1", StatementID: stmtID.String()}})
	assert.Error(t, err)
}

func TestConnect_RequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), "")
	assert.Error(t, err)
}

// TestRepository_Integration runs against a real database when TEST_DATABASE_URL is set.
func TestRepository_Integration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	repo, err := NewRepository(ctx, url)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.EnsureSchema(ctx))

	rec := &statement.Record{
		AccountHolder: "Jane", AccountNumber: "N/A", BeginningBalance: 10, EndingBalance: 5,
		CurrencySymbol: "£", Warnings: []string{"skipped a line"},
		Transactions: []statement.Transaction{
			{Date: "01/01/2024", Description: "a", Debit: 2},
			{Date: "01/02/2024", Description: "b", Debit: 3},
		},
	}
	saved, err := repo.SaveStatement(ctx, rec, "jan.pdf", "")
	require.NoError(t, err)

	got, err := repo.GetStatement(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got.Record())

	list, err := repo.ListStatements(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, strings.EqualFold(saved.ID, list[0].ID))

	require.NoError(t, repo.DeleteStatement(ctx, saved.ID))
	_, err = repo.GetStatement(ctx, saved.ID)
	assert.ErrorIs(t, err, statement.ErrStatementNotFound)
}
