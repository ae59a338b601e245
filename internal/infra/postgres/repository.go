// Package postgres stores statements in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/statement-analyzer/internal/statement"
)

// Schema creates the statements and transactions tables. Deleting a statement
// cascades to its transactions.
const Schema = `
CREATE TABLE IF NOT EXISTS statements (
	id                UUID PRIMARY KEY,
	filename          TEXT NOT NULL,
	account_holder    TEXT NOT NULL,
	account_number    TEXT NOT NULL,
	period_start      TEXT NOT NULL,
	period_end        TEXT NOT NULL,
	beginning_balance DOUBLE PRECISION NOT NULL,
	ending_balance    DOUBLE PRECISION NOT NULL,
	currency_symbol   TEXT NOT NULL DEFAULT '$',
	warnings          TEXT[] NOT NULL DEFAULT '{}',
	source_uri        TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transactions (
	id           UUID PRIMARY KEY,
	statement_id UUID NOT NULL REFERENCES statements(id) ON DELETE CASCADE,
	line_no      INTEGER NOT NULL,
	date         TEXT NOT NULL,
	description  TEXT NOT NULL,
	debit        DOUBLE PRECISION NOT NULL,
	credit       DOUBLE PRECISION NOT NULL,
	balance      DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS transactions_statement_line_idx ON transactions (statement_id, line_no);
`

var transactionColumns = []string{
	"id", "statement_id", "line_no", "date", "description", "debit", "credit", "balance",
}

// Repository implements statement.Repository on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for databaseURL and pings it.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("Connect: DATABASE_URL is not set")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("Connect: parse database URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 0
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("Connect: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("Connect: ping: %w", err)
	}
	return pool, nil
}

// NewRepository connects to databaseURL.
func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	pool, err := Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// NewRepositoryWithPool wraps an existing pool.
func NewRepositoryWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the tables if they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("EnsureSchema: %w", err)
	}
	return nil
}

// SaveStatement inserts the statement row and copies its transactions in one transaction.
func (r *Repository) SaveStatement(ctx context.Context, rec *statement.Record, filename, sourceURI string) (*statement.PersistedStatement, error) {
	if rec == nil {
		return nil, fmt.Errorf("SaveStatement: nil record: %w", statement.ErrPersistence)
	}
	ps := statement.NewPersisted(rec, filename, sourceURI)
	ps.ID = uuid.NewString()
	for i := range ps.Transactions {
		ps.Transactions[i].ID = uuid.NewString()
		ps.Transactions[i].StatementID = ps.ID
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("SaveStatement: begin: %w: %w", statement.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO statements (id, filename, account_holder, account_number, period_start, period_end,
			beginning_balance, ending_balance, currency_symbol, warnings, source_uri)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`,
		ps.ID, ps.Filename, ps.AccountHolder, ps.AccountNumber, ps.PeriodStart, ps.PeriodEnd,
		ps.BeginningBalance, ps.EndingBalance, ps.CurrencySymbol, ps.Warnings, ps.SourceURI,
	).Scan(&ps.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("SaveStatement: insert statement: %w: %w", statement.ErrPersistence, err)
	}

	if len(ps.Transactions) > 0 {
		rows, err := transactionRows(ps.Transactions)
		if err != nil {
			return nil, fmt.Errorf("SaveStatement: %w: %w", statement.ErrPersistence, err)
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"transactions"}, transactionColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return nil, fmt.Errorf("SaveStatement: copy transactions: %w: %w", statement.ErrPersistence, err)
		}
		if int(n) != len(ps.Transactions) {
			return nil, fmt.Errorf("SaveStatement: copied %d of %d transactions: %w", n, len(ps.Transactions), statement.ErrPersistence)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("SaveStatement: commit: %w: %w", statement.ErrPersistence, err)
	}
	return ps, nil
}

// transactionRows builds COPY rows. COPY uses the binary protocol, so IDs are sent as uuid.UUID.
func transactionRows(txs []statement.PersistedTransaction) ([][]any, error) {
	rows := make([][]any, 0, len(txs))
	for _, t := range txs {
		id, err := uuid.Parse(t.ID)
		if err != nil {
			return nil, fmt.Errorf("transaction id %q: %w", t.ID, err)
		}
		stmtID, err := uuid.Parse(t.StatementID)
		if err != nil {
			return nil, fmt.Errorf("statement id %q: %w", t.StatementID, err)
		}
		rows = append(rows, []any{id, stmtID, int32(t.LineNo), t.Date, t.Description, t.Debit, t.Credit, t.Balance})
	}
	return rows, nil
}

const statementColumns = `id::text, filename, account_holder, account_number, period_start, period_end,
	beginning_balance, ending_balance, currency_symbol, warnings, source_uri, created_at`

func scanStatement(row pgx.Row) (*statement.PersistedStatement, error) {
	var ps statement.PersistedStatement
	err := row.Scan(&ps.ID, &ps.Filename, &ps.AccountHolder, &ps.AccountNumber, &ps.PeriodStart, &ps.PeriodEnd,
		&ps.BeginningBalance, &ps.EndingBalance, &ps.CurrencySymbol, &ps.Warnings, &ps.SourceURI, &ps.CreatedAt)
	if err != nil {
		return nil, err
	}
	if ps.Warnings == nil {
		ps.Warnings = []string{}
	}
	return &ps, nil
}

// GetStatement implements statement.Repository.
func (r *Repository) GetStatement(ctx context.Context, id string) (*statement.PersistedStatement, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("GetStatement %s: %w", id, statement.ErrStatementNotFound)
	}

	ps, err := scanStatement(r.pool.QueryRow(ctx, `SELECT `+statementColumns+` FROM statements WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("GetStatement %s: %w", id, statement.ErrStatementNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetStatement %s: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id::text, statement_id::text, line_no, date, description, debit, credit, balance
		FROM transactions
		WHERE statement_id = $1
		ORDER BY line_no`, id)
	if err != nil {
		return nil, fmt.Errorf("GetStatement %s: query transactions: %w", id, err)
	}
	defer rows.Close()

	ps.Transactions = []statement.PersistedTransaction{}
	for rows.Next() {
		var t statement.PersistedTransaction
		if err := rows.Scan(&t.ID, &t.StatementID, &t.LineNo, &t.Date, &t.Description, &t.Debit, &t.Credit, &t.Balance); err != nil {
			return nil, fmt.Errorf("GetStatement %s: scan transaction: %w", id, err)
		}
		ps.Transactions = append(ps.Transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetStatement %s: iterate transactions: %w", id, err)
	}
	return ps, nil
}

// ListStatements implements statement.Repository.
func (r *Repository) ListStatements(ctx context.Context, limit int) ([]*statement.PersistedStatement, error) {
	query := `SELECT ` + statementColumns + ` FROM statements ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListStatements: %w", err)
	}
	defer rows.Close()

	out := []*statement.PersistedStatement{}
	for rows.Next() {
		ps, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("ListStatements: scan: %w", err)
		}
		out = append(out, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListStatements: iterate: %w", err)
	}
	return out, nil
}

// DeleteStatement implements statement.Repository. Transactions go with it via ON DELETE CASCADE.
func (r *Repository) DeleteStatement(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("DeleteStatement %s: %w", id, statement.ErrStatementNotFound)
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM statements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DeleteStatement %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("DeleteStatement %s: %w", id, statement.ErrStatementNotFound)
	}
	return nil
}

// Close closes the pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

var (
	_ statement.Repository    = (*Repository)(nil)
	_ statement.SchemaManager = (*Repository)(nil)
)
