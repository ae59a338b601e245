package statement

import "context"

// Repository persists extracted statements and their transactions.
type Repository interface {
	// SaveStatement stores rec and its transactions atomically and returns the stored copy.
	SaveStatement(ctx context.Context, rec *Record, filename, sourceURI string) (*PersistedStatement, error)

	// GetStatement returns a statement with its transactions, or ErrStatementNotFound.
	GetStatement(ctx context.Context, id string) (*PersistedStatement, error)

	// ListStatements returns the newest statements first, without transactions.
	// A limit <= 0 means no limit.
	ListStatements(ctx context.Context, limit int) ([]*PersistedStatement, error)

	// DeleteStatement removes a statement and all of its transactions.
	DeleteStatement(ctx context.Context, id string) error

	// Close releases the underlying client.
	Close() error
}

// SchemaManager is implemented by repositories that can create their own tables.
type SchemaManager interface {
	EnsureSchema(ctx context.Context) error
}
