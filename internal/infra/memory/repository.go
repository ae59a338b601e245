// Package memory is an in-process statement repository for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-analyzer/internal/statement"
)

// Repository keeps statements in a map. It is safe for concurrent use;
// data is lost on restart.
type Repository struct {
	mu         sync.RWMutex
	statements map[string]*statement.PersistedStatement
	now        func() time.Time
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		statements: make(map[string]*statement.PersistedStatement),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SaveStatement implements statement.Repository.
func (r *Repository) SaveStatement(ctx context.Context, rec *statement.Record, filename, sourceURI string) (*statement.PersistedStatement, error) {
	if rec == nil {
		return nil, fmt.Errorf("SaveStatement: nil record: %w", statement.ErrPersistence)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("SaveStatement: %w: %w", statement.ErrPersistence, err)
	}

	ps := statement.NewPersisted(rec, filename, sourceURI)
	ps.ID = uuid.NewString()
	ps.CreatedAt = r.now()
	for i := range ps.Transactions {
		ps.Transactions[i].ID = uuid.NewString()
		ps.Transactions[i].StatementID = ps.ID
	}

	r.mu.Lock()
	r.statements[ps.ID] = clone(ps, true)
	r.mu.Unlock()

	return ps, nil
}

// GetStatement implements statement.Repository.
func (r *Repository) GetStatement(ctx context.Context, id string) (*statement.PersistedStatement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ps, ok := r.statements[id]
	if !ok {
		return nil, fmt.Errorf("GetStatement %s: %w", id, statement.ErrStatementNotFound)
	}
	return clone(ps, true), nil
}

// ListStatements implements statement.Repository.
func (r *Repository) ListStatements(ctx context.Context, limit int) ([]*statement.PersistedStatement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*statement.PersistedStatement, 0, len(r.statements))
	for _, ps := range r.statements {
		out = append(out, clone(ps, false))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// DeleteStatement implements statement.Repository.
func (r *Repository) DeleteStatement(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.statements[id]; !ok {
		return fmt.Errorf("DeleteStatement %s: %w", id, statement.ErrStatementNotFound)
	}
	delete(r.statements, id)
	return nil
}

// EnsureSchema is a no-op.
func (r *Repository) EnsureSchema(ctx context.Context) error { return nil }

// Close is a no-op.
func (r *Repository) Close() error { return nil }

func clone(ps *statement.PersistedStatement, withTransactions bool) *statement.PersistedStatement {
	c := *ps
	c.Warnings = append([]string{}, ps.Warnings...)
	c.Transactions = nil
	if withTransactions {
		c.Transactions = append([]statement.PersistedTransaction{}, ps.Transactions...)
	}
	return &c
}

var (
	_ statement.Repository    = (*Repository)(nil)
	_ statement.SchemaManager = (*Repository)(nil)
)
