// Package infra opens the statement repository selected by configuration.
package infra

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/infra/bigquery"
	"github.com/dvloznov/statement-analyzer/internal/infra/memory"
	"github.com/dvloznov/statement-analyzer/internal/infra/postgres"
	"github.com/dvloznov/statement-analyzer/internal/statement"
)

// OpenRepository returns the repository for cfg.StorageBackend.
// The "none" backend yields a nil repository; callers skip persistence then.
func OpenRepository(ctx context.Context, cfg *config.Config) (statement.Repository, error) {
	switch cfg.StorageBackend {
	case config.StorageNone:
		return nil, nil
	case config.StorageMemory, "":
		return memory.NewRepository(), nil
	case config.StorageBigQuery:
		repo, err := bigquery.NewBigQueryStatementRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, fmt.Errorf("OpenRepository: %w", err)
		}
		return repo, nil
	case config.StoragePostgres:
		repo, err := postgres.NewRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("OpenRepository: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("OpenRepository: unknown storage backend %q", cfg.StorageBackend)
	}
}

// EnsureSchema creates backing tables when repo manages a schema.
func EnsureSchema(ctx context.Context, repo statement.Repository) error {
	sm, ok := repo.(statement.SchemaManager)
	if !ok {
		return nil
	}
	if err := sm.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("EnsureSchema: %w", err)
	}
	return nil
}
