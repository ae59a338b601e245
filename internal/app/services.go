// Package app assembles the long-lived collaborators shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-analyzer/internal/archive"
	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/extraction"
	"github.com/dvloznov/statement-analyzer/internal/infra"
	"github.com/dvloznov/statement-analyzer/internal/llm"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/dvloznov/statement-analyzer/internal/statement"
	"github.com/dvloznov/statement-analyzer/internal/structuring"
)

// Services owns the storage and archive clients opened from a Config.
// Repo is nil for the "none" backend; Archiver is nil without GCS_BUCKET.
type Services struct {
	Config   *config.Config
	Repo     statement.Repository
	Archiver archive.Archiver

	log     zerolog.Logger
	closers []func() error
}

// Open connects the configured repository and, when a bucket is set, the archiver.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Services, error) {
	s := &Services{Config: cfg, log: log}

	repo, err := infra.OpenRepository(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	if repo != nil {
		s.Repo = repo
		s.closers = append(s.closers, repo.Close)
	}
	log.Info().Str("backend", cfg.StorageBackend).Msg("Statement storage ready")

	if cfg.GCSBucket != "" {
		a, err := archive.NewGCSArchiver(ctx, cfg.GCSBucket)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("Open: %w", err)
		}
		s.Archiver = a
		s.closers = append(s.closers, a.Close)
		log.Info().Str("bucket", cfg.GCSBucket).Msg("Upload archiving enabled")
	} else {
		log.Warn().Msg("No GCS bucket configured - uploads will not be archived")
	}

	return s, nil
}

// NewAnalyzer builds the statement pipeline on a fresh Gemini client.
func (s *Services) NewAnalyzer(ctx context.Context) (*pipeline.Analyzer, error) {
	gen, err := llm.NewGenerator(ctx, s.Config.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("NewAnalyzer: %w", err)
	}

	return pipeline.NewAnalyzer(pipeline.Deps{
		TempDir:    s.Config.TempDir,
		Structurer: structuring.NewGeminiStructurer(gen, s.Config.StructuringModel, s.Config.LLMTimeout),
		Extractor:  extraction.NewGeminiExtractor(gen, s.Config.ModelName, s.Config.LLMTimeout),
		Repo:       s.Repo,
		Archiver:   s.Archiver,
	})
}

// Close releases clients in reverse order of opening.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.log.Warn().Err(err).Msg("Failed to close client")
		}
	}
	s.closers = nil
}
