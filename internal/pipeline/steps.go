package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-analyzer/internal/archive"
	"github.com/dvloznov/statement-analyzer/internal/extraction"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/reconcile"
	"github.com/dvloznov/statement-analyzer/internal/statement"
	"github.com/dvloznov/statement-analyzer/internal/structuring"
)

// PipelineStep represents a single stage of statement analysis.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Upload    Upload
	TempPath  string
	SourceURI string
	Pages     []structuring.Page
	Record    *statement.Record
	Persisted *statement.PersistedStatement
	Enriched  *statement.Enriched
}

// SaveTempFileStep writes the upload to TEMP_DIR/<uuid><ext>.
type SaveTempFileStep struct {
	Dir string
}

func (s *SaveTempFileStep) Name() string { return "save_temp_file" }

func (s *SaveTempFileStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Upload.Body == nil {
		return fmt.Errorf("SaveTempFile: no upload body")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("SaveTempFile: create temp dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(state.Upload.Filename))
	path := filepath.Join(s.Dir, uuid.NewString()+ext)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("SaveTempFile: create %q: %w", path, err)
	}
	// Set before writing so a partial file is still removed.
	state.TempPath = path

	n, err := io.Copy(f, state.Upload.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("SaveTempFile: write %q: %w", path, err)
	}

	logger.FromContext(ctx).Debug().Str("path", path).Int64("bytes", n).Msg("Upload saved to temp file")
	return nil
}

// ArchiveStep copies the upload to long-term storage. Failures are logged, not returned.
type ArchiveStep struct {
	Archiver archive.Archiver
}

func (s *ArchiveStep) Name() string { return "archive" }

func (s *ArchiveStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Archiver == nil {
		return nil
	}
	log := logger.FromContext(ctx)

	uri, err := s.Archiver.Archive(ctx, state.TempPath, state.Upload.Filename)
	if err != nil {
		log.Warn().Err(err).Str("filename", state.Upload.Filename).Msg("Archiving upload failed, continuing")
		return nil
	}
	state.SourceURI = uri
	log.Info().Str("source_uri", uri).Msg("Upload archived")
	return nil
}

// StructureStep turns the temp file into ordered pages.
type StructureStep struct {
	Structurer structuring.Structurer
}

func (s *StructureStep) Name() string { return "structure" }

func (s *StructureStep) Execute(ctx context.Context, state *PipelineState) error {
	pages, err := s.Structurer.Structure(ctx, state.TempPath)
	if err != nil {
		return err
	}
	state.Pages = pages
	return nil
}

// ExtractStep produces the typed record from the pages.
type ExtractStep struct {
	Extractor extraction.Extractor
}

func (s *ExtractStep) Name() string { return "extract" }

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	rec, err := s.Extractor.Extract(ctx, state.Pages)
	if err != nil {
		return err
	}
	state.Record = rec
	return nil
}

// PersistStep mirrors the record into the repository. A nil repository disables it.
type PersistStep struct {
	Repo statement.Repository
}

func (s *PersistStep) Name() string { return "persist" }

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Repo == nil {
		return nil
	}
	ps, err := s.Repo.SaveStatement(ctx, state.Record, state.Upload.Filename, state.SourceURI)
	if err != nil {
		if !errors.Is(err, statement.ErrPersistence) {
			err = fmt.Errorf("%w: %w", statement.ErrPersistence, err)
		}
		return err
	}
	state.Persisted = ps
	logger.FromContext(ctx).Info().Str("statement_id", ps.ID).Msg("Statement persisted")
	return nil
}

// ReconcileStep attaches the summary and logs the verdict.
type ReconcileStep struct{}

func (s *ReconcileStep) Name() string { return "reconcile" }

func (s *ReconcileStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Enriched = reconcile.Enrich(state.Record)
	logVerdict(ctx, state.Enriched)
	return nil
}

func logVerdict(ctx context.Context, e *statement.Enriched) {
	log := logger.FromContext(ctx)
	ev := log.Info()
	msg := "Statement reconciled"
	if !e.Summary.IsConsistent {
		ev = log.Warn()
		msg = "Verification mismatch: calculated balance differs from statement ending balance"
	}
	ev.Int("transactions", len(e.Transactions)).
		Float64("beginning_balance", e.BeginningBalance).
		Float64("total_credits", e.Summary.TotalCredits).
		Float64("total_debits", e.Summary.TotalDebits).
		Float64("calculated_balance", e.Summary.CalculatedBalance).
		Float64("ending_balance", e.EndingBalance).
		Bool("is_consistent", e.Summary.IsConsistent).
		Msg(msg)
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %s failed: %w", step.Name(), err)
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %s failed: %w", step.Name(), err)
		}
	}
	return nil
}
