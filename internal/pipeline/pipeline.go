// Package pipeline runs one uploaded statement through structuring, extraction,
// persistence and reconciliation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/archive"
	"github.com/dvloznov/statement-analyzer/internal/extraction"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/statement"
	"github.com/dvloznov/statement-analyzer/internal/structuring"
)

// ErrUnsupportedFile is returned for uploads whose extension is not a PDF or image.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Upload is an incoming statement file.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Result is what Analyze returns for a successful upload.
type Result struct {
	Statement   *statement.Enriched
	StatementID string // empty when persistence is disabled
	SourceURI   string // empty when archiving is disabled or failed
}

// Deps wires the analyzer's collaborators. Repo and Archiver may be nil.
type Deps struct {
	TempDir    string
	Structurer structuring.Structurer
	Extractor  extraction.Extractor
	Repo       statement.Repository
	Archiver   archive.Archiver
}

// Analyzer owns the per-upload pipeline.
type Analyzer struct {
	deps Deps
}

// NewAnalyzer creates an Analyzer. Structurer and Extractor are required.
func NewAnalyzer(deps Deps) (*Analyzer, error) {
	if deps.Structurer == nil || deps.Extractor == nil {
		return nil, fmt.Errorf("NewAnalyzer: structurer and extractor are required")
	}
	if deps.TempDir == "" {
		deps.TempDir = os.TempDir()
	}
	return &Analyzer{deps: deps}, nil
}

// CheckFilename rejects names without a supported extension.
func CheckFilename(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(structuring.SupportedExtensions(), ext) {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFile, filename,
			strings.Join(structuring.SupportedExtensions(), ", "))
	}
	return nil
}

func (a *Analyzer) pipeline() *Pipeline {
	return NewPipeline(
		&SaveTempFileStep{Dir: a.deps.TempDir},
		&ArchiveStep{Archiver: a.deps.Archiver},
		&StructureStep{Structurer: a.deps.Structurer},
		&ExtractStep{Extractor: a.deps.Extractor},
		&PersistStep{Repo: a.deps.Repo},
		&ReconcileStep{},
	)
}

// Analyze runs the full pipeline for up. The temp file it creates is removed
// before Analyze returns, whether the run succeeds, fails or panics.
func (a *Analyzer) Analyze(ctx context.Context, up Upload) (*Result, error) {
	if err := CheckFilename(up.Filename); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With().Str("filename", up.Filename).Logger()
	ctx = logger.WithContext(ctx, log)

	state := &PipelineState{Upload: up}
	defer removeTemp(ctx, state)

	start := time.Now()
	if err := a.pipeline().Execute(ctx, state); err != nil {
		log.Error().Err(err).Str("kind", statement.ErrorKind(err)).Dur("duration", time.Since(start)).Msg("Statement analysis failed")
		return nil, err
	}

	res := &Result{Statement: state.Enriched, SourceURI: state.SourceURI}
	if state.Persisted != nil {
		res.StatementID = state.Persisted.ID
	}
	log.Info().Dur("duration", time.Since(start)).Msg("Statement analysis complete")
	return res, nil
}

func removeTemp(ctx context.Context, state *PipelineState) {
	if state.TempPath == "" {
		return
	}
	if err := os.Remove(state.TempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.FromContext(ctx).Warn().Err(err).Str("path", state.TempPath).Msg("Failed to remove temp file")
		return
	}
	logger.FromContext(ctx).Debug().Str("path", state.TempPath).Msg("Temp file removed")
}
