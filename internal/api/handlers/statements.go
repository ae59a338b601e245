package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-analyzer/internal/api/middleware"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/dvloznov/statement-analyzer/internal/reconcile"
	"github.com/dvloznov/statement-analyzer/internal/statement"
)

// Analyzer runs one upload through the statement pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error)
}

// StatementsHandler handles parsing and persisted-statement endpoints.
type StatementsHandler struct {
	analyzer       Analyzer
	repo           statement.Repository
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewStatementsHandler creates a new statements handler. repo may be nil when
// persistence is disabled; the statement endpoints then answer 503.
func NewStatementsHandler(analyzer Analyzer, repo statement.Repository, maxUploadBytes int64, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		analyzer:       analyzer,
		repo:           repo,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// Parse handles POST /api/v1/parse
func (h *StatementsHandler) Parse(w http.ResponseWriter, r *http.Request) {
	file, header, err := openUpload(w, r, h.maxUploadBytes)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	defer file.Close()

	ctx := r.Context()
	res, err := h.analyzer.Analyze(ctx, pipeline.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		logger.FromContext(ctx).Error().
			Err(err).
			Str("kind", statement.ErrorKind(err)).
			Str("filename", header.Filename).
			Msg("Statement processing failed")
		writeProcessingError(w, err)
		return
	}

	if res.StatementID != "" {
		w.Header().Set("X-Statement-ID", res.StatementID)
	}
	middleware.WriteJSON(w, http.StatusOK, res.Statement)
}

func (h *StatementsHandler) requireRepo(w http.ResponseWriter) bool {
	if h.repo == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Statement storage is disabled")
		return false
	}
	return true
}

// ListStatements handles GET /api/v1/statements
func (h *StatementsHandler) ListStatements(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	list, err := h.repo.ListStatements(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list statements")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list statements")
		return
	}
	if list == nil {
		list = []*statement.PersistedStatement{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"statements": list,
		"count":      len(list),
	})
}

// loadStatement fetches id and writes the error response itself when it fails.
func (h *StatementsHandler) loadStatement(w http.ResponseWriter, r *http.Request, id string) (*statement.PersistedStatement, bool) {
	if !h.requireRepo(w) {
		return nil, false
	}
	ps, err := h.repo.GetStatement(r.Context(), id)
	if errors.Is(err, statement.ErrStatementNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Statement not found")
		return nil, false
	}
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", id).Msg("Failed to get statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get statement")
		return nil, false
	}
	return ps, true
}

// StoredStatement is a persisted statement re-enriched with its summary.
type StoredStatement struct {
	*statement.Enriched
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	SourceURI string `json:"source_uri,omitempty"`
	CreatedAt string `json:"created_at"`
}

// GetStatement handles GET /api/v1/statements/{id}
func (h *StatementsHandler) GetStatement(w http.ResponseWriter, r *http.Request, id string) {
	ps, ok := h.loadStatement(w, r, id)
	if !ok {
		return
	}

	middleware.WriteJSON(w, http.StatusOK, StoredStatement{
		Enriched:  reconcile.Enrich(ps.Record()),
		ID:        ps.ID,
		Filename:  ps.Filename,
		SourceURI: ps.SourceURI,
		CreatedAt: ps.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

// DeleteStatement handles DELETE /api/v1/statements/{id}
func (h *StatementsHandler) DeleteStatement(w http.ResponseWriter, r *http.Request, id string) {
	if !h.requireRepo(w) {
		return
	}

	err := h.repo.DeleteStatement(r.Context(), id)
	if errors.Is(err, statement.ErrStatementNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Statement not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", id).Msg("Failed to delete statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete statement")
		return
	}

	h.log.Info().Str("statement_id", id).Msg("Statement deleted")
	w.WriteHeader(http.StatusNoContent)
}

// ExportStatement handles GET /api/v1/statements/{id}/export
func (h *StatementsHandler) ExportStatement(w http.ResponseWriter, r *http.Request, id string) {
	req, ok := parseExportQuery(w, r)
	if !ok {
		return
	}
	ps, ok := h.loadStatement(w, r, id)
	if !ok {
		return
	}
	writeExport(w, req, ps.Record().Transactions)
}
