package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-analyzer/internal/api/middleware"
	"github.com/dvloznov/statement-analyzer/internal/export"
	"github.com/dvloznov/statement-analyzer/internal/statement"
)

// maxExportBody bounds a posted statement document.
const maxExportBody = 10 << 20

type exportRequest struct {
	format export.Format
	filter export.Filter
}

// parseExportQuery reads format, search and type. It writes a 400 itself on bad input.
func parseExportQuery(w http.ResponseWriter, r *http.Request) (exportRequest, bool) {
	q := r.URL.Query()

	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return exportRequest{}, false
	}
	typ, err := export.ParseFilterType(q.Get("type"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return exportRequest{}, false
	}

	return exportRequest{
		format: format,
		filter: export.Filter{Search: q.Get("search"), Type: typ},
	}, true
}

// writeExport sends the filtered view of txs as an attachment.
func writeExport(w http.ResponseWriter, req exportRequest, txs []statement.Transaction) {
	rows := req.filter.Apply(txs)

	var buf bytes.Buffer
	if err := export.Write(&buf, req.format, rows); err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to render export")
		return
	}

	w.Header().Set("Content-Type", req.format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.format.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Row-Count", strconv.Itoa(len(rows)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ExportHandler exports a statement document posted by the client.
type ExportHandler struct {
	log zerolog.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(log zerolog.Logger) *ExportHandler {
	return &ExportHandler{log: log}
}

// Export handles POST /api/v1/export
// The body is a parse response or a bare extraction record; a summary field is ignored.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	req, ok := parseExportQuery(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxExportBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	rec, err := statement.Decode(body)
	if err != nil {
		var invalid *statement.InvalidExtractionError
		if errors.As(err, &invalid) {
			h.log.Debug().Int("violations", len(invalid.Violations)).Msg("Rejected export body")
			middleware.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":      "Invalid statement document",
				"violations": violationStrings(invalid.Violations),
			})
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid statement document")
		return
	}

	writeExport(w, req, rec.Transactions)
}

func violationStrings(vs []statement.Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.String())
	}
	return out
}
