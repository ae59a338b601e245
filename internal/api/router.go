// Package api wires the HTTP handlers into a routed, middleware-wrapped handler.
package api

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-analyzer/internal/api/handlers"
	"github.com/dvloznov/statement-analyzer/internal/api/middleware"
	"github.com/dvloznov/statement-analyzer/internal/jobs"
	"github.com/dvloznov/statement-analyzer/internal/statement"
)

// Deps are the collaborators behind the routes. Publisher and JobStore may be
// nil, which disables the async endpoints. Repo may be nil, which makes the
// statement endpoints answer 503.
type Deps struct {
	Analyzer       handlers.Analyzer
	Repo           statement.Repository
	Publisher      jobs.Publisher
	JobStore       jobs.JobStore
	MaxUploadBytes int64
	Log            zerolog.Logger
}

func methodNotAllowed(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// NewRouter returns the full API handler with middleware applied.
func NewRouter(d Deps) http.Handler {
	statementsHandler := handlers.NewStatementsHandler(d.Analyzer, d.Repo, d.MaxUploadBytes, d.Log)
	exportHandler := handlers.NewExportHandler(d.Log)

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		if r.Method == http.MethodGet {
			handlers.Root(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			handlers.Health(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/v1/parse", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			statementsHandler.Parse(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/v1/export", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			exportHandler.Export(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Statements endpoints
	mux.HandleFunc("/api/v1/statements", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			statementsHandler.ListStatements(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/v1/statements/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/statements/"), "/")
		if rest == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Statement ID is required")
			return
		}

		if id, ok := strings.CutSuffix(rest, "/export"); ok {
			if r.Method == http.MethodGet {
				statementsHandler.ExportStatement(w, r, id)
			} else {
				methodNotAllowed(w)
			}
			return
		}
		if strings.Contains(rest, "/") {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			statementsHandler.GetStatement(w, r, rest)
		case http.MethodDelete:
			statementsHandler.DeleteStatement(w, r, rest)
		default:
			methodNotAllowed(w)
		}
	})

	if d.Publisher != nil && d.JobStore != nil {
		jobsHandler := handlers.NewJobsHandler(d.Publisher, d.JobStore, d.MaxUploadBytes, d.Log)

		mux.HandleFunc("/api/v1/parse/async", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				jobsHandler.ParseAsync(w, r)
			} else {
				methodNotAllowed(w)
			}
		})

		// Jobs endpoints
		mux.HandleFunc("/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				jobsHandler.ListJobs(w, r)
			} else {
				methodNotAllowed(w)
			}
		})

		mux.HandleFunc("/api/v1/jobs/", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				// Extract job ID from path
				jobID := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
				if jobID == "" {
					middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
					return
				}
				jobsHandler.GetJob(w, r, jobID)
			} else {
				methodNotAllowed(w)
			}
		})
	}

	return middleware.Chain(d.Log, mux)
}
