package api_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/statement-analyzer/internal/api"
	"github.com/dvloznov/statement-analyzer/internal/api/handlers"
	"github.com/dvloznov/statement-analyzer/internal/export"
	"github.com/dvloznov/statement-analyzer/internal/infra/memory"
	"github.com/dvloznov/statement-analyzer/internal/jobs"
	"github.com/dvloznov/statement-analyzer/internal/jobs/inmemory"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/dvloznov/statement-analyzer/internal/statement"
	"github.com/dvloznov/statement-analyzer/internal/structuring"
)

// MockStructurer is a mock implementation of structuring.Structurer.
type MockStructurer struct{}

func (m *MockStructurer) Structure(ctx context.Context, path string) ([]structuring.Page, error) {
	return []structuring.Page{{PageNumber: 1, Text: "statement text"}}, nil
}

// MockExtractor is a mock implementation of extraction.Extractor.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, pages []structuring.Page) (*statement.Record, error)
}

func (m *MockExtractor) Extract(ctx context.Context, pages []structuring.Page) (*statement.Record, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, pages)
	}
	return sampleRecord(), nil
}

// MockAnalyzer is a mock implementation of handlers.Analyzer.
type MockAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error)
}

func (m *MockAnalyzer) Analyze(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error) {
	return m.AnalyzeFunc(ctx, up)
}

func sampleRecord() *statement.Record {
	return &statement.Record{
		AccountHolder:    "Jane Doe",
		AccountNumber:    "****1234",
		PeriodStart:      "01/01/2024",
		PeriodEnd:        "01/31/2024",
		BeginningBalance: 1000,
		EndingBalance:    1250,
		CurrencySymbol:   "$",
		Transactions: []statement.Transaction{
			{Date: "01/03/2024", Description: "Coffee Shop", Debit: 50, Balance: 950},
			{Date: "01/05/2024", Description: "Salary", Credit: 500, Balance: 1450},
			{Date: "01/09/2024", Description: "Rent", Debit: 200, Balance: 1250},
		},
		Warnings: []string{},
	}
}

type testServer struct {
	handler http.Handler
	repo    *memory.Repository
	tempDir string
}

func newTestServer(t *testing.T, extractor *MockExtractor) *testServer {
	t.Helper()
	repo := memory.NewRepository()
	tempDir := t.TempDir()

	analyzer, err := pipeline.NewAnalyzer(pipeline.Deps{
		TempDir:    tempDir,
		Structurer: &MockStructurer{},
		Extractor:  extractor,
		Repo:       repo,
	})
	require.NoError(t, err)

	store := inmemory.NewStore()
	queue := inmemory.NewQueue(inmemory.Options{Workers: 1, Backoff: time.Millisecond}, store)
	require.NoError(t, queue.Start(context.Background(), jobs.NewAnalyzeHandler(analyzer)))
	t.Cleanup(func() { _ = queue.Close() })

	return &testServer{
		handler: api.NewRouter(api.Deps{
			Analyzer:       analyzer,
			Repo:           repo,
			Publisher:      queue,
			JobStore:       store,
			MaxUploadBytes: 1 << 20,
			Log:            zerolog.Nop(),
		}),
		repo:    repo,
		tempDir: tempDir,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile(handlers.UploadField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, &MockExtractor{})

	rec := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to the IntelliStatement Backend API!"}`, rec.Body.String())

	rec = s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
}

func TestParse_Success(t *testing.T) {
	s := newTestServer(t, &MockExtractor{})

	rec := s.do(uploadRequest(t, "/api/v1/parse", "January.PDF", []byte("%PDF-1.4 fake")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got statement.Enriched
	decodeJSON(t, rec, &got)
	assert.Equal(t, "Jane Doe", got.AccountHolder)
	assert.Len(t, got.Transactions, 3)
	assert.Equal(t, statement.Summary{
		TotalCredits:      500,
		TotalDebits:       250,
		CalculatedBalance: 1250,
		IsConsistent:      true,
	}, got.Summary)

	id := rec.Header().Get("X-Statement-ID")
	require.NotEmpty(t, id)
	_, err := s.repo.GetStatement(context.Background(), id)
	assert.NoError(t, err)

	entries, err := os.ReadDir(s.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp upload must be removed")
}

func TestParse_UploadErrors(t *testing.T) {
	s := newTestServer(t, &MockExtractor{})

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing file",
			req:      uploadRequest(t, "/api/v1/parse", "", nil),
			wantCode: http.StatusBadRequest,
			wantErr:  "No file uploaded",
		},
		{
			name:     "unsupported extension",
			req:      uploadRequest(t, "/api/v1/parse", "notes.txt", []byte("hello")),
			wantCode: http.StatusBadRequest,
			wantErr:  "Unsupported file type: upload a PDF, PNG, JPG or JPEG",
		},
		{
			name:     "too large",
			req:      uploadRequest(t, "/api/v1/parse", "big.pdf", bytes.Repeat([]byte("x"), 1<<20+1)),
			wantCode: http.StatusRequestEntityTooLarge,
		},
		{
			name:     "not multipart",
			req:      httptest.NewRequest(http.MethodPost, "/api/v1/parse", strings.NewReader("{}")),
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantErr != "" {
				assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.wantErr), rec.Body.String())
			}
		})
	}

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/parse", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestParse_StageFailuresAreGeneric(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
	}{
		{"invalid extraction", &statement.InvalidExtractionError{Violations: []statement.Violation{{Path: "transactions", Message: "missing required field"}}}, statement.KindInvalidExtraction},
		{"unreadable", fmt.Errorf("%w: model refused", statement.ErrDocumentUnreadable), statement.KindDocumentUnreadable},
		{"empty", statement.ErrEmptyDocument, statement.KindEmptyDocument},
		{"unexpected", errors.New("boom"), statement.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &MockExtractor{
				ExtractFunc: func(ctx context.Context, pages []structuring.Page) (*statement.Record, error) {
					return nil, tt.err
				},
			})

			rec := s.do(uploadRequest(t, "/api/v1/parse", "scan.png", []byte("\x89PNG fake")))
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"error":"An internal error occurred during document processing"}`, rec.Body.String())
			assert.Equal(t, tt.wantKind, rec.Header().Get("X-Error-Kind"))
			assert.Empty(t, rec.Header().Get("X-Statement-ID"))

			entries, err := os.ReadDir(s.tempDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestStatements_ListGetDeleteExport(t *testing.T) {
	s := newTestServer(t, &MockExtractor{})

	rec := s.do(uploadRequest(t, "/api/v1/parse", "jan.pdf", []byte("%PDF")))
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get("X-Statement-ID")

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/statements?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Statements []statement.PersistedStatement `json:"statements"`
		Count      int                            `json:"count"`
	}
	decodeJSON(t, rec, &list)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, id, list.Statements[0].ID)
	assert.Equal(t, "jan.pdf", list.Statements[0].Filename)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/statements?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/statements/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stored handlers.StoredStatement
	decodeJSON(t, rec, &stored)
	assert.Equal(t, id, stored.ID)
	assert.True(t, stored.Summary.IsConsistent)
	assert.Equal(t, 250.0, stored.Summary.TotalDebits)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/statements/"+id+"/export?format=csv&type=debits", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="statement_export.csv"`, rec.Header().Get("Content-Disposition"))
	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, export.Columns, rows[0])
	assert.Equal(t, "Coffee Shop", rows[1][1])
	assert.Equal(t, "Rent", rows[2][1])

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/statements/"+id+"/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodPost, "/api/v1/statements/"+id, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodDelete, "/api/v1/statements/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/statements/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodDelete, "/api/v1/statements/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatements_StorageDisabled(t *testing.T) {
	h := api.NewRouter(api.Deps{
		Analyzer: &MockAnalyzer{AnalyzeFunc: func(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error) {
			rec := sampleRecord()
			return &pipeline.Result{Statement: &statement.Enriched{Record: *rec}}, nil
		}},
		MaxUploadBytes: 1 << 20,
		Log:            zerolog.Nop(),
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/statements", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "/api/v1/parse", "jan.jpg", []byte("jpeg")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Statement-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "/api/v1/parse/async", "jan.jpg", []byte("jpeg")))
	assert.Equal(t, http.StatusNotFound, rec.Code, "async routes are off without a queue")
}

func TestExport_PostedDocument(t *testing.T) {
	s := newTestServer(t, &MockExtractor{})

	body, err := json.Marshal(statement.Enriched{Record: *sampleRecord(), Summary: statement.Summary{TotalDebits: 250}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/export?format=xlsx&search=SALARY", bytes.NewReader(body))
	rec := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, export.FormatXLSX.ContentType(), rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Row-Count"))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{export.SheetName}, f.GetSheetList())
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Salary", rows[1][1])
}

func TestExport_RejectsBadDocuments(t *testing.T) {
	s := newTestServer(t, &MockExtractor{})

	rec := s.do(httptest.NewRequest(http.MethodPost, "/api/v1/export", strings.NewReader(`{"account_holder": 5}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var got struct {
		Error      string   `json:"error"`
		Violations []string `json:"violations"`
	}
	decodeJSON(t, rec, &got)
	assert.Equal(t, "Invalid statement document", got.Error)
	assert.NotEmpty(t, got.Violations)

	rec = s.do(httptest.NewRequest(http.MethodPost, "/api/v1/export?type=refunds", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/export", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestParseAsync_CompletesJob(t *testing.T) {
	s := newTestServer(t, &MockExtractor{})

	rec := s.do(uploadRequest(t, "/api/v1/parse/async", "jan.pdf", []byte("%PDF")))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var accepted map[string]string
	decodeJSON(t, rec, &accepted)
	jobID := accepted["job_id"]
	require.NotEmpty(t, jobID)
	assert.Equal(t, string(jobs.JobStatusPending), accepted["status"])

	var job jobs.AnalyzeJob
	require.Eventually(t, func() bool {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+jobID, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		job = jobs.AnalyzeJob{}
		if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
			return false
		}
		return job.Status == jobs.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	require.NotNil(t, job.Result)
	assert.True(t, job.Result.Summary.IsConsistent)
	assert.NotEmpty(t, job.StatementID)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs?status=completed", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
