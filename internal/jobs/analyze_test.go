package jobs

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/dvloznov/statement-analyzer/internal/statement"
)

type mockAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error) {
	return m.AnalyzeFunc(ctx, up)
}

type otherJob struct{}

func (otherJob) GetID() string        { return "x" }
func (otherJob) GetType() JobType     { return "other" }
func (otherJob) GetStatus() JobStatus { return JobStatusPending }

func TestAnalyzeHandler_Success(t *testing.T) {
	enriched := &statement.Enriched{Summary: statement.Summary{IsConsistent: true}}
	h := NewAnalyzeHandler(&mockAnalyzer{
		AnalyzeFunc: func(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error) {
			body, err := io.ReadAll(up.Body)
			require.NoError(t, err)
			assert.Equal(t, "pdf-bytes", string(body))
			assert.Equal(t, "jan.pdf", up.Filename)
			return &pipeline.Result{Statement: enriched, StatementID: "s1"}, nil
		},
	})

	job := &AnalyzeJob{JobID: "j1", Filename: "jan.pdf", Payload: []byte("pdf-bytes"), ErrorKind: "internal"}
	require.NoError(t, h(context.Background(), job))
	assert.Same(t, enriched, job.Result)
	assert.Equal(t, "s1", job.StatementID)
	assert.Empty(t, job.ErrorKind)
}

func TestAnalyzeHandler_ErrorClassification(t *testing.T) {
	tests := []struct {
		err       error
		permanent bool
		kind      string
	}{
		{statement.ErrEmptyDocument, true, statement.KindEmptyDocument},
		{&statement.InvalidExtractionError{}, true, statement.KindInvalidExtraction},
		{pipeline.ErrUnsupportedFile, true, statement.KindInternal},
		{statement.ErrDocumentUnreadable, false, statement.KindDocumentUnreadable},
		{statement.ErrPersistence, false, statement.KindPersistence},
		{errors.New("deadline exceeded"), false, statement.KindInternal},
	}
	for _, tt := range tests {
		h := NewAnalyzeHandler(&mockAnalyzer{
			AnalyzeFunc: func(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error) {
				return nil, tt.err
			},
		})
		job := &AnalyzeJob{JobID: "j", Filename: "a.pdf"}
		err := h(context.Background(), job)
		require.Error(t, err)
		assert.Equal(t, tt.permanent, IsPermanent(err), "error %v", tt.err)
		assert.ErrorIs(t, err, tt.err)
		assert.Equal(t, tt.kind, job.ErrorKind)
	}
}

func TestAnalyzeHandler_WrongJobType(t *testing.T) {
	h := NewAnalyzeHandler(&mockAnalyzer{})
	err := h(context.Background(), otherJob{})
	assert.True(t, IsPermanent(err))
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))
	base := errors.New("x")
	assert.ErrorIs(t, Permanent(base), base)
	assert.False(t, IsPermanent(base))
}
