package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/dvloznov/statement-analyzer/internal/statement"
)

// Analyzer runs one upload through the statement pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error)
}

// NewAnalyzeHandler returns a JobHandler that analyzes AnalyzeJob payloads.
// Errors caused by the document itself are marked Permanent.
func NewAnalyzeHandler(a Analyzer) JobHandler {
	return func(ctx context.Context, job Job) error {
		aj, ok := job.(*AnalyzeJob)
		if !ok {
			return Permanent(fmt.Errorf("unexpected job type %q", job.GetType()))
		}

		res, err := a.Analyze(ctx, pipeline.Upload{
			Filename:    aj.Filename,
			ContentType: aj.ContentType,
			Body:        bytes.NewReader(aj.Payload),
		})
		if err != nil {
			aj.ErrorKind = statement.ErrorKind(err)
			if isDocumentFault(err) {
				return Permanent(err)
			}
			return err
		}

		aj.Result = res.Statement
		aj.StatementID = res.StatementID
		aj.ErrorKind = ""
		return nil
	}
}

func isDocumentFault(err error) bool {
	return errors.Is(err, pipeline.ErrUnsupportedFile) ||
		errors.Is(err, statement.ErrEmptyDocument) ||
		errors.Is(err, statement.ErrInvalidExtraction)
}
