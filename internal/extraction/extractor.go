// Package extraction converts structured page text into a validated statement record.
package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/dvloznov/statement-analyzer/internal/llm"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/statement"
	"github.com/dvloznov/statement-analyzer/internal/structuring"
)

// Extractor produces a Record from ordered pages.
type Extractor interface {
	Extract(ctx context.Context, pages []structuring.Page) (*statement.Record, error)
}

// GeminiExtractor asks a Gemini text model for the statement JSON.
type GeminiExtractor struct {
	gen     llm.Generator
	model   string
	timeout time.Duration
}

// NewGeminiExtractor creates an extractor. A zero timeout means no per-call limit.
func NewGeminiExtractor(gen llm.Generator, model string, timeout time.Duration) *GeminiExtractor {
	if model == "" {
		model = llm.DefaultModelName
	}
	return &GeminiExtractor{gen: gen, model: model, timeout: timeout}
}

// AggregatePages joins page texts in order with the page break marker.
func AggregatePages(pages []structuring.Page) string {
	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, PageBreak)
}

// Extract implements Extractor. It fails with statement.ErrEmptyDocument before
// any model call when pages is empty, and with an *statement.InvalidExtractionError
// when the model output does not match the record schema.
func (e *GeminiExtractor) Extract(ctx context.Context, pages []structuring.Page) (*statement.Record, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("Extract: %w", statement.ErrEmptyDocument)
	}
	log := logger.FromContext(ctx)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	text := AggregatePages(pages)
	log.Debug().Int("pages", len(pages)).Int("chars", len(text)).Msg("Sending aggregated pages for extraction")

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: BuildPrompt(text)}}},
	}

	start := time.Now()
	raw, err := llm.GenerateJSON(ctx, e.gen, e.model, contents)
	if err != nil {
		return nil, fmt.Errorf("Extract: %w: %w", statement.ErrDocumentUnreadable, err)
	}

	rec, err := statement.Decode([]byte(raw))
	if err != nil {
		log.Warn().Err(err).Msg("Extractor output failed schema validation")
		return nil, fmt.Errorf("Extract: %w", err)
	}

	log.Info().
		Int("transactions", len(rec.Transactions)).
		Int("warnings", len(rec.Warnings)).
		Dur("duration", time.Since(start)).
		Msg("Extraction complete")
	return rec, nil
}
