package structuring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/dvloznov/statement-analyzer/internal/llm"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/statement"
)

const transcribePrompt = "You are a document transcription engine for financial statements.\n\n" +
	"Task:\n" +
	"- Read the attached document (PDF or image) page by page.\n" +
	"- Transcribe every visible text block in reading order: headers, tables row by row, footers.\n" +
	"- Keep numbers, currency symbols, dates and signs exactly as printed. Do not summarize or correct.\n\n" +
	"Output a JSON array of objects, one per text block:\n" +
	"- \"page_number\": integer, 1-based page the block appears on\n" +
	"- \"text\": string\n\n" +
	"If the document has no readable text, output [].\n" +
	"Return ONLY valid raw JSON. Do NOT wrap the response in code fences.\n"

var extensionMIME = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// SupportedExtensions lists the upload extensions the structurer accepts.
func SupportedExtensions() []string {
	return []string{".pdf", ".png", ".jpg", ".jpeg"}
}

// GeminiStructurer transcribes documents with a Gemini vision model.
type GeminiStructurer struct {
	gen     llm.Generator
	model   string
	timeout time.Duration
}

// NewGeminiStructurer creates a structurer that calls model through gen.
// A positive timeout bounds each model call.
func NewGeminiStructurer(gen llm.Generator, model string, timeout time.Duration) *GeminiStructurer {
	if model == "" {
		model = llm.DefaultModelName
	}
	return &GeminiStructurer{gen: gen, model: model, timeout: timeout}
}

// Structure implements Structurer.
func (s *GeminiStructurer) Structure(ctx context.Context, path string) ([]Page, error) {
	log := logger.FromContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Structure: read %q: %w: %w", filepath.Base(path), statement.ErrDocumentUnreadable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("Structure: %q has no content: %w", filepath.Base(path), statement.ErrEmptyDocument)
	}

	mimeType, err := DetectMIME(path, data)
	if err != nil {
		return nil, fmt.Errorf("Structure: %w: %w", statement.ErrDocumentUnreadable, err)
	}
	log.Debug().Str("mime_type", mimeType).Int("bytes", len(data)).Msg("Structuring document")

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: transcribePrompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
			},
		},
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := llm.GenerateJSON(ctx, s.gen, s.model, contents)
	if err != nil {
		return nil, fmt.Errorf("Structure: %w: %w", statement.ErrDocumentUnreadable, err)
	}

	elements, err := decodeElements(raw)
	if err != nil {
		return nil, fmt.Errorf("Structure: %w: %w", statement.ErrDocumentUnreadable, err)
	}

	pages := GroupPages(elements)
	if len(pages) == 0 {
		return nil, fmt.Errorf("Structure: no text found: %w", statement.ErrEmptyDocument)
	}

	log.Info().Int("pages", len(pages)).Int("elements", len(elements)).Msg("Structuring complete")
	return pages, nil
}

// DetectMIME picks the model MIME type from the file extension, falling back
// to content sniffing. Only PDF and image types are accepted.
func DetectMIME(path string, data []byte) (string, error) {
	if m, ok := extensionMIME[strings.ToLower(filepath.Ext(path))]; ok {
		return m, nil
	}

	sniffed := http.DetectContentType(data)
	if i := strings.Index(sniffed, ";"); i != -1 {
		sniffed = sniffed[:i]
	}
	if sniffed == "application/pdf" || strings.HasPrefix(sniffed, "image/") {
		return sniffed, nil
	}
	return "", fmt.Errorf("unsupported file type %q (%s)", filepath.Ext(path), sniffed)
}

// rawElement keeps page_number optional so a missing value maps to page 1.
type rawElement struct {
	PageNumber *int   `json:"page_number"`
	Text       string `json:"text"`
}

func decodeElements(raw string) ([]Element, error) {
	var items []rawElement
	if strings.HasPrefix(raw, "{") {
		var wrapped struct {
			Pages    []rawElement `json:"pages"`
			Elements []rawElement `json:"elements"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
			return nil, fmt.Errorf("decode transcription: %w", err)
		}
		items = append(wrapped.Pages, wrapped.Elements...)
	} else if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode transcription: %w", err)
	}

	out := make([]Element, 0, len(items))
	for _, it := range items {
		el := Element{PageNumber: 1, Text: it.Text}
		if it.PageNumber != nil {
			el.PageNumber = *it.PageNumber
		}
		out = append(out, el)
	}
	return out, nil
}
