package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"prose around object", "Here is the result:\n{\"a\":{\"b\":2}}\nHope this helps.", `{"a":{"b":2}}`},
		{"array of objects", "Sure! [{\"page_number\":1}]", `[{"page_number":1}]`},
		{"no json", "sorry", "sorry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.in))
		})
	}
}

// fakeGenerator returns a canned response and records the config it was given.
type fakeGenerator struct {
	text   string
	err    error
	config *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}}}},
	}, nil
}

func TestGenerateJSON(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n{\"ok\":true}\n```"}
	out, err := GenerateJSON(context.Background(), gen, DefaultModelName, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	require.NotNil(t, gen.config)
	assert.Equal(t, "application/json", gen.config.ResponseMIMEType)
	require.NotNil(t, gen.config.Temperature)
	assert.Equal(t, float32(0), *gen.config.Temperature)
}

func TestGenerateJSON_Errors(t *testing.T) {
	_, err := GenerateJSON(context.Background(), &fakeGenerator{text: ""}, DefaultModelName, nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	boom := errors.New("quota exceeded")
	_, err = GenerateJSON(context.Background(), &fakeGenerator{err: boom}, DefaultModelName, nil)
	assert.ErrorIs(t, err, boom)
}
