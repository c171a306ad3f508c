package assistant

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

// Prompt is one generation request.
type Prompt struct {
	System      string
	Contents    []*genai.Content
	JSON        bool
	Temperature *float32
}

// Model generates text from a prompt.
type Model interface {
	Generate(ctx context.Context, p Prompt) (string, error)
	Stream(ctx context.Context, p Prompt) iter.Seq2[string, error]
}

// GeminiModel is a Model backed by the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

func (m *GeminiModel) Name() string { return m.model }

func (m *GeminiModel) Generate(ctx context.Context, p Prompt) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, p.Contents, m.config(p))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}

func (m *GeminiModel) Stream(ctx context.Context, p Prompt) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range m.client.Models.GenerateContentStream(ctx, m.model, p.Contents, m.config(p)) {
			if err != nil {
				yield("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}

func (m *GeminiModel) config(p Prompt) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{Temperature: p.Temperature}
	if p.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}
	if p.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}
