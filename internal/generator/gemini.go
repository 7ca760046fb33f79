package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"
)

const (
	// Temperature is fixed low to bias the model toward well-formed output.
	Temperature      = 0.5
	ResponseMimeType = "application/json"
)

var ErrNoContent = errors.New("model returned no text content")

// GeminiGenerator sends prompts to the Gemini generateContent endpoint.
type GeminiGenerator struct {
	service *generativelanguage.Service
	model   string
	timeout time.Duration
}

// NewGeminiGenerator builds a client authenticated with apiKey. Extra options
// (endpoint overrides in tests) are appended last.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, timeout time.Duration, opts ...option.ClientOption) (*GeminiGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := generativelanguage.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	return &GeminiGenerator{service: service, model: model, timeout: timeout}, nil
}

// Generate issues a single non-streaming request and returns the text of the
// first candidate.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{
			{
				Role:  "user",
				Parts: []*generativelanguage.Part{{Text: prompt}},
			},
		},
		GenerationConfig: &generativelanguage.GenerationConfig{
			ResponseMimeType: ResponseMimeType,
			Temperature:      Temperature,
		},
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.service.Models.GenerateContent(g.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generateContent %s: %w", g.model, err)
	}
	log.Printf("Gemini %s responded in %v", g.model, time.Since(start))

	text := responseText(resp)
	if text == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w (blocked: %s)", ErrNoContent, resp.PromptFeedback.BlockReason)
		}
		return "", ErrNoContent
	}
	return text, nil
}

func responseText(resp *generativelanguage.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
