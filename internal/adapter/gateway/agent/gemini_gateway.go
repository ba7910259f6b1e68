package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.5-flash"

// geminiModels is the part of genai.Models used by GeminiGateway
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// GeminiGateway implements AgentGateway with the Gemini API
type GeminiGateway struct {
	models geminiModels
	model  string
}

// NewGeminiGateway creates a Gemini-backed agent
func NewGeminiGateway(ctx context.Context, apiKey, model string) (*GeminiGateway, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGeminiGateway(client.Models, model), nil
}

func newGeminiGateway(models geminiModels, model string) *GeminiGateway {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiGateway{models: models, model: model}
}

// Execute sends the prompt and attachments as one user turn
func (g *GeminiGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	parts := make([]*genai.Part, 0, len(req.Attachments)+1)
	for _, a := range req.Attachments {
		parts = append(parts, genai.NewPartFromBytes(a.Data, a.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	var config *genai.GenerateContentConfig
	if req.Temperature > 0 {
		config = &genai.GenerateContentConfig{Temperature: genai.Ptr(req.Temperature)}
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		config,
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, errors.New("gemini returned no text")
	}

	out := &output.AgentResponse{
		Output:   text,
		Duration: time.Since(start),
		Model:    g.model,
	}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// HealthCheck verifies the configured model is reachable
func (g *GeminiGateway) HealthCheck(ctx context.Context) error {
	if _, err := g.models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("gemini model %s unavailable: %w", g.model, err)
	}
	return nil
}

var _ output.AgentGateway = (*GeminiGateway)(nil)
