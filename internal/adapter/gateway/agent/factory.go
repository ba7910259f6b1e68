package agent

import (
	"context"
	"fmt"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
)

// Supported agent types
const (
	TypeGemini   = "gemini"
	TypeTemplate = "template"
)

// NewAgentGateway creates an agent gateway based on agent type
func NewAgentGateway(ctx context.Context, agentType, apiKey, model string) (output.AgentGateway, error) {
	switch agentType {
	case TypeGemini:
		return NewGeminiGateway(ctx, apiKey, model)
	case TypeTemplate:
		return NewTemplateGateway(), nil
	default:
		return nil, fmt.Errorf("unknown agent type: %s (supported: %s, %s)", agentType, TypeGemini, TypeTemplate)
	}
}

// DefaultAgent picks gemini when an API key is available, template otherwise
func DefaultAgent(apiKey string) string {
	if apiKey != "" {
		return TypeGemini
	}
	return TypeTemplate
}
