package output

import (
	"context"
	"time"
)

// AgentGateway is the interface for the AI model that writes mockup markup
type AgentGateway interface {
	// Execute runs the agent with given request
	Execute(ctx context.Context, req AgentRequest) (*AgentResponse, error)

	// HealthCheck verifies if the agent is available
	HealthCheck(ctx context.Context) error
}

// Attachment is binary input sent alongside the prompt
type Attachment struct {
	MIMEType string
	Data     []byte
}

// AgentRequest represents a request to an AI agent
type AgentRequest struct {
	Prompt      string
	Attachments []Attachment
	Temperature float32
}

// AgentResponse represents the response from an AI agent
type AgentResponse struct {
	Output     string
	Duration   time.Duration
	Model      string
	TokensUsed int
}
