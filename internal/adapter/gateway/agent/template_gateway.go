package agent

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
)

// TemplateGateway is an offline AgentGateway that answers every prompt with
// a fixed HTML page quoting the prompt. Used when no model is configured.
type TemplateGateway struct {
	// Delay simulates model latency
	Delay time.Duration
}

// NewTemplateGateway creates an offline agent
func NewTemplateGateway() *TemplateGateway {
	return &TemplateGateway{}
}

// Execute renders the placeholder page
func (g *TemplateGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	preview := strings.TrimSpace(req.Prompt)
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}

	page := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Mockup</title>
<style>body{font-family:sans-serif;margin:2rem}pre{background:#f4f4f4;padding:1rem}</style>
</head>
<body>
<h1>Mockup preview</h1>
<p>%d reference image(s) attached.</p>
<pre>%s</pre>
</body>
</html>`, len(req.Attachments), html.EscapeString(preview))

	return &output.AgentResponse{
		Output:     page,
		Duration:   g.Delay,
		Model:      "template",
		TokensUsed: len(req.Prompt) / 4,
	}, nil
}

// HealthCheck always succeeds
func (g *TemplateGateway) HealthCheck(ctx context.Context) error {
	return nil
}

var _ output.AgentGateway = (*TemplateGateway)(nil)
