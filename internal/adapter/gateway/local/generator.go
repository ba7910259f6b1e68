package local

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

// Generator asks an AI agent for a mockup of the uploaded screenshot
type Generator struct {
	agent   output.AgentGateway
	storage output.StorageGateway
}

// NewGenerator creates a Generator
func NewGenerator(agent output.AgentGateway, storage output.StorageGateway) *Generator {
	return &Generator{agent: agent, storage: storage}
}

// Generate implements output.GenerationGateway
func (g *Generator) Generate(ctx context.Context, req output.GenerateRequest) (*output.GenerateResult, error) {
	img, err := g.storage.LoadArtifact(ctx, req.ImageRef)
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", req.ImageRef, err)
	}

	mime := img.Metadata.ContentType
	if mime == "" {
		mime = "image/png"
	}

	// Requests without parsed requirements fall back to the heuristic parser.
	reqs := req.Requirements
	if reqs == nil && strings.TrimSpace(req.Description) != "" {
		reqs = NewPromptParser().Interpret(req.Description)
	}

	resp, err := g.agent.Execute(ctx, output.AgentRequest{
		Prompt:      buildMockupPrompt(req.Description, reqs),
		Attachments: []output.Attachment{{MIMEType: mime, Data: img.Content}},
		Temperature: 0.4,
	})
	if err != nil {
		return nil, err
	}

	page := ExtractHTML(resp.Output)
	if page == "" {
		return nil, errors.New("agent returned no HTML")
	}

	meta, err := g.storage.SaveArtifact(ctx, output.SaveArtifactRequest{
		Kind:        output.ArtifactMockup,
		Content:     []byte(page),
		ContentType: "text/html; charset=utf-8",
		Metadata: map[string]string{
			"image_id":    req.ImageRef,
			"description": truncate(req.Description, 256),
			"model":       resp.Model,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store mockup: %w", err)
	}

	return &output.GenerateResult{MockupRef: meta.ID, Content: page}, nil
}

func buildMockupPrompt(description string, req *workflow.Requirements) string {
	action, targets, props := "modify", "general UI", "none"
	if req != nil {
		if req.ActionType != "" {
			action = req.ActionType
		}
		if len(req.Targets) > 0 {
			targets = strings.Join(req.Targets, ", ")
		}
		if len(req.Properties) > 0 {
			keys := make([]string, 0, len(req.Properties))
			for k := range req.Properties {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			parts := make([]string, 0, len(keys))
			for _, k := range keys {
				parts = append(parts, fmt.Sprintf("%s=%v", k, req.Properties[k]))
			}
			props = strings.Join(parts, "; ")
		}
	}

	var b strings.Builder
	b.WriteString("Redesign the attached screenshot as a single self-contained HTML page with inline CSS.\n")
	fmt.Fprintf(&b, "Action: %s\nTarget elements: %s\nVisual properties: %s\n", action, targets, props)
	b.WriteString("Keep the rest of the layout intact. Reply with the HTML only, from <!DOCTYPE html> to </html>.\n\n")
	fmt.Fprintf(&b, "User request: %s", description)
	return b.String()
}

// ExtractHTML strips markdown fences and leading prose from model output
func ExtractHTML(text string) string {
	text = strings.TrimSpace(text)

	if i := strings.Index(text, "```html"); i >= 0 {
		text = text[i+len("```html"):]
		if j := strings.Index(text, "```"); j >= 0 {
			text = text[:j]
		}
	} else if i := strings.Index(text, "```"); i >= 0 {
		text = text[i+3:]
		if j := strings.Index(text, "```"); j >= 0 {
			text = text[:j]
		}
	}
	text = strings.TrimSpace(text)

	lower := strings.ToLower(text)
	start := -1
	for _, marker := range []string{"<!doctype", "<html"} {
		if i := strings.Index(lower, marker); i >= 0 && (start < 0 || i < start) {
			start = i
		}
	}
	if start > 0 {
		text = text[start:]
	}
	return text
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var _ output.GenerationGateway = (*Generator)(nil)
