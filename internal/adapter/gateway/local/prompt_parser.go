package local

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

// Clarification questions asked for vague descriptions
const (
	ClarifyMoreDetail = "Could you provide more details about the desired changes?"
	ClarifyTarget     = "Which UI element would you like to modify?"
	ClarifyVisual     = "What visual changes are you looking for?"
)

var actionWords = []struct {
	action string
	words  []string
}{
	{"add", []string{"add", "create", "insert", "new"}},
	{"remove", []string{"remove", "delete", "hide"}},
	{"modify", []string{"change", "modify", "update", "make"}},
	{"move", []string{"move", "relocate", "reposition"}},
}

var knownTargets = []string{
	"header", "footer", "sidebar", "button", "navbar", "menu",
	"dashboard", "card", "table", "form", "input", "search",
	"logo", "icon", "image", "text", "title", "link", "modal",
	"dropdown", "tab", "panel", "section", "container",
}

var propertyPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"colors", regexp.MustCompile(`\b(red|blue|green|yellow|orange|purple|pink|black|white|gray|grey|dark|light)\b`)},
	{"sizes", regexp.MustCompile(`\b(large|small|big|tiny|medium|huge)\b`)},
	{"positions", regexp.MustCompile(`\b(top|bottom|left|right|center|middle)\b`)},
}

var wordSplit = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// PromptParser interprets descriptions with keyword heuristics
type PromptParser struct{}

// NewPromptParser creates a heuristic prompt parser
func NewPromptParser() *PromptParser {
	return &PromptParser{}
}

// Parse implements output.PromptGateway
func (p *PromptParser) Parse(ctx context.Context, req output.ParseRequest) (*output.ParseResult, error) {
	raw := strings.TrimSpace(req.Description)
	if raw == "" {
		return nil, errors.New("description is empty")
	}

	reqs := p.Interpret(raw)
	return &output.ParseResult{
		ImageRef:       req.ImageRef,
		Requirements:   reqs,
		Clarifications: reqs.Clarifications,
		Summary:        reqs.Summary(),
	}, nil
}

// Interpret extracts action, targets, properties and clarifications from text
func (p *PromptParser) Interpret(raw string) *workflow.Requirements {
	// Casers are stateful and must not be shared between goroutines.
	text := cases.Fold().String(norm.NFKC.String(raw))
	words := wordSplit.Split(text, -1)

	targets, matched := p.targets(text)
	properties := p.properties(text)

	var clarifications []string
	if countWords(words) < 5 {
		clarifications = append(clarifications, ClarifyMoreDetail)
	}
	if !matched {
		clarifications = append(clarifications, ClarifyTarget)
	}
	if len(properties) == 0 {
		clarifications = append(clarifications, ClarifyVisual)
	}

	return &workflow.Requirements{
		RawPrompt:      raw,
		ActionType:     p.action(words),
		Targets:        targets,
		Properties:     properties,
		Clarifications: clarifications,
	}
}

func (p *PromptParser) action(words []string) string {
	present := make(map[string]bool, len(words))
	for _, w := range words {
		present[w] = true
	}
	for _, a := range actionWords {
		for _, w := range a.words {
			if present[w] {
				return a.action
			}
		}
	}
	return "modify"
}

// targets matches known element names as substrings so plurals count
func (p *PromptParser) targets(text string) ([]string, bool) {
	var found []string
	for _, t := range knownTargets {
		if strings.Contains(text, t) {
			found = append(found, t)
		}
	}
	if len(found) == 0 {
		return []string{"component"}, false
	}
	return found, true
}

func (p *PromptParser) properties(text string) map[string]interface{} {
	props := map[string]interface{}{}
	for _, pp := range propertyPatterns {
		if m := pp.pattern.FindAllString(text, -1); len(m) > 0 {
			props[pp.name] = m
		}
	}
	return props
}

func countWords(words []string) int {
	n := 0
	for _, w := range words {
		if w != "" {
			n++
		}
	}
	return n
}

var _ output.PromptGateway = (*PromptParser)(nil)
