package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// Requirements is the structured interpretation of a change description
type Requirements struct {
	RawPrompt      string                 `json:"raw_prompt,omitempty" yaml:"raw_prompt,omitempty"`
	ActionType     string                 `json:"action_type" yaml:"action_type"`
	Targets        []string               `json:"targets" yaml:"targets"`
	Properties     map[string]interface{} `json:"properties" yaml:"properties"`
	Clarifications []string               `json:"clarifications,omitempty" yaml:"clarifications,omitempty"`
}

// Clone returns a copy that shares no slices or maps with r
func (r *Requirements) Clone() *Requirements {
	if r == nil {
		return nil
	}
	c := &Requirements{
		RawPrompt:  r.RawPrompt,
		ActionType: r.ActionType,
	}
	if r.Targets != nil {
		c.Targets = append([]string(nil), r.Targets...)
	}
	if r.Clarifications != nil {
		c.Clarifications = append([]string(nil), r.Clarifications...)
	}
	if r.Properties != nil {
		c.Properties = make(map[string]interface{}, len(r.Properties))
		for k, v := range r.Properties {
			c.Properties[k] = cloneValue(v)
		}
	}
	return c
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Summary renders a one-line human readable summary, e.g. "Modify header with colors: [blue]"
func (r *Requirements) Summary() string {
	if r == nil {
		return "No requirements parsed yet."
	}

	action := r.ActionType
	if action == "" {
		action = "modify"
	}
	targets := "component"
	if len(r.Targets) > 0 {
		targets = strings.Join(r.Targets, ", ")
	}

	summary := strings.ToUpper(action[:1]) + action[1:] + " " + targets
	if len(r.Properties) == 0 {
		return summary
	}

	keys := make([]string, 0, len(r.Properties))
	for k := range r.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, r.Properties[k]))
	}
	return summary + " with " + strings.Join(parts, ", ")
}
