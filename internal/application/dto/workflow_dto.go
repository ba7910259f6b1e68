package dto

import (
	"time"

	"github.com/YoshitsuguKoike/align/internal/application/port/output"
	"github.com/YoshitsuguKoike/align/internal/domain/model/workflow"
)

// WorkflowStateDTO is the presentable view of a session's workflow
type WorkflowStateDTO struct {
	Session      string                 `json:"session" yaml:"session"`
	Step         string                 `json:"step" yaml:"step"`
	StepNumber   int                    `json:"step_number" yaml:"step_number"`
	StepLabel    string                 `json:"step_label" yaml:"step_label"`
	ImageRef     string                 `json:"image_id,omitempty" yaml:"image_id,omitempty"`
	Description  string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Requirements *workflow.Requirements `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	MockupRef    string                 `json:"mockup_id,omitempty" yaml:"mockup_id,omitempty"`
	MockupBytes  int                    `json:"mockup_bytes,omitempty" yaml:"mockup_bytes,omitempty"`
	Error        string                 `json:"error,omitempty" yaml:"error,omitempty"`
	Revision     int64                  `json:"revision" yaml:"revision"`
	Epoch        int64                  `json:"epoch" yaml:"epoch"`
	UpdatedBy    string                 `json:"updated_by,omitempty" yaml:"updated_by,omitempty"`
	UpdatedAt    *time.Time             `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Status       *output.Status         `json:"status,omitempty" yaml:"status,omitempty"`
}

// NewWorkflowStateDTO converts a state for presentation
func NewWorkflowStateDTO(session string, st workflow.State) *WorkflowStateDTO {
	d := &WorkflowStateDTO{
		Session:      session,
		Step:         st.Step().String(),
		StepNumber:   st.Step().ToNumber(),
		StepLabel:    st.Step().Label(),
		ImageRef:     st.ImageRef(),
		Description:  st.Description(),
		Requirements: st.Requirements(),
		MockupRef:    st.MockupRef(),
		MockupBytes:  len(st.MockupContent()),
		Error:        st.Err(),
		Revision:     st.Revision(),
		Epoch:        st.Epoch(),
		UpdatedBy:    st.UpdatedBy(),
	}
	if t := st.UpdatedAt(); !t.IsZero() {
		t = t.UTC()
		d.UpdatedAt = &t
	}
	return d
}
