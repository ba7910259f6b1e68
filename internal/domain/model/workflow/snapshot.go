package workflow

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion is the current persisted schema version
const SnapshotVersion = 1

// Snapshot is the serialized form of State used by persistence backends
type Snapshot struct {
	Version       int           `json:"version"`
	Step          Step          `json:"step"`
	ImageRef      string        `json:"image_ref,omitempty"`
	Description   string        `json:"description,omitempty"`
	Requirements  *Requirements `json:"requirements,omitempty"`
	MockupRef     string        `json:"mockup_ref,omitempty"`
	MockupContent string        `json:"mockup_content,omitempty"`
	Error         string        `json:"error,omitempty"`
	Revision      int64         `json:"revision"`
	Epoch         int64         `json:"epoch"`
	UpdatedBy     string        `json:"updated_by,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Snapshot returns the serializable form of the state
func (s State) Snapshot() Snapshot {
	return Snapshot{
		Version:       SnapshotVersion,
		Step:          s.Step(),
		ImageRef:      s.imageRef,
		Description:   s.description,
		Requirements:  s.requirements.Clone(),
		MockupRef:     s.mockupRef,
		MockupContent: s.mockupContent,
		Error:         s.errMsg,
		Revision:      s.revision,
		Epoch:         s.epoch,
		UpdatedBy:     s.updatedBy,
		UpdatedAt:     s.updatedAt,
	}
}

// FromSnapshot reconstructs a State, rejecting snapshots that break field gating
func FromSnapshot(snap Snapshot) (State, error) {
	if snap.Version > SnapshotVersion {
		return State{}, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if snap.Step == "" {
		snap.Step = StepUpload
	}
	if !snap.Step.IsValid() {
		return State{}, fmt.Errorf("invalid step %q in snapshot", snap.Step)
	}
	if err := checkGating(snap); err != nil {
		return State{}, err
	}

	return State{
		step:          snap.Step,
		imageRef:      snap.ImageRef,
		description:   snap.Description,
		requirements:  snap.Requirements.Clone(),
		mockupRef:     snap.MockupRef,
		mockupContent: snap.MockupContent,
		errMsg:        snap.Error,
		revision:      snap.Revision,
		epoch:         snap.Epoch,
		updatedBy:     snap.UpdatedBy,
		updatedAt:     snap.UpdatedAt,
	}, nil
}

func checkGating(snap Snapshot) error {
	gate := func(field string, set bool, from Step) error {
		want := snap.Step.AtLeast(from)
		if set != want {
			if set {
				return fmt.Errorf("snapshot at step %s must not have %s", snap.Step, field)
			}
			return fmt.Errorf("snapshot at step %s is missing %s", snap.Step, field)
		}
		return nil
	}

	if err := gate("image_ref", snap.ImageRef != "", StepPrompt); err != nil {
		return err
	}
	if err := gate("description", snap.Description != "", StepGenerate); err != nil {
		return err
	}
	if snap.Requirements != nil && snap.Step.Before(StepGenerate) {
		return fmt.Errorf("snapshot at step %s must not have requirements", snap.Step)
	}
	if err := gate("mockup_ref", snap.MockupRef != "", StepExport); err != nil {
		return err
	}
	return gate("mockup_content", snap.MockupContent != "", StepExport)
}

// MarshalJSON encodes the state as its Snapshot
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// UnmarshalJSON decodes and validates a Snapshot
func (s *State) UnmarshalJSON(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	st, err := FromSnapshot(snap)
	if err != nil {
		return err
	}
	*s = st
	return nil
}
