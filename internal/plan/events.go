package plan

import "time"

// Wire event type tags.
const (
	EventTypePlan   = "plan"
	EventTypeUpdate = "plan_update"
)

// Event is the initial full-plan snapshot. Exactly one Event precedes
// all UpdateEvents for a given plan; it establishes the baseline and
// carries no sequence number.
type Event struct {
	Type      string     `json:"type"`
	Goal      string     `json:"goal"`
	Steps     []StepSpec `json:"steps"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewEvent builds the initial plan event for a spec.
func NewEvent(spec Spec) Event {
	return Event{
		Type:      EventTypePlan,
		Goal:      spec.Goal,
		Steps:     spec.Steps,
		Timestamp: time.Now().UTC(),
	}
}

// UpdateEvent reports one step's state transition. Sequence numbers
// are engine-assigned, strictly increasing from 1 within a plan, and
// never reused.
type UpdateEvent struct {
	Type           string     `json:"type"`
	StepID         int        `json:"step_id"`
	Status         StepStatus `json:"status"`
	SequenceNumber uint64     `json:"sequence_number"`
	Timestamp      time.Time  `json:"timestamp"`
	OutputPreview  string     `json:"output_preview,omitempty"` // status == completed
	Error          string     `json:"error,omitempty"`          // status == failed or skipped
}
