package selftest

import "time"

type State string

const (
	StateIdle        State = "idle"
	StateSweeping    State = "sweeping"
	StateRandomizing State = "randomizing"
	StateMonitoring  State = "monitoring"
	StateDone        State = "done"
)

// active reports whether a run is in flight.
func (s State) active() bool {
	return s == StateSweeping || s == StateRandomizing || s == StateMonitoring
}

// Status is a snapshot of the orchestrator, shaped for the API.
type Status struct {
	RunID        string    `json:"run_id,omitempty"`
	State        State     `json:"state"`
	Progress     int       `json:"progress"`
	Total        int       `json:"total,omitempty"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}
