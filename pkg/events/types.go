package events

import "encoding/json"

// Event name constants
const (
	PhaseChanged  = "phase.changed"
	PhaseComplete = "phase.complete"
	Progress      = "progress"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// PhaseChangedEvent is the typed payload for phase.changed.
type PhaseChangedEvent struct {
	RunID   string `json:"runId,omitempty"`
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message,omitempty"`
	Ts      int64  `json:"ts"`
}

// PhaseCompleteEvent is the typed payload for phase.complete. Event is one of
// "sample-complete" or "wash-complete".
type PhaseCompleteEvent struct {
	RunID string `json:"runId,omitempty"`
	Event string `json:"event"`
	Ts    int64  `json:"ts"`
}

// ProgressEvent is the typed payload for progress.
type ProgressEvent struct {
	Phase            string  `json:"phase"`
	Fraction         float64 `json:"fraction"`
	RemainingSeconds int     `json:"remainingSeconds"`
	Ts               int64   `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.PhaseCompleteEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Event)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
