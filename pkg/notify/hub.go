package notify

import (
	"context"
	"time"

	"github.com/charlie0129/gastimer/pkg/events"
	"github.com/charlie0129/gastimer/pkg/phase"
)

// Hub publishes completions to event subscribers, which produce their own
// cue (the CLI watch command rings its local terminal, for example).
type Hub struct {
	Hub *events.EventHub
	// RunID returns the identifier of the current run. Optional.
	RunID func() string
}

func (h *Hub) Notify(_ context.Context, ev phase.Event) error {
	runID := ""
	if h.RunID != nil {
		runID = h.RunID()
	}
	h.Hub.Publish(events.PhaseComplete, events.PhaseCompleteEvent{
		RunID: runID,
		Event: string(ev),
		Ts:    time.Now().Unix(),
	})
	return nil
}
