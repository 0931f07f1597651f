package notify

import (
	"context"
	"errors"

	"github.com/charlie0129/gastimer/pkg/phase"
	"github.com/charlie0129/gastimer/pkg/sequencer"
)

// Multi delivers to every notifier, even if an earlier one fails.
type Multi []sequencer.Notifier

func (m Multi) Notify(ctx context.Context, ev phase.Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
