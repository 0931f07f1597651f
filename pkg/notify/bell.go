package notify

import (
	"context"
	"io"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/gastimer/pkg/phase"
)

const (
	defaultBellBursts   = 3
	defaultBellInterval = 500 * time.Millisecond
)

// Bell rings the terminal bell in a few bursts so that a single missed beep
// does not go unnoticed.
type Bell struct {
	W        io.Writer
	Bursts   int
	Interval time.Duration

	mu sync.Mutex
}

// NewBell returns a Bell writing to w with the default pattern.
func NewBell(w io.Writer) *Bell {
	return &Bell{W: w, Bursts: defaultBellBursts, Interval: defaultBellInterval}
}

func (b *Bell) Notify(ctx context.Context, _ phase.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bursts := b.Bursts
	if bursts <= 0 {
		bursts = 1
	}

	for i := 0; i < bursts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.Interval):
			}
		}
		if _, err := io.WriteString(b.W, "\a"); err != nil {
			return pkgerrors.Wrap(err, "failed to ring bell")
		}
	}

	return nil
}
