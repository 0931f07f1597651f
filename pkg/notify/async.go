package notify

import (
	"context"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/gastimer/pkg/phase"
	"github.com/charlie0129/gastimer/pkg/sequencer"
)

// ErrQueueFull is returned by Async.Notify when the event was dropped.
var ErrQueueFull = pkgerrors.New("notification queue full")

// ErrClosed is returned by Async.Notify after Close.
var ErrClosed = pkgerrors.New("notifier closed")

// Async queues events for a single worker, so Notify never blocks and events
// are delivered in order.
type Async struct {
	next  sequencer.Notifier
	queue chan phase.Event

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsync starts the worker. Close must be called to stop it.
func NewAsync(next sequencer.Notifier, size int) *Async {
	if size <= 0 {
		size = 8
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Async{
		next:   next,
		queue:  make(chan phase.Event, size),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Notify(_ context.Context, ev phase.Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return ErrClosed
	}

	select {
	case a.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *Async) run() {
	defer close(a.done)

	for ev := range a.queue {
		a.deliver(ev)
	}
}

func (a *Async) deliver(ev phase.Event) {
	log := logrus.WithField("event", ev)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("notifier panicked: %v", r)
		}
	}()

	if err := a.next.Notify(a.ctx, ev); err != nil {
		log.WithError(err).Warn("failed to deliver notification")
		return
	}
	log.Debug("notification delivered")
}

// Close stops accepting events, drains what is already queued and waits for
// the worker. Deliveries still running when ctx is done are cancelled.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		a.cancel()
		return nil
	case <-ctx.Done():
		a.cancel()
		<-a.done
		return ctx.Err()
	}
}
