package controller

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/gastimer/pkg/phase"
	"github.com/charlie0129/gastimer/pkg/sequencer"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	MaxPollInterval     = 200 * time.Millisecond
	// pollGapFactor polls worth of silence is reported as a gap (e.g. the host slept).
	pollGapFactor = 5
)

// Clock provides wall-clock time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now strips the monotonic clock reading, so time the host spends asleep still
// counts towards the running phase.
func (systemClock) Now() time.Time { return time.Now().Round(0) }

// SnapshotFunc receives snapshots whenever something visible changed.
type SnapshotFunc func(phase.Snapshot)

// Controller drives a Sequencer from a clock. Elapsed time is always derived
// from the phase entry timestamp, so polling more often, less often or twice
// in a row never changes the result.
type Controller struct {
	seq        *sequencer.Sequencer
	clock      Clock
	interval   time.Duration
	onSnapshot SnapshotFunc

	mu       sync.Mutex
	entry    time.Time
	paused   bool
	pausedAt time.Time
	lastPoll time.Time
	last     relayKey
}

type relayKey struct {
	phase     phase.Phase
	remaining int
	permille  int
	paused    bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the system clock.
func WithClock(c Clock) Option { return func(ctl *Controller) { ctl.clock = c } }

// WithPollInterval sets the poll interval. Values above MaxPollInterval are
// clamped; non-positive values select DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(ctl *Controller) { ctl.interval = d }
}

// WithSnapshotFunc sets the presentation callback.
func WithSnapshotFunc(f SnapshotFunc) Option { return func(ctl *Controller) { ctl.onSnapshot = f } }

// New returns a Controller for seq.
func New(seq *sequencer.Sequencer, opts ...Option) *Controller {
	c := &Controller{
		seq:      seq,
		clock:    systemClock{},
		interval: DefaultPollInterval,
	}
	for _, o := range opts {
		o(c)
	}

	if c.interval <= 0 {
		c.interval = DefaultPollInterval
	}
	if c.interval > MaxPollInterval {
		logrus.WithField("interval", c.interval).Warnf("poll interval too long, using %s", MaxPollInterval)
		c.interval = MaxPollInterval
	}

	return c
}

// Interval returns the effective poll interval.
func (c *Controller) Interval() time.Duration { return c.interval }

// Configure sets the phase durations. Only allowed while Idle.
func (c *Controller) Configure(sample, wash phase.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq.Configure(sample, wash)
}

// Configs returns the current phase durations.
func (c *Controller) Configs() (sample, wash phase.Config) {
	return c.seq.Configs()
}

// Start begins the sample phase.
func (c *Controller) Start() (phase.Snapshot, error) {
	return c.enter(c.seq.Start)
}

// ConfirmWash begins the wash phase.
func (c *Controller) ConfirmWash() (phase.Snapshot, error) {
	return c.enter(c.seq.ConfirmWash)
}

func (c *Controller) enter(f func() (phase.Snapshot, error)) (phase.Snapshot, error) {
	c.mu.Lock()
	snap, err := f()
	if err != nil {
		c.mu.Unlock()
		return snap, err
	}
	c.entry = c.clock.Now()
	c.paused = false
	c.pausedAt = time.Time{}
	snap = c.decorateLocked(snap)
	relay := c.shouldRelayLocked(snap)
	c.mu.Unlock()

	c.relay(snap, relay)
	return snap, nil
}

// Reset returns the sequencer to Idle and clears any pause.
func (c *Controller) Reset() phase.Snapshot {
	c.mu.Lock()
	snap := c.seq.Reset()
	c.entry = time.Time{}
	c.paused = false
	c.pausedAt = time.Time{}
	relay := c.shouldRelayLocked(snap)
	c.mu.Unlock()

	c.relay(snap, relay)
	return snap
}

// Pause stops time accounting for the running phase.
func (c *Controller) Pause() (phase.Snapshot, error) {
	c.mu.Lock()
	// Bring elapsed up to date so the paused snapshot is accurate.
	snap := c.pollLocked()
	if !snap.Running || c.paused {
		snap = c.decorateLocked(snap)
		relay := c.shouldRelayLocked(snap)
		c.mu.Unlock()
		c.relay(snap, relay)
		return snap, phase.IllegalTransition("pause", snap.Phase)
	}
	c.paused = true
	c.pausedAt = c.clock.Now()
	snap = c.decorateLocked(snap)
	relay := c.shouldRelayLocked(snap)
	c.mu.Unlock()

	logrus.WithField("phase", snap.Phase).Info("timer paused")
	c.relay(snap, relay)
	return snap, nil
}

// Resume continues a paused phase. The paused span is not counted.
func (c *Controller) Resume() (phase.Snapshot, error) {
	c.mu.Lock()
	if !c.paused {
		snap := c.decorateLocked(c.seq.Snapshot())
		c.mu.Unlock()
		return snap, phase.IllegalTransition("resume", snap.Phase)
	}
	pausedFor := c.clock.Now().Sub(c.pausedAt)
	if pausedFor > 0 {
		c.entry = c.entry.Add(pausedFor)
	}
	c.paused = false
	c.pausedAt = time.Time{}
	snap := c.decorateLocked(c.seq.Snapshot())
	relay := c.shouldRelayLocked(snap)
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"phase":     snap.Phase,
		"pausedFor": pausedFor.Round(time.Second),
	}).Info("timer resumed")
	c.relay(snap, relay)
	return snap, nil
}

// Snapshot returns the current snapshot without advancing time.
func (c *Controller) Snapshot() phase.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decorateLocked(c.seq.Snapshot())
}

// Poll advances the sequencer to the current time and relays the snapshot.
func (c *Controller) Poll() phase.Snapshot {
	c.mu.Lock()
	snap := c.decorateLocked(c.pollLocked())
	relay := c.shouldRelayLocked(snap)
	c.mu.Unlock()

	c.relay(snap, relay)
	return snap
}

func (c *Controller) pollLocked() phase.Snapshot {
	now := c.clock.Now()
	c.checkGapLocked(now)

	cur := c.seq.Snapshot()
	if !cur.Running || c.paused {
		return cur
	}

	elapsed := now.Sub(c.entry).Seconds()
	delta := elapsed - cur.ElapsedSeconds
	if delta <= 0 || math.IsNaN(delta) {
		return cur
	}

	return c.seq.Tick(delta)
}

func (c *Controller) checkGapLocked(now time.Time) {
	defer func() { c.lastPoll = now }()

	if c.lastPoll.IsZero() {
		return
	}
	if gap := now.Sub(c.lastPoll); gap > pollGapFactor*c.interval {
		logrus.WithFields(logrus.Fields{
			"gap":      gap.Round(time.Millisecond),
			"interval": c.interval,
		}).Debug("possibly missed polls, elapsed time is recomputed from phase entry")
	}
}

func (c *Controller) decorateLocked(snap phase.Snapshot) phase.Snapshot {
	snap.Paused = c.paused
	return snap
}

func (c *Controller) shouldRelayLocked(snap phase.Snapshot) bool {
	key := relayKey{
		phase:     snap.Phase,
		remaining: snap.RemainingSeconds,
		permille:  int(snap.Fraction * 1000),
		paused:    snap.Paused,
	}
	if key == c.last {
		return false
	}
	c.last = key
	return true
}

func (c *Controller) relay(snap phase.Snapshot, changed bool) {
	if !changed || c.onSnapshot == nil {
		return
	}
	c.onSnapshot(snap)
}

// Run polls until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	logrus.WithField("interval", c.interval).Debug("poll loop started")

	for {
		select {
		case <-ctx.Done():
			logrus.Debug("poll loop stopped")
			return nil
		case <-ticker.C:
			c.Poll()
		}
	}
}
