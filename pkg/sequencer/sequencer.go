package sequencer

import (
	"context"
	"math"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/gastimer/pkg/phase"
)

// Notifier is invoked once for every completed phase. It must not block; a
// returned error is logged and otherwise ignored.
type Notifier interface {
	Notify(ctx context.Context, ev phase.Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev phase.Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev phase.Event) error { return f(ctx, ev) }

// Transition describes one phase change.
type Transition struct {
	From  phase.Phase
	To    phase.Phase
	Event phase.Event // empty unless the transition completed a phase
	At    time.Time
}

// ObserverFunc receives every transition after it has been applied.
type ObserverFunc func(Transition)

// RunState is owned by the Sequencer and only changed under its lock.
type RunState struct {
	Phase          phase.Phase
	ElapsedSeconds float64
	Running        bool
}

// Sequencer is the sample/wash state machine.
type Sequencer struct {
	mu     sync.Mutex
	state  RunState
	sample phase.Config
	wash   phase.Config

	notifier Notifier
	observer ObserverFunc
	now      func() time.Time
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithNotifier sets the completion notifier.
func WithNotifier(n Notifier) Option { return func(s *Sequencer) { s.notifier = n } }

// WithObserver sets a callback for every transition.
func WithObserver(f ObserverFunc) Option { return func(s *Sequencer) { s.observer = f } }

// New returns an idle Sequencer. Both configs must be valid.
func New(sample, wash phase.Config, opts ...Option) (*Sequencer, error) {
	if err := validatePair(sample, wash); err != nil {
		return nil, err
	}

	s := &Sequencer{
		state:  RunState{Phase: phase.PhaseIdle},
		sample: sample,
		wash:   wash,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	return s, nil
}

func validatePair(sample, wash phase.Config) error {
	if err := sample.Validate(); err != nil {
		return pkgerrors.Wrap(err, "sample")
	}
	if err := wash.Validate(); err != nil {
		return pkgerrors.Wrap(err, "wash")
	}
	return nil
}

// Configure replaces both phase configs. It is only allowed while Idle.
func (s *Sequencer) Configure(sample, wash phase.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != phase.PhaseIdle {
		return phase.IllegalTransition("configure", s.state.Phase)
	}
	if err := validatePair(sample, wash); err != nil {
		return err
	}

	s.sample = sample
	s.wash = wash
	logrus.WithFields(logrus.Fields{
		"sampleTotal": sample.TotalSeconds(),
		"washTotal":   wash.TotalSeconds(),
	}).Debug("phase durations configured")

	return nil
}

// Configs returns the current sample and wash configs.
func (s *Sequencer) Configs() (sample, wash phase.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sample, s.wash
}

// Start begins sample-bag detection.
func (s *Sequencer) Start() (phase.Snapshot, error) {
	return s.enter("start", phase.PhaseIdle, phase.PhaseSampleDetecting)
}

// ConfirmWash begins the zero-gas wash after the operator confirms it.
func (s *Sequencer) ConfirmWash() (phase.Snapshot, error) {
	return s.enter("confirm wash", phase.PhaseAwaitingWash, phase.PhaseWashing)
}

func (s *Sequencer) enter(op string, from, to phase.Phase) (phase.Snapshot, error) {
	s.mu.Lock()
	if s.state.Phase != from {
		cur := s.state.Phase
		s.mu.Unlock()
		return phase.Snapshot{}, phase.IllegalTransition(op, cur)
	}
	s.state = RunState{Phase: to, ElapsedSeconds: 0, Running: true}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(Transition{From: from, To: to, At: s.now()})
	return snap, nil
}

// Reset returns to Idle from any phase and discards elapsed time. No
// notification is fired.
func (s *Sequencer) Reset() phase.Snapshot {
	s.mu.Lock()
	from := s.state.Phase
	s.state = RunState{Phase: phase.PhaseIdle}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if from != phase.PhaseIdle {
		s.emit(Transition{From: from, To: phase.PhaseIdle, At: s.now()})
	}
	return snap
}

// Tick advances the running phase by delta seconds. When the phase total is
// reached the sequencer moves on and notifies exactly once; later ticks are
// no-ops until the operator acts again.
func (s *Sequencer) Tick(delta float64) phase.Snapshot {
	if delta < 0 || math.IsNaN(delta) {
		delta = 0
	}

	s.mu.Lock()
	if !s.state.Running {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}

	total := float64(s.activeConfigLocked().TotalSeconds())
	s.state.ElapsedSeconds += delta
	if s.state.ElapsedSeconds < total {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}

	// Boundary crossed.
	from := s.state.Phase
	var tr Transition
	switch from {
	case phase.PhaseSampleDetecting:
		s.state = RunState{Phase: phase.PhaseAwaitingWash, ElapsedSeconds: total, Running: false}
		tr = Transition{From: from, To: phase.PhaseAwaitingWash, Event: phase.EventSampleComplete}
	case phase.PhaseWashing:
		s.state = RunState{Phase: phase.PhaseIdle}
		tr = Transition{From: from, To: phase.PhaseIdle, Event: phase.EventWashComplete}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	tr.At = s.now()
	logrus.WithFields(logrus.Fields{
		"from":  tr.From,
		"to":    tr.To,
		"event": tr.Event,
	}).Info("phase complete")

	s.emit(tr)
	s.notify(tr.Event)

	return snap
}

// State returns a copy of the run state.
func (s *Sequencer) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the progress of the active phase.
func (s *Sequencer) Snapshot() phase.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Sequencer) activeConfigLocked() phase.Config {
	if s.state.Phase == phase.PhaseWashing {
		return s.wash
	}
	return s.sample
}

func (s *Sequencer) snapshotLocked() phase.Snapshot {
	st := s.state
	conf := s.activeConfigLocked()
	total := conf.TotalSeconds()

	snap := phase.Snapshot{
		Phase:          st.Phase,
		Label:          st.Phase.Label(),
		ElapsedSeconds: st.ElapsedSeconds,
		TotalSeconds:   total,
		Running:        st.Running,
		CanStart:       st.Phase == phase.PhaseIdle,
		CanConfirmWash: st.Phase == phase.PhaseAwaitingWash,
	}

	switch st.Phase {
	case phase.PhaseIdle:
		snap.RemainingSeconds = total
	case phase.PhaseAwaitingWash:
		snap.Fraction = 1.0
	default:
		// Configs are validated on the way in, so total is always positive here.
		p, err := phase.Compute(st.ElapsedSeconds, total)
		if err != nil {
			logrus.WithError(err).Error("failed to compute progress")
			break
		}
		snap.Fraction = p.Fraction
		snap.RemainingSeconds = p.Remaining
	}

	return snap
}

func (s *Sequencer) emit(tr Transition) {
	if s.observer == nil {
		return
	}
	s.observer(tr)
}

// notify delivers ev without letting a failing notifier affect timing.
func (s *Sequencer) notify(ev phase.Event) {
	if s.notifier == nil || ev == "" {
		return
	}

	log := logrus.WithField("event", ev)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("notifier panicked: %v", r)
		}
	}()

	if err := s.notifier.Notify(context.Background(), ev); err != nil {
		log.WithError(err).Warn("failed to deliver notification")
	}
}
