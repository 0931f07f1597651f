package daemon

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/gastimer/pkg/config"
	"github.com/charlie0129/gastimer/pkg/controller"
	"github.com/charlie0129/gastimer/pkg/events"
	"github.com/charlie0129/gastimer/pkg/notify"
	"github.com/charlie0129/gastimer/pkg/phase"
	"github.com/charlie0129/gastimer/pkg/sequencer"
)

const notifyQueueSize = 8

// Daemon owns the timer and everything that observes it.
type Daemon struct {
	conf     config.Config
	ctl      *controller.Controller
	hub      *events.EventHub
	notifier *notify.Async

	// pollInterval is fixed once the poll loop runs.
	pollInterval time.Duration

	mu    sync.Mutex
	runID string
	cues  sequencer.Notifier
}

// New wires a sequencer, controller and notifiers from conf.
func New(conf config.Config, extra ...controller.Option) (*Daemon, error) {
	d := &Daemon{
		conf:         conf,
		hub:          events.NewEventHub(),
		pollInterval: conf.PollInterval(),
	}

	d.cues = d.buildNotifier()
	d.notifier = notify.NewAsync(sequencer.NotifierFunc(d.notifyCues), notifyQueueSize)

	seq, err := sequencer.New(conf.SamplePhase(), conf.WashPhase(),
		sequencer.WithNotifier(d.notifier),
		sequencer.WithObserver(d.onTransition),
	)
	if err != nil {
		_ = d.notifier.Close(context.Background())
		return nil, fmt.Errorf("failed to create sequencer: %w", err)
	}

	opts := []controller.Option{
		controller.WithPollInterval(d.pollInterval),
		controller.WithSnapshotFunc(d.onSnapshot),
	}
	d.ctl = controller.New(seq, append(opts, extra...)...)

	return d, nil
}

func (d *Daemon) buildNotifier() sequencer.Notifier {
	m := notify.Multi{&notify.Hub{Hub: d.hub, RunID: d.currentRunID}}

	if d.conf.Bell() {
		m = append(m, notify.NewBell(os.Stderr))
	}

	if argv := d.conf.NotifyCommand(); len(argv) > 0 {
		m = append(m, &notify.Command{Path: argv[0], Args: argv[1:]})
	}

	return m
}

// notifyCues delivers to the cues built from the latest config.
func (d *Daemon) notifyCues(ctx context.Context, ev phase.Event) error {
	d.mu.Lock()
	cues := d.cues
	d.mu.Unlock()
	return cues.Notify(ctx, ev)
}

// Controller returns the timer controller.
func (d *Daemon) Controller() *controller.Controller { return d.ctl }

// Hub returns the event hub.
func (d *Daemon) Hub() *events.EventHub { return d.hub }

// Close flushes pending notifications.
func (d *Daemon) Close(ctx context.Context) error {
	return d.notifier.Close(ctx)
}

// ApplyConfig takes new settings from the config source. Cues are replaced
// right away, even mid-run. Durations fail with phase.ErrIllegalTransition
// while a run is in progress. The poll interval needs a restart.
func (d *Daemon) ApplyConfig() error {
	cues := d.buildNotifier()
	d.mu.Lock()
	d.cues = cues
	d.mu.Unlock()

	if p := d.conf.PollInterval(); p != d.pollInterval {
		logrus.WithFields(logrus.Fields{
			"current":   d.pollInterval,
			"requested": p,
		}).Warn("poll interval change takes effect after restart")
	}

	return d.ctl.Configure(d.conf.SamplePhase(), d.conf.WashPhase())
}

func (d *Daemon) currentRunID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runID
}

func (d *Daemon) onTransition(tr sequencer.Transition) {
	d.mu.Lock()
	if tr.To == phase.PhaseSampleDetecting {
		d.runID = uuid.NewString()
	}
	runID := d.runID
	d.mu.Unlock()

	sample, wash := d.ctl.Configs()
	msg := transitionMessage(tr, sample, wash)

	logrus.WithFields(logrus.Fields{
		"runId": runID,
		"from":  tr.From,
		"to":    tr.To,
	}).Info(msg)

	d.hub.Publish(events.PhaseChanged, events.PhaseChangedEvent{
		RunID:   runID,
		From:    string(tr.From),
		To:      string(tr.To),
		Message: msg,
		Ts:      tr.At.Unix(),
	})
}

func transitionMessage(tr sequencer.Transition, sample, wash phase.Config) string {
	switch {
	case tr.To == phase.PhaseSampleDetecting:
		return fmt.Sprintf("Sample bag detection started (%ds × %d)", sample.UnitSeconds, sample.RepeatCount)
	case tr.To == phase.PhaseAwaitingWash:
		return "Sample bag detection complete. Confirm to start the zero gas wash"
	case tr.To == phase.PhaseWashing:
		return fmt.Sprintf("Zero gas wash started (%ds × %d)", wash.UnitSeconds, wash.RepeatCount)
	case tr.Event == phase.EventWashComplete:
		return "Zero gas wash complete"
	case tr.To == phase.PhaseIdle:
		return fmt.Sprintf("Run reset during %s", tr.From.Label())
	}
	return ""
}

func (d *Daemon) onSnapshot(s phase.Snapshot) {
	logrus.WithFields(logrus.Fields{
		"phase":     s.Phase,
		"fraction":  fmt.Sprintf("%.3f", s.Fraction),
		"remaining": s.RemainingSeconds,
		"paused":    s.Paused,
	}).Trace("progress")

	d.hub.Publish(events.Progress, events.ProgressEvent{
		Phase:            string(s.Phase),
		Fraction:         s.Fraction,
		RemainingSeconds: s.RemainingSeconds,
		Ts:               time.Now().Unix(),
	})
}
