package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/gastimer/pkg/config"
	"github.com/charlie0129/gastimer/pkg/controller"
	"github.com/charlie0129/gastimer/pkg/notify"
	"github.com/charlie0129/gastimer/pkg/phase"
	"github.com/charlie0129/gastimer/pkg/sequencer"
)

// NewRunCommand runs one attended cycle in this process, without a daemon.
func NewRunCommand() *cobra.Command {
	var sampleUnit, sampleCount, washUnit, washCount int
	var bell bool

	cmd := &cobra.Command{
		Use:     "run",
		GroupID: gBasic,
		Short:   "Run one attended cycle in this terminal",
		Long: `Run one sample bag detection and zero gas wash cycle in this terminal.

No daemon is needed. Defaults come from the config file. Press Enter to start
the wash once detection completes. Ctrl-C aborts the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			sample, wash := conf.SamplePhase(), conf.WashPhase()
			f := cmd.Flags()
			if f.Changed("sample-unit") {
				sample.UnitSeconds = sampleUnit
			}
			if f.Changed("sample-count") {
				sample.RepeatCount = sampleCount
			}
			if f.Changed("wash-unit") {
				wash.UnitSeconds = washUnit
			}
			if f.Changed("wash-count") {
				wash.RepeatCount = washCount
			}
			if !f.Changed("bell") {
				bell = conf.Bell()
			}

			var cues notify.Multi
			if bell {
				cues = append(cues, notify.NewBell(os.Stdout))
			}
			if argv := conf.NotifyCommand(); len(argv) > 0 {
				cues = append(cues, &notify.Command{Path: argv[0], Args: argv[1:]})
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runAttended(ctx, attendedRun{
				sample:       sample,
				wash:         wash,
				pollInterval: conf.PollInterval(),
				cue:          cues,
				in:           os.Stdin,
				out:          os.Stdout,
				tty:          term.IsTerminal(int(os.Stdout.Fd())),
			})
		},
	}

	f := cmd.Flags()
	f.IntVar(&sampleUnit, "sample-unit", 0, "sample bag detection unit time in seconds")
	f.IntVar(&sampleCount, "sample-count", 0, "sample bag detection repeat count")
	f.IntVar(&washUnit, "wash-unit", 0, "zero gas wash unit time in seconds")
	f.IntVar(&washCount, "wash-count", 0, "zero gas wash repeat count")
	f.BoolVar(&bell, "bell", true, "ring the terminal bell when a phase completes")

	return cmd
}

type attendedRun struct {
	sample, wash phase.Config
	pollInterval time.Duration
	cue          sequencer.Notifier
	in           io.Reader
	out          io.Writer
	tty          bool
	// clock overrides the system clock in tests.
	clock controller.Clock
}

// runAttended drives one full cycle. It returns nil after the wash completes
// and ctx.Err() if the operator aborts.
func runAttended(ctx context.Context, r attendedRun) error {
	var cue *notify.Async
	if r.cue != nil {
		cue = notify.NewAsync(r.cue, 4)
		defer func() {
			// Let the last cue finish before the process exits.
			closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = cue.Close(closeCtx)
		}()
	}

	transitions := make(chan sequencer.Transition, 8)
	opts := []sequencer.Option{
		sequencer.WithObserver(func(tr sequencer.Transition) {
			select {
			case transitions <- tr:
			default:
				logrus.WithField("to", tr.To).Warn("transition dropped")
			}
		}),
	}
	if cue != nil {
		opts = append(opts, sequencer.WithNotifier(cue))
	}

	seq, err := sequencer.New(r.sample, r.wash, opts...)
	if err != nil {
		return err
	}

	render := newRenderer(r.out, r.tty)
	ctlOpts := []controller.Option{
		controller.WithPollInterval(r.pollInterval),
		controller.WithSnapshotFunc(render.snapshot),
	}
	if r.clock != nil {
		ctlOpts = append(ctlOpts, controller.WithClock(r.clock))
	}
	ctl := controller.New(seq, ctlOpts...)

	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = ctl.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	// The reader goroutine ends when r.in reaches EOF. A read on os.Stdin
	// cannot be interrupted, so there it lingers until the process exits.
	lines := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- struct{}{}:
			case <-loopCtx.Done():
				return
			}
		}
	}()

	if _, err := ctl.Start(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			ctl.Reset()
			render.line(color.New(color.FgYellow).Sprint("Run aborted"))
			return ctx.Err()
		case <-lines:
			if !ctl.Snapshot().CanConfirmWash {
				continue
			}
			if _, err := ctl.ConfirmWash(); err != nil {
				logrus.WithError(err).Warn("failed to start wash")
			}
		case tr := <-transitions:
			switch {
			case tr.To == phase.PhaseAwaitingWash:
				render.line(bold("Sample bag detection complete.") + " Press Enter to start the zero gas wash.")
			case tr.Event == phase.EventWashComplete:
				render.line(bold("Zero gas wash complete."))
				return nil
			}
		}
	}
}

// renderer prints snapshots. On a terminal it redraws one line; otherwise it
// prints a line every reportEvery seconds of remaining time.
type renderer struct {
	mu   sync.Mutex
	out  io.Writer
	tty  bool
	last int
}

const reportEvery = 10

func newRenderer(out io.Writer, tty bool) *renderer {
	return &renderer{out: out, tty: tty, last: -1}
}

func (r *renderer) snapshot(s phase.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Phase == phase.PhaseIdle || s.Phase == phase.PhaseAwaitingWash {
		return
	}
	if r.tty {
		fmt.Fprintf(r.out, "\r\033[K%s", formatSnapshot(s))
		return
	}
	if s.RemainingSeconds == r.last || s.RemainingSeconds%reportEvery != 0 {
		return
	}
	r.last = s.RemainingSeconds
	fmt.Fprintln(r.out, formatSnapshot(s))
}

func (r *renderer) line(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tty {
		fmt.Fprint(r.out, "\r\033[K")
	}
	fmt.Fprintln(r.out, msg)
}
