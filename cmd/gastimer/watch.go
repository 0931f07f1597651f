package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/gastimer/pkg/events"
	"github.com/charlie0129/gastimer/pkg/notify"
	"github.com/charlie0129/gastimer/pkg/phase"
)

func NewWatchCommand() *cobra.Command {
	var bell bool

	cmd := &cobra.Command{
		Use:     "watch",
		GroupID: gBasic,
		Short:   "Follow progress and play a cue when a phase completes",
		Long: `Follow progress reported by the daemon.

With --bell, the terminal bell rings when a phase completes, so the operator
can sit at a different machine from the one running the daemon.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var cue *notify.Async
			if bell {
				cue = notify.NewAsync(notify.NewBell(os.Stdout), 4)
				defer func() { _ = cue.Close(context.Background()) }()
			}

			tty := term.IsTerminal(int(os.Stdout.Fd()))
			for ev := range apiClient.SubscribeEvents(ctx) {
				switch ev.Name {
				case events.Progress:
					p, err := events.DecodeAs[events.ProgressEvent](ev)
					if err != nil {
						logrus.WithError(err).Error("failed to decode progress event")
						continue
					}
					if !tty {
						continue
					}
					fmt.Fprintf(os.Stdout, "\r\033[K%s", formatSnapshot(phase.Snapshot{
						Phase:            phase.Phase(p.Phase),
						Label:            phase.Phase(p.Phase).Label(),
						Fraction:         p.Fraction,
						RemainingSeconds: p.RemainingSeconds,
					}))
				case events.PhaseChanged:
					p, err := events.DecodeAs[events.PhaseChangedEvent](ev)
					if err != nil {
						logrus.WithError(err).Error("failed to decode phase event")
						continue
					}
					fmt.Fprintf(os.Stdout, "\r\033[K%s\n", p.Message)
				case events.PhaseComplete:
					p, err := events.DecodeAs[events.PhaseCompleteEvent](ev)
					if err != nil {
						logrus.WithError(err).Error("failed to decode completion event")
						continue
					}
					fmt.Fprintf(os.Stdout, "\r\033[K%s\n", color.New(color.Bold, color.FgGreen).Sprint(p.Event))
					if cue != nil {
						if err := cue.Notify(ctx, phase.Event(p.Event)); err != nil {
							logrus.WithError(err).Warn("failed to play cue")
						}
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&bell, "bell", true, "ring the terminal bell when a phase completes")

	return cmd
}
