package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/gastimer/pkg/phase"
)

// newActionCommand builds a command that sends one operator action to the
// daemon and prints the resulting snapshot.
func newActionCommand(use, short, long string, action func() (*phase.Snapshot, error)) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Short:   short,
		Long:    long,
		GroupID: gBasic,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := action()
			if err != nil {
				return fmt.Errorf("failed to %s: %w", use, err)
			}
			logrus.WithField("phase", snap.Phase).Debugf("%s accepted", use)
			cmd.Println(formatSnapshot(*snap))
			return nil
		},
	}
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

func phaseColor(p phase.Phase) *color.Color {
	switch p {
	case phase.PhaseSampleDetecting:
		return color.New(color.Bold, color.FgCyan)
	case phase.PhaseAwaitingWash:
		return color.New(color.Bold, color.FgYellow)
	case phase.PhaseWashing:
		return color.New(color.Bold, color.FgBlue)
	}
	return color.New(color.Bold, color.FgGreen)
}

// progressBar renders fraction as a fixed-width bar.
func progressBar(fraction float64, width int) string {
	if width < 1 {
		width = 1
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func formatSeconds(s int) string {
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

func formatSnapshot(s phase.Snapshot) string {
	label := phaseColor(s.Phase).Sprint(s.Label)
	if s.Paused {
		label += color.New(color.FgYellow).Sprint(" (paused)")
	}

	switch s.Phase {
	case phase.PhaseIdle:
		return fmt.Sprintf("%s. Next run: %s", label, formatSeconds(s.RemainingSeconds))
	case phase.PhaseAwaitingWash:
		return fmt.Sprintf("%s. Run 'gastimer wash' to start the zero gas wash", label)
	}
	return fmt.Sprintf("%s %s %3.0f%%  remaining %s",
		label, progressBar(s.Fraction, 30), s.Fraction*100, formatSeconds(s.RemainingSeconds))
}
