package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/gastimer/pkg/client"
	"github.com/charlie0129/gastimer/pkg/phase"
	"github.com/charlie0129/gastimer/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
			if daemonVersion, err := apiClient.GetVersion(); err == nil && daemonVersion != version.Version {
				logrus.WithFields(logrus.Fields{
					"clientVersion": version.Version,
					"daemonVersion": daemonVersion,
				}).Warn("Version mismatch between client and daemon")
			}
		},
	}
}

func NewStartCommand() *cobra.Command {
	return newActionCommand("start", "Start sample bag detection",
		`Start sample bag detection.

Only allowed when the timer is idle. A cue is played when detection completes.`,
		func() (*phase.Snapshot, error) { return apiClient.Start() })
}

func NewWashCommand() *cobra.Command {
	cmd := newActionCommand("wash", "Confirm and start the zero gas wash",
		`Confirm and start the zero gas wash.

Only allowed after sample bag detection has completed.`,
		func() (*phase.Snapshot, error) { return apiClient.ConfirmWash() })
	cmd.Aliases = []string{"confirm-wash"}
	return cmd
}

func NewResetCommand() *cobra.Command {
	return newActionCommand("reset", "Abort the current run and return to idle",
		`Abort the current run and return to idle. Elapsed time is discarded and no cue is played.`,
		func() (*phase.Snapshot, error) { return apiClient.Reset() })
}

func NewPauseCommand() *cobra.Command {
	cmd := newActionCommand("pause", "Pause the running phase", "",
		func() (*phase.Snapshot, error) { return apiClient.Pause() })
	cmd.GroupID = gAdvanced
	return cmd
}

func NewResumeCommand() *cobra.Command {
	cmd := newActionCommand("resume", "Resume a paused phase", "",
		func() (*phase.Snapshot, error) { return apiClient.Resume() })
	cmd.GroupID = gAdvanced
	return cmd
}

func NewConfigureCommand() *cobra.Command {
	var sampleUnit, sampleCount, washUnit, washCount int

	cmd := &cobra.Command{
		Use:     "configure",
		Short:   "Set phase durations for the next run",
		GroupID: gBasic,
		Long: `Set phase durations for the next run.

Each phase lasts unit seconds × repeat count. Flags that are not given keep
their current value. Durations can only be changed while the timer is idle,
and are not kept after the daemon restarts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cur, err := apiClient.GetConfig()
			if err != nil {
				return err
			}

			next := *cur
			f := cmd.Flags()
			if f.Changed("sample-unit") {
				next.Sample.UnitSeconds = sampleUnit
			}
			if f.Changed("sample-count") {
				next.Sample.RepeatCount = sampleCount
			}
			if f.Changed("wash-unit") {
				next.Wash.UnitSeconds = washUnit
			}
			if f.Changed("wash-count") {
				next.Wash.RepeatCount = washCount
			}

			if err := validateConfigs(next); err != nil {
				return err
			}
			if err := apiClient.SetConfig(next); err != nil {
				return fmt.Errorf("failed to configure: %w", err)
			}

			logrus.Infof("sample bag detection: %ds × %d = %ds, zero gas wash: %ds × %d = %ds",
				next.Sample.UnitSeconds, next.Sample.RepeatCount, next.Sample.TotalSeconds(),
				next.Wash.UnitSeconds, next.Wash.RepeatCount, next.Wash.TotalSeconds())
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&sampleUnit, "sample-unit", 0, "sample bag detection unit time in seconds")
	f.IntVar(&sampleCount, "sample-count", 0, "sample bag detection repeat count")
	f.IntVar(&washUnit, "wash-unit", 0, "zero gas wash unit time in seconds")
	f.IntVar(&washCount, "wash-count", 0, "zero gas wash repeat count")

	return cmd
}

func validateConfigs(c client.PhaseConfigs) error {
	if err := c.Sample.Validate(); err != nil {
		return fmt.Errorf("sample: %w", err)
	}
	if err := c.Wash.Validate(); err != nil {
		return fmt.Errorf("wash: %w", err)
	}
	return nil
}
