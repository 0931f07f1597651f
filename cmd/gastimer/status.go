package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charlie0129/gastimer/pkg/client"
	"github.com/charlie0129/gastimer/pkg/phase"
)

type statusJSON struct {
	Phase            phase.Phase         `json:"phase"`
	Label            string              `json:"label"`
	Running          bool                `json:"running"`
	Paused           bool                `json:"paused"`
	Fraction         float64             `json:"fraction"`
	RemainingSeconds int                 `json:"remainingSeconds"`
	TotalSeconds     int                 `json:"totalSeconds"`
	Configuration    client.PhaseConfigs `json:"configuration"`
}

func NewStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Show the current phase and progress",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := apiClient.GetSnapshot()
			if err != nil {
				return err
			}
			conf, err := apiClient.GetConfig()
			if err != nil {
				return err
			}

			if asJSON {
				b, err := json.MarshalIndent(statusJSON{
					Phase:            snap.Phase,
					Label:            snap.Label,
					Running:          snap.Running,
					Paused:           snap.Paused,
					Fraction:         snap.Fraction,
					RemainingSeconds: snap.RemainingSeconds,
					TotalSeconds:     snap.TotalSeconds,
					Configuration:    *conf,
				}, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal status: %w", err)
				}
				cmd.Println(string(b))
				return nil
			}

			cmd.Println(bold("Timer:"))
			cmd.Println("  " + formatSnapshot(*snap))
			cmd.Println()
			cmd.Println(bold("Configuration:"))
			cmd.Printf("  Sample bag detection: %ds × %d = %s\n",
				conf.Sample.UnitSeconds, conf.Sample.RepeatCount, formatSeconds(conf.Sample.TotalSeconds()))
			cmd.Printf("  Zero gas wash:        %ds × %d = %s\n",
				conf.Wash.UnitSeconds, conf.Wash.RepeatCount, formatSeconds(conf.Wash.TotalSeconds()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print status as JSON")

	return cmd
}
