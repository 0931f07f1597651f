package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/gastimer/pkg/client"
)

var (
	logLevel       = "info"
	unixSocketPath = "/tmp/gastimer.sock"
	configPath     = "/etc/gastimer.json"
)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
	}
)

var apiClient *client.Client

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: gastimer daemon is not running")
		fmt.Fprintln(os.Stderr, "Start it with 'gastimer daemon', or use 'gastimer run' for a standalone timer.")
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or set \"allowNonRootAccess\": true in the daemon config")
	} else if client.IsConflict(err) {
		fmt.Fprintln(os.Stderr, "\nThat action is not available right now. Check 'gastimer status'.")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gastimer",
		Short: "gastimer times sample bag detection and zero gas wash",
		Long: `gastimer times the two phases of a gas analyser run: sample bag detection,
followed by an operator-confirmed zero gas wash. Each phase lasts
unit time × repeat count, and a cue is played when a phase completes.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			apiClient = client.NewClient(unixSocketPath)
			return setupLogger()
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "gastimer daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewConfigureCommand(),
		NewStartCommand(),
		NewWashCommand(),
		NewResetCommand(),
		NewPauseCommand(),
		NewResumeCommand(),
		NewStatusCommand(),
		NewWatchCommand(),
		NewRunCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
