package config

import (
	"time"

	"github.com/charlie0129/gastimer/pkg/phase"
)

// Config holds the startup defaults of the daemon. Parameters changed through
// the API only live for the current run and are never written back.
type Config interface {
	SamplePhase() phase.Config
	WashPhase() phase.Config
	PollInterval() time.Duration
	Bell() bool
	NotifyCommand() []string
	AllowNonRootAccess() bool

	// Load reads the configuration from the source.
	Load() error
}
