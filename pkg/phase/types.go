package phase

// Phase defines the states of the sample/wash cycle.
type Phase string

const (
	PhaseIdle            Phase = "Idle"
	PhaseSampleDetecting Phase = "SampleDetecting"
	PhaseAwaitingWash    Phase = "AwaitingWash"
	PhaseWashing         Phase = "Washing"
)

// Ticking reports whether time advances in this phase. Idle and AwaitingWash
// wait for the operator.
func (p Phase) Ticking() bool {
	return p == PhaseSampleDetecting || p == PhaseWashing
}

// Label is the operator-facing name of the phase.
func (p Phase) Label() string {
	switch p {
	case PhaseIdle:
		return "Ready"
	case PhaseSampleDetecting:
		return "Sample bag detection"
	case PhaseAwaitingWash:
		return "Waiting for wash"
	case PhaseWashing:
		return "Zero gas wash"
	}
	return string(p)
}

// Event is a completion tag handed to notifiers. Collaborators map it to an
// audible, vibration or visual cue.
type Event string

const (
	EventSampleComplete Event = "sample-complete"
	EventWashComplete   Event = "wash-complete"
)

// MaxTotalSeconds caps the duration of one phase at a day. It also keeps
// UnitSeconds × RepeatCount from overflowing.
const MaxTotalSeconds = 24 * 60 * 60

// Config is the duration of one timed phase.
type Config struct {
	UnitSeconds int `json:"unitSeconds"`
	RepeatCount int `json:"repeatCount"`
}

// TotalSeconds is UnitSeconds × RepeatCount.
func (c Config) TotalSeconds() int {
	return c.UnitSeconds * c.RepeatCount
}

// Validate returns ErrConfiguration if either field is not positive or the
// total exceeds MaxTotalSeconds.
func (c Config) Validate() error {
	if c.UnitSeconds < 1 {
		return configErrorf("unit seconds must be at least 1, got %d", c.UnitSeconds)
	}
	if c.RepeatCount < 1 {
		return configErrorf("repeat count must be at least 1, got %d", c.RepeatCount)
	}
	if c.UnitSeconds > MaxTotalSeconds/c.RepeatCount {
		return configErrorf("%ds × %d exceeds the %ds phase limit", c.UnitSeconds, c.RepeatCount, MaxTotalSeconds)
	}
	return nil
}

// Snapshot is a point-in-time view of the active phase. It is recomputed on
// every query and never stored.
type Snapshot struct {
	Phase            Phase   `json:"phase"`
	Label            string  `json:"label"`
	Fraction         float64 `json:"fraction"`
	RemainingSeconds int     `json:"remainingSeconds"`
	ElapsedSeconds   float64 `json:"elapsedSeconds"`
	TotalSeconds     int     `json:"totalSeconds"`
	Running          bool    `json:"running"`
	Paused           bool    `json:"paused"`
	// CanStart and CanConfirmWash tell presentation layers which operator
	// action is currently accepted.
	CanStart       bool `json:"canStart"`
	CanConfirmWash bool `json:"canConfirmWash"`
}
