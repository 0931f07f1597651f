// Package phase defines the types shared by the sequencer, controller, daemon
// and CLI of the attended gas timer. It contains:
//
//   - Phase: the discrete states of the sample/wash cycle
//   - Config: the unit-time × repeat-count duration of one timed phase
//   - Snapshot: the read-only progress view returned by the sequencer and HTTP APIs
//   - Compute: the conversion from elapsed time to progress
//
// These types are shared across packages to keep JSON contracts consistent.
package phase
