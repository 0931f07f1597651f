// Package notify provides the cues that tell the operator a phase has
// finished. Every type implements sequencer.Notifier.
//
// Bell and Command may take a second or more to finish, so callers on the
// timing path wrap them in an Async queue.
package notify
