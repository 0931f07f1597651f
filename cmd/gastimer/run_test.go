package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/charlie0129/gastimer/pkg/phase"
	"github.com/charlie0129/gastimer/pkg/sequencer"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type cueLog struct {
	mu     sync.Mutex
	events []phase.Event
}

func (l *cueLog) Notify(_ context.Context, ev phase.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *cueLog) got() []phase.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]phase.Event(nil), l.events...)
}

func newAttendedRun(in io.Reader, out io.Writer, cue sequencer.Notifier, clock *fakeClock) attendedRun {
	return attendedRun{
		sample:       phase.Config{UnitSeconds: 5, RepeatCount: 2},
		wash:         phase.Config{UnitSeconds: 3, RepeatCount: 1},
		pollInterval: 5 * time.Millisecond,
		cue:          cue,
		in:           in,
		out:          out,
		tty:          true,
		clock:        clock,
	}
}

func TestRunAttendedFullCycle(t *testing.T) {
	// Closing the input must stop every goroutine of the run.
	defer goleak.VerifyNone(t)

	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	out := &syncBuffer{}
	cues := &cueLog{}
	pr, pw := io.Pipe()
	defer pw.Close()

	done := make(chan error, 1)
	go func() {
		done <- runAttended(context.Background(), newAttendedRun(pr, out, cues, clock))
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "remaining 00:10")
	}, time.Second, 5*time.Millisecond)

	clock.Advance(10 * time.Second)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Press Enter")
	}, time.Second, 5*time.Millisecond)

	_, err := pw.Write([]byte("\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "remaining 00:03")
	}, time.Second, 5*time.Millisecond)

	clock.Advance(3 * time.Second)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not finish after the wash")
	}

	assert.Contains(t, out.String(), "Zero gas wash complete.")
	assert.Equal(t, []phase.Event{phase.EventSampleComplete, phase.EventWashComplete}, cues.got())
}

func TestRunAttendedIgnoresEarlyEnter(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	out := &syncBuffer{}
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- runAttended(ctx, newAttendedRun(pr, out, nil, clock))
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "remaining 00:10")
	}, time.Second, 5*time.Millisecond)

	// Enter during detection must not skip ahead to the wash.
	_, err := pw.Write([]byte("\n"))
	require.NoError(t, err)
	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "remaining 00:08")
	}, time.Second, 5*time.Millisecond)
	assert.NotContains(t, out.String(), "remaining 00:03")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
	assert.Contains(t, out.String(), "Run aborted")
}

func TestRunAttendedRejectsBadConfig(t *testing.T) {
	r := newAttendedRun(strings.NewReader(""), io.Discard, nil, nil)
	r.sample.UnitSeconds = 0

	err := runAttended(context.Background(), r)
	assert.ErrorIs(t, err, phase.ErrConfiguration)
}

func TestRendererPlainOutput(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out, false)

	for remaining := 25; remaining >= 0; remaining-- {
		r.snapshot(phase.Snapshot{
			Phase:            phase.PhaseSampleDetecting,
			Label:            phase.PhaseSampleDetecting.Label(),
			Fraction:         float64(25-remaining) / 25,
			RemainingSeconds: remaining,
		})
		// Repeated snapshots for the same second print once.
		r.snapshot(phase.Snapshot{
			Phase:            phase.PhaseSampleDetecting,
			Label:            phase.PhaseSampleDetecting.Label(),
			Fraction:         float64(25-remaining) / 25,
			RemainingSeconds: remaining,
		})
	}
	r.snapshot(phase.Snapshot{Phase: phase.PhaseAwaitingWash, Label: phase.PhaseAwaitingWash.Label()})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "remaining 00:20")
	assert.Contains(t, lines[1], "remaining 00:10")
	assert.Contains(t, lines[2], "remaining 00:00")
	assert.NotContains(t, out.String(), "\r")
}
