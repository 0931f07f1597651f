package client

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/gastimer/pkg/events"
	"github.com/charlie0129/gastimer/pkg/phase"
)

// serveUnix starts h on a unix socket and returns a client for it.
func serveUnix(t *testing.T, h http.Handler) *Client {
	t.Helper()
	dir, err := os.MkdirTemp("", "gt")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	sock := filepath.Join(dir, "d.sock")
	l, err := net.Listen("unix", sock)
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(h)
	srv.Listener = l
	srv.Start()
	t.Cleanup(srv.Close)

	return NewClient(sock)
}

func TestDaemonNotRunning(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	_, err := c.GetSnapshot()
	assert.ErrorIs(t, err, ErrDaemonNotRunning)
}

func TestSnapshotAndConflict(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"phase":"SampleDetecting","fraction":0.4,"remainingSeconds":6,"running":true}`))
	})
	mux.HandleFunc("/start", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`"cannot start while SampleDetecting: illegal transition"`))
	})
	c := serveUnix(t, mux)

	snap, err := c.GetSnapshot()
	require.NoError(t, err)
	assert.Equal(t, phase.PhaseSampleDetecting, snap.Phase)
	assert.InDelta(t, 0.4, snap.Fraction, 1e-9)
	assert.Equal(t, 6, snap.RemainingSeconds)

	_, err = c.Start()
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "cannot start while SampleDetecting")

	_, err = c.GetVersion()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetConfigSendsJSON(t *testing.T) {
	var got string
	mux := http.NewServeMux()
	mux.HandleFunc("/config", func(w http.ResponseWriter, r *http.Request) {
		b := new(bytes.Buffer)
		_, _ = b.ReadFrom(r.Body)
		got = b.String()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`"ok"`))
	})
	c := serveUnix(t, mux)

	err := c.SetConfig(PhaseConfigs{
		Sample: phase.Config{UnitSeconds: 5, RepeatCount: 2},
		Wash:   phase.Config{UnitSeconds: 3, RepeatCount: 1},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sample":{"unitSeconds":5,"repeatCount":2},"wash":{"unitSeconds":3,"repeatCount":1}}`, got)
}

func TestReadEvents(t *testing.T) {
	stream := strings.Join([]string{
		": keep-alive",
		"",
		"event:phase.complete",
		`data:{"event":"sample-complete","ts":1}`,
		"",
		"event:progress",
		`data: {"phase":"Washing","fraction":0.5}`,
		"",
	}, "\n")

	out := make(chan events.Event, 4)
	require.NoError(t, readEvents(context.Background(), strings.NewReader(stream), out))
	close(out)

	var got []events.Event
	for ev := range out {
		got = append(got, ev)
	}
	require.Len(t, got, 2)
	assert.Equal(t, events.PhaseComplete, got[0].Name)
	p, err := events.DecodeAs[events.PhaseCompleteEvent](got[0])
	require.NoError(t, err)
	assert.Equal(t, "sample-complete", p.Event)

	prog, err := events.DecodeAs[events.ProgressEvent](got[1])
	require.NoError(t, err)
	assert.Equal(t, "Washing", prog.Phase)
}

func TestSubscribeEvents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event:phase.changed\ndata:{\"to\":\"AwaitingWash\"}\n\n"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	c := serveUnix(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	ch := c.SubscribeEvents(ctx)

	select {
	case ev := <-ch:
		assert.Equal(t, events.PhaseChanged, ev.Name)
		p, err := events.DecodeAs[events.PhaseChangedEvent](ev)
		require.NoError(t, err)
		assert.Equal(t, "AwaitingWash", p.To)
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
	}

	cancel()
	for range ch {
	}
}
