package daemon

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/gastimer/pkg/events"
)

var sseKeepAliveInterval = 15 * time.Second

// streamEvents forwards hub events as server-sent events until the client
// goes away.
func (d *Daemon) streamEvents(c *gin.Context) {
	ch := d.hub.Subscribe()
	defer d.hub.Unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// Let new subscribers render the current state right away.
	snap := d.ctl.Snapshot()
	c.SSEvent(events.Progress, mustJSON(events.ProgressEvent{
		Phase:            string(snap.Phase),
		Fraction:         snap.Fraction,
		RemainingSeconds: snap.RemainingSeconds,
		Ts:               time.Now().Unix(),
	}))
	c.Writer.Flush()

	keepAlive := time.NewTicker(sseKeepAliveInterval)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	logrus.Debug("event subscriber connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			logrus.Debug("event subscriber disconnected")
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-keepAlive.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		}
	})
}
