package daemon

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// quietPaths are polled by clients and only logged at trace level.
var quietPaths = map[string]struct{}{
	"/snapshot": {},
	"/version":  {},
}

// ginLogger logs every request through logger. Rejected operator actions are
// warnings carrying the reason.
func ginLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// other handler can change c.Path so:
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		statusCode := c.Writer.Status()

		entry := logger.WithFields(logrus.Fields{
			"statusCode": statusCode,
			"latency":    latency.Round(time.Millisecond),
			"method":     c.Request.Method,
			"path":       path,
			"dataLength": max(c.Writer.Size(), 0),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("reason", c.Errors.String())
		}

		msg := fmt.Sprintf("%s %s %d", c.Request.Method, path, statusCode)
		switch {
		case statusCode >= http.StatusInternalServerError:
			entry.Error(msg)
		case statusCode >= http.StatusBadRequest:
			entry.Warn(msg)
		default:
			if _, ok := quietPaths[path]; ok {
				entry.Trace(msg)
				return
			}
			entry.Debug(msg)
		}
	}
}
