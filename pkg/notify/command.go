package notify

import (
	"context"
	"os"
	"os/exec"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/gastimer/pkg/phase"
)

const defaultCommandTimeout = 10 * time.Second

// Command runs an external program for every event, e.g. a sound player or a
// phone vibration helper. The event tag is passed in GASTIMER_EVENT.
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

func (c *Command) Notify(ctx context.Context, ev phase.Event) error {
	if c.Path == "" {
		return pkgerrors.New("notify command is empty")
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Env = append(os.Environ(), "GASTIMER_EVENT="+string(ev))

	out, err := cmd.CombinedOutput()
	if err != nil {
		return pkgerrors.Wrapf(err, "notify command %s failed: %s", c.Path, string(out))
	}

	logrus.WithFields(logrus.Fields{
		"command": c.Path,
		"event":   ev,
	}).Trace("notify command finished")

	return nil
}
