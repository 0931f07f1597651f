package service

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Uninstall stops the daemon and removes its unit. A missing unit is not an
// error.
func (i *Installer) Uninstall() error {
	logrus.Infof("stopping gastimer")

	if err := i.systemctl("disable", "--now", UnitName); err != nil {
		return fmt.Errorf("failed to stop %s: %w. Are you root?", UnitName, err)
	}

	unitPath := i.unitPath()
	logrus.Infof("removing %s", unitPath)

	err := os.Remove(unitPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w. Are you root?", unitPath, err)
	}

	return i.systemctl("daemon-reload")
}
