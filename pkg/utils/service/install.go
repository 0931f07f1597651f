package service

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// UnitName is the systemd unit the daemon is installed as.
	UnitName = "gastimer.service"

	defaultUnitDir = "/etc/systemd/system"
)

const unitTemplate = `[Unit]
Description=gastimer sample bag detection and zero gas wash timer
After=network.target

[Service]
Type=simple
ExecStart=/path/to/gastimer daemon --config /path/to/config --daemon-socket /path/to/socket{{flags}}
Restart=on-failure
ExecReload=/bin/kill -HUP $MAINPID

[Install]
WantedBy=multi-user.target
`

// Installer writes the daemon unit and drives systemctl.
type Installer struct {
	// UnitDir defaults to /etc/systemd/system.
	UnitDir            string
	ExecPath           string
	ConfigPath         string
	SocketPath         string
	AllowNonRootAccess bool

	// Systemctl runs systemctl with args. Tests replace it.
	Systemctl func(args ...string) error
}

func (i *Installer) unitPath() string {
	dir := i.UnitDir
	if dir == "" {
		dir = defaultUnitDir
	}
	return filepath.Join(dir, UnitName)
}

func (i *Installer) systemctl(args ...string) error {
	if i.Systemctl != nil {
		return i.Systemctl(args...)
	}
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Unit renders the unit file content.
func (i *Installer) Unit() string {
	flags := ""
	if i.AllowNonRootAccess {
		flags = " --always-allow-non-root-access"
	}
	r := strings.NewReplacer(
		"/path/to/gastimer", i.ExecPath,
		"/path/to/config", i.ConfigPath,
		"/path/to/socket", i.SocketPath,
		"{{flags}}", flags,
	)
	return r.Replace(unitTemplate)
}

// Install writes the unit, then enables and starts it. An empty ExecPath
// means the running executable.
func (i *Installer) Install() error {
	if i.ExecPath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get the path to the current executable: %w", err)
		}
		exePath, err = filepath.Abs(exePath)
		if err != nil {
			return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
		}
		i.ExecPath = exePath
	}

	logrus.Infof("executable path: %s", i.ExecPath)

	unitPath := i.unitPath()
	if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(unitPath), err)
	}

	// warn if the file already exists
	if _, err := os.Stat(unitPath); err == nil {
		logrus.Warnf("%s already exists, overwriting", unitPath)
	}

	logrus.Infof("writing %s", unitPath)
	if err := os.WriteFile(unitPath, []byte(i.Unit()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", unitPath, err)
	}

	if err := i.systemctl("daemon-reload"); err != nil {
		return err
	}

	logrus.Infof("starting gastimer")

	return i.systemctl("enable", "--now", UnitName)
}
