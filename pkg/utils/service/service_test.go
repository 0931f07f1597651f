package service

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
	fail  string
}

func (r *recorder) run(args ...string) error {
	call := strings.Join(args, " ")
	r.calls = append(r.calls, call)
	if call == r.fail {
		return errors.New("exit status 1")
	}
	return nil
}

func newInstaller(t *testing.T, rec *recorder) *Installer {
	return &Installer{
		UnitDir:    t.TempDir(),
		ExecPath:   "/usr/local/bin/gastimer",
		ConfigPath: "/etc/gastimer.json",
		SocketPath: "/run/gastimer.sock",
		Systemctl:  rec.run,
	}
}

func TestUnit(t *testing.T) {
	i := newInstaller(t, &recorder{})

	unit := i.Unit()
	assert.Contains(t, unit, "ExecStart=/usr/local/bin/gastimer daemon --config /etc/gastimer.json --daemon-socket /run/gastimer.sock\n")

	i.AllowNonRootAccess = true
	assert.Contains(t, i.Unit(), "--daemon-socket /run/gastimer.sock --always-allow-non-root-access\n")
	assert.NotContains(t, i.Unit(), "{{flags}}")
}

func TestInstallUninstall(t *testing.T) {
	rec := &recorder{}
	i := newInstaller(t, rec)

	require.NoError(t, i.Install())
	content, err := os.ReadFile(filepath.Join(i.UnitDir, UnitName))
	require.NoError(t, err)
	assert.Equal(t, i.Unit(), string(content))

	require.NoError(t, i.Uninstall())
	_, err = os.Stat(filepath.Join(i.UnitDir, UnitName))
	assert.True(t, os.IsNotExist(err))

	// Uninstalling twice is fine.
	require.NoError(t, i.Uninstall())

	assert.Equal(t, []string{
		"daemon-reload",
		"enable --now " + UnitName,
		"disable --now " + UnitName,
		"daemon-reload",
		"disable --now " + UnitName,
		"daemon-reload",
	}, rec.calls)
}

func TestInstallSystemctlFailure(t *testing.T) {
	rec := &recorder{fail: "enable --now " + UnitName}
	i := newInstaller(t, rec)

	assert.Error(t, i.Install())
}
