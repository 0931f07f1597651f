package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/gastimer/pkg/phase"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "gastimer.json")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, phase.Config{UnitSeconds: 50, RepeatCount: 3}, f.SamplePhase())
	assert.Equal(t, phase.Config{UnitSeconds: 50, RepeatCount: 2}, f.WashPhase())
	assert.Equal(t, 100*time.Millisecond, f.PollInterval())
	assert.True(t, f.Bell())
	assert.False(t, f.AllowNonRootAccess())
	assert.Empty(t, f.NotifyCommand())
}

func TestLoadEmptyFile(t *testing.T) {
	f, err := NewFile(writeConfig(t, "  \n"))
	require.NoError(t, err)
	assert.Equal(t, 150, f.SamplePhase().TotalSeconds())
}

func TestLoadOverrides(t *testing.T) {
	f, err := NewFile(writeConfig(t, `{
  "sampleUnitSeconds": 5,
  "sampleRepeatCount": 2,
  "washRepeatCount": 4,
  "pollIntervalMillis": 50,
  "bell": false,
  "notifyCommand": ["paplay", "/usr/share/sounds/done.oga"]
}`))
	require.NoError(t, err)

	assert.Equal(t, phase.Config{UnitSeconds: 5, RepeatCount: 2}, f.SamplePhase())
	assert.Equal(t, phase.Config{UnitSeconds: 50, RepeatCount: 4}, f.WashPhase())
	assert.Equal(t, 50*time.Millisecond, f.PollInterval())
	assert.False(t, f.Bell())
	assert.Equal(t, []string{"paplay", "/usr/share/sounds/done.oga"}, f.NotifyCommand())
	assert.NotEmpty(t, f.LogrusFields())
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := NewFile(writeConfig(t, `{"washUnitSeconds": 0}`))
	assert.ErrorIs(t, err, phase.ErrConfiguration)

	// 50 s × 2000 is over a day.
	_, err = NewFile(writeConfig(t, `{"washRepeatCount": 2000}`))
	assert.ErrorIs(t, err, phase.ErrConfiguration)

	_, err = NewFile(writeConfig(t, `{"sampleUnitSeconds": 4611686018427387904, "sampleRepeatCount": 4}`))
	assert.ErrorIs(t, err, phase.ErrConfiguration)

	_, err = NewFile(writeConfig(t, `{not json`))
	assert.Error(t, err)
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	p := writeConfig(t, `{"sampleUnitSeconds": 7}`)
	f, err := NewFile(p)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(p, []byte(`{"sampleUnitSeconds": -1}`), 0644))
	assert.Error(t, f.Load())
	assert.Equal(t, 7, f.SamplePhase().UnitSeconds)
}

func TestNewFileFromConfigNil(t *testing.T) {
	f := NewFileFromConfig(nil, "")
	assert.Equal(t, 150, f.SamplePhase().TotalSeconds())
	assert.Equal(t, 100, f.WashPhase().TotalSeconds())
}
