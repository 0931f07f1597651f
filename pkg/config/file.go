package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/gastimer/pkg/phase"
	"github.com/charlie0129/gastimer/pkg/utils/ptr"
)

var (
	// Defaults match the values operators used on the bench.
	defaultFileConfig = &RawFileConfig{
		SampleUnitSeconds:  ptr.To(50),
		SampleRepeatCount:  ptr.To(3),
		WashUnitSeconds:    ptr.To(50),
		WashRepeatCount:    ptr.To(2),
		PollIntervalMillis: ptr.To(100),
		Bell:               ptr.To(true),
		AllowNonRootAccess: ptr.To(false),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = defaultFileConfig
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	SampleUnitSeconds  *int     `json:"sampleUnitSeconds,omitempty"`
	SampleRepeatCount  *int     `json:"sampleRepeatCount,omitempty"`
	WashUnitSeconds    *int     `json:"washUnitSeconds,omitempty"`
	WashRepeatCount    *int     `json:"washRepeatCount,omitempty"`
	PollIntervalMillis *int     `json:"pollIntervalMillis,omitempty"`
	Bell               *bool    `json:"bell,omitempty"`
	NotifyCommand      []string `json:"notifyCommand,omitempty"`
	AllowNonRootAccess *bool    `json:"allowNonRootAccess,omitempty"`
}

func (r *RawFileConfig) validate() error {
	for name, v := range map[string]*int{
		"sampleUnitSeconds": r.SampleUnitSeconds,
		"sampleRepeatCount": r.SampleRepeatCount,
		"washUnitSeconds":   r.WashUnitSeconds,
		"washRepeatCount":   r.WashRepeatCount,
	} {
		if v != nil && *v < 1 {
			return pkgerrors.Wrapf(phase.ErrConfiguration, "%s must be at least 1, got %d", name, *v)
		}
	}

	sample := phase.Config{
		UnitSeconds: intOr(r.SampleUnitSeconds, defaultFileConfig.SampleUnitSeconds),
		RepeatCount: intOr(r.SampleRepeatCount, defaultFileConfig.SampleRepeatCount),
	}
	if err := sample.Validate(); err != nil {
		return pkgerrors.Wrap(err, "sample")
	}
	wash := phase.Config{
		UnitSeconds: intOr(r.WashUnitSeconds, defaultFileConfig.WashUnitSeconds),
		RepeatCount: intOr(r.WashRepeatCount, defaultFileConfig.WashRepeatCount),
	}
	if err := wash.Validate(); err != nil {
		return pkgerrors.Wrap(err, "wash")
	}
	return nil
}

func intOr(v, def *int) int {
	if v != nil {
		return *v
	}
	return *def
}

func boolOr(v, def *bool) bool {
	if v != nil {
		return *v
	}
	return *def
}

func (f *File) SamplePhase() phase.Config {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return phase.Config{
		UnitSeconds: intOr(f.c.SampleUnitSeconds, defaultFileConfig.SampleUnitSeconds),
		RepeatCount: intOr(f.c.SampleRepeatCount, defaultFileConfig.SampleRepeatCount),
	}
}

func (f *File) WashPhase() phase.Config {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return phase.Config{
		UnitSeconds: intOr(f.c.WashUnitSeconds, defaultFileConfig.WashUnitSeconds),
		RepeatCount: intOr(f.c.WashRepeatCount, defaultFileConfig.WashRepeatCount),
	}
}

func (f *File) PollInterval() time.Duration {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return time.Duration(intOr(f.c.PollIntervalMillis, defaultFileConfig.PollIntervalMillis)) * time.Millisecond
}

func (f *File) Bell() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return boolOr(f.c.Bell, defaultFileConfig.Bell)
}

func (f *File) NotifyCommand() []string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return append([]string(nil), f.c.NotifyCommand...)
}

func (f *File) AllowNonRootAccess() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return boolOr(f.c.AllowNonRootAccess, defaultFileConfig.AllowNonRootAccess)
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	if err := conf.validate(); err != nil {
		return pkgerrors.Wrapf(err, "invalid config in file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	sample, wash := f.SamplePhase(), f.WashPhase()
	return logrus.Fields{
		"sampleUnitSeconds":  sample.UnitSeconds,
		"sampleRepeatCount":  sample.RepeatCount,
		"washUnitSeconds":    wash.UnitSeconds,
		"washRepeatCount":    wash.RepeatCount,
		"pollInterval":       f.PollInterval(),
		"bell":               f.Bell(),
		"notifyCommand":      f.NotifyCommand(),
		"allowNonRootAccess": f.AllowNonRootAccess(),
	}
}
