package guardian

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/absmach/guardian/monitor"
	"github.com/absmach/guardian/pkg/cron"
	"github.com/absmach/guardian/pkg/dispatch"
	"github.com/absmach/guardian/pkg/scheduler"
	"github.com/absmach/guardian/pkg/threshold"
	"github.com/pelletier/go-toml"
)

var (
	ErrInvalidThreshold = errors.New("cpu threshold must be within (0, 100]")
	ErrInvalidInterval  = errors.New("interval must be positive")
)

// Config mirrors the policy file. Unset fields keep their defaults.
type Config struct {
	Monitor   MonitorConfig `toml:"monitor"`
	CPU       CPUConfig     `toml:"cpu"`
	Locks     LocksConfig   `toml:"locks"`
	Actions   ActionsConfig `toml:"actions"`
	Whitelist []string      `toml:"whitelist"`
}

type MonitorConfig struct {
	Engine           string `toml:"engine"`
	Interval         string `toml:"interval"`
	Cron             string `toml:"cron"`
	Timezone         string `toml:"timezone"`
	Watchdog         string `toml:"watchdog"`
	Root             *bool  `toml:"root"`
	MonitorUnmanaged *bool  `toml:"monitor_unmanaged"`
	SystemGate       *bool  `toml:"system_gate"`
	PersistentNotify *bool  `toml:"persistent_notify"`
}

type CPUConfig struct {
	Interactive    *float64 `toml:"interactive"`
	NonInteractive *float64 `toml:"non_interactive"`
}

type LocksConfig struct {
	MaxHold string `toml:"max_hold"`
}

type ActionsConfig struct {
	Interactive    string `toml:"interactive"`
	NonInteractive string `toml:"non_interactive"`
	Lock           string `toml:"lock"`
}

// Settings is the resolved monitor configuration.
type Settings struct {
	Threshold        threshold.Policy
	Dispatch         dispatch.Policy
	Engine           string
	Cron             string
	Timezone         string
	Watchdog         time.Duration
	PersistentNotify bool
	Whitelist        []string
}

func DefaultSettings() Settings {
	return Settings{
		Threshold: threshold.Policy{
			CPU:         threshold.Thresholds{Interactive: 25, NonInteractive: 10},
			LockMaxHold: 5 * time.Minute,
			Interval:    5 * time.Minute,
			SystemGate:  true,
		},
		Dispatch:         dispatch.DefaultPolicy(),
		Engine:           monitor.EnginePersistent,
		Watchdog:         scheduler.DefaultWatchdog,
		PersistentNotify: true,
		Whitelist:        []string{},
	}
}

// LoadConfig reads the policy file at path over the defaults. An empty path
// returns the defaults.
func LoadConfig(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return Settings{}, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return Settings{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.apply(&settings); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

func (cfg Config) apply(s *Settings) error {
	m := cfg.Monitor
	if m.Engine != "" {
		s.Engine = m.Engine
	}
	if err := setDuration(&s.Threshold.Interval, m.Interval, "monitor.interval"); err != nil {
		return err
	}
	if err := setDuration(&s.Watchdog, m.Watchdog, "monitor.watchdog"); err != nil {
		return err
	}
	if err := setDuration(&s.Threshold.LockMaxHold, cfg.Locks.MaxHold, "locks.max_hold"); err != nil {
		return err
	}
	s.Cron = m.Cron
	s.Timezone = m.Timezone
	setBool(&s.Threshold.Root, m.Root)
	setBool(&s.Dispatch.Root, m.Root)
	setBool(&s.Threshold.MonitorUnmanaged, m.MonitorUnmanaged)
	setBool(&s.Threshold.SystemGate, m.SystemGate)
	setBool(&s.PersistentNotify, m.PersistentNotify)

	if cfg.CPU.Interactive != nil {
		s.Threshold.CPU.Interactive = *cfg.CPU.Interactive
	}
	if cfg.CPU.NonInteractive != nil {
		s.Threshold.CPU.NonInteractive = *cfg.CPU.NonInteractive
	}

	if a := cfg.Actions.Interactive; a != "" {
		action, err := dispatch.ParseAction(a)
		if err != nil {
			return err
		}
		s.Dispatch.Threshold.Interactive = action
	}
	if a := cfg.Actions.NonInteractive; a != "" {
		action, err := dispatch.ParseAction(a)
		if err != nil {
			return err
		}
		s.Dispatch.Threshold.NonInteractive = action
	}
	if a := cfg.Actions.Lock; a != "" {
		action, err := dispatch.ParseLockAction(a)
		if err != nil {
			return err
		}
		s.Dispatch.Lock = action
	}

	if cfg.Whitelist != nil {
		s.Whitelist = cfg.Whitelist
	}

	return s.Validate()
}

func (s Settings) Validate() error {
	switch s.Engine {
	case monitor.EnginePersistent, monitor.EngineScheduled:
	default:
		return fmt.Errorf("%w: %q", monitor.ErrInvalidEngine, s.Engine)
	}
	if s.Threshold.Interval <= 0 {
		return ErrInvalidInterval
	}
	for _, v := range []float64{s.Threshold.CPU.Interactive, s.Threshold.CPU.NonInteractive} {
		if v <= 0 || v > 100 {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, v)
		}
	}
	if s.Cron != "" {
		if _, err := cron.Parse(s.Cron, s.Timezone); err != nil {
			return err
		}
	}

	return nil
}

func setDuration(dst *time.Duration, value, key string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("error parsing %s: %w", key, err)
	}
	*dst = d

	return nil
}

func setBool(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}
