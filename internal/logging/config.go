package logging

import (
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	logs "github.com/danmuck/smplog"
	"github.com/mattn/go-isatty"
)

// Environment overrides for the smplog backend.
const (
	EnvLogLevel     = "L23_LOG_LEVEL"
	EnvLogTimestamp = "L23_LOG_TIMESTAMP"
	EnvLogNoColor   = "L23_LOG_NOCOLOR"
	EnvLogBypass    = "L23_LOG_BYPASS"
)

var backendOnce sync.Once

// ConfigureRuntime sets up the backend for a daemon run: info level with
// timestamps.
func ConfigureRuntime() {
	configureBackend(logs.InfoLevel, true)
}

// ConfigureTests sets up the backend for go test: debug level, no timestamps.
func ConfigureTests() {
	configureBackend(logs.DebugLevel, false)
}

// configureBackend applies the first profile requested in this process;
// later calls are no-ops.
func configureBackend(level logs.Level, timestamp bool) {
	backendOnce.Do(func() {
		cfg := logs.DefaultConfig()
		cfg.Level = level
		cfg.Timestamp = timestamp
		cfg.NoColor = !stderrIsTerminal()
		applyEnv(&cfg, os.Getenv)
		logs.Configure(cfg)
	})
}

func applyEnv(cfg *logs.Config, getenv func(string) string) {
	if lvl, ok := parseLevel(getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := envBool(getenv, EnvLogTimestamp); ok {
		cfg.Timestamp = v
	}
	if v, ok := envBool(getenv, EnvLogNoColor); ok {
		cfg.NoColor = v
	}
	if v, ok := envBool(getenv, EnvLogBypass); ok {
		cfg.Bypass = v
	}
}

func stderrIsTerminal() bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// backendLevels accepts the smplog names plus the osmocom "notice".
var backendLevels = map[string]logs.Level{
	"trace":    logs.TraceLevel,
	"debug":    logs.DebugLevel,
	"info":     logs.InfoLevel,
	"notice":   logs.WarnLevel,
	"warn":     logs.WarnLevel,
	"warning":  logs.WarnLevel,
	"error":    logs.ErrorLevel,
	"off":      logs.Disabled,
	"none":     logs.Disabled,
	"disabled": logs.Disabled,
}

func parseLevel(raw string) (logs.Level, bool) {
	lvl, ok := backendLevels[strings.ToLower(strings.TrimSpace(raw))]
	return lvl, ok
}

func envBool(getenv func(string) string, key string) (bool, bool) {
	v, err := strconv.ParseBool(strings.TrimSpace(getenv(key)))
	if err != nil {
		return false, false
	}
	return v, true
}

// Outputs describes the category targets of one process run.
type Outputs struct {
	// DebugMask is applied to every target; empty keeps category defaults.
	DebugMask string
	// File adds a rotating file target when set.
	File string
	// Writer replaces the stderr target when set.
	Writer io.Writer
}

// Attached is the set of targets routed for one run.
type Attached struct {
	targets []*Target
	detach  []func()
}

// Attach opens and routes the targets o describes. Mask errors are returned
// alongside a usable Attached; the valid part of the mask still applies.
func Attach(o Outputs) (*Attached, error) {
	var primary *Target
	if o.Writer != nil {
		primary = NewWriterTarget("writer", o.Writer)
	} else {
		primary = NewStderrTarget()
	}
	targets := []*Target{primary}
	if o.File != "" {
		targets = append(targets, NewFileTarget(o.File, DefaultFileOptions()))
	}

	a := &Attached{targets: targets}
	var errs []error
	for _, t := range targets {
		t.SetAllFilter(true)
		if o.DebugMask != "" {
			if err := t.ParseCategoryMask(o.DebugMask); err != nil {
				errs = append(errs, err)
			}
		}
		a.detach = append(a.detach, AddTarget(t))
	}
	// every target parses the same mask; report it once
	if len(errs) > 0 {
		return a, errs[0]
	}
	return a, nil
}

func (a *Attached) Targets() []*Target {
	return a.targets
}

// Close detaches every target, newest first, then closes them.
func (a *Attached) Close() error {
	if a == nil {
		return nil
	}
	for i := len(a.detach) - 1; i >= 0; i-- {
		a.detach[i]()
	}
	a.detach = nil
	var errs []error
	for _, t := range a.targets {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.targets = nil
	return errors.Join(errs...)
}
