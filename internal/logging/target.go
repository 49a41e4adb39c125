package logging

import (
	"fmt"
	"io"
	"sync"
	"time"

	logs "github.com/danmuck/smplog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// sink receives one already filtered record.
type sink interface {
	emit(level Level, cat Category, msg string)
}

// Target is one log destination with its own category filter.
type Target struct {
	name string
	out  sink

	mu      sync.RWMutex
	all     bool
	filters map[Category]categoryFilter
	closer  io.Closer
}

func newTarget(name string, out sink, closer io.Closer) *Target {
	return &Target{
		name:    name,
		out:     out,
		filters: defaultFilters(),
		closer:  closer,
	}
}

// NewStderrTarget routes records through the smplog backend.
func NewStderrTarget() *Target {
	return newTarget("stderr", smplogSink{}, nil)
}

// FileOptions tunes rotation of a file target.
type FileOptions struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func DefaultFileOptions() FileOptions {
	return FileOptions{MaxSizeMB: 16, MaxBackups: 4, MaxAgeDays: 14}
}

// NewFileTarget writes timestamped lines to a rotating file.
func NewFileTarget(path string, opts FileOptions) *Target {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	return newTarget("file:"+path, &writerSink{w: lj}, lj)
}

// NewWriterTarget writes timestamped lines to w.
func NewWriterTarget(name string, w io.Writer) *Target {
	return newTarget(name, &writerSink{w: w}, nil)
}

func (t *Target) Name() string {
	return t.name
}

// SetAllFilter opens or closes the target for every record.
func (t *Target) SetAllFilter(on bool) {
	t.mu.Lock()
	t.all = on
	t.mu.Unlock()
}

// ParseCategoryMask replaces the category filter from a debug mask.
func (t *Target) ParseCategoryMask(mask string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return parseCategoryMask(t.filters, mask)
}

// Enabled reports whether a record would be written.
func (t *Target) Enabled(cat Category, level Level) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.all {
		return false
	}
	f, ok := t.filters[cat]
	if !ok {
		return level >= LevelNotice
	}
	return f.enabled && level >= f.level
}

func (t *Target) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

type smplogSink struct{}

func (smplogSink) emit(level Level, cat Category, msg string) {
	switch {
	case level <= LevelDebug:
		logs.Debugf("%s %s", cat, msg)
	case level <= LevelInfo:
		logs.Infof("%s %s", cat, msg)
	case level <= LevelNotice:
		logs.Warnf("%s %s", cat, msg)
	default:
		logs.Errf("%s %s", cat, msg)
	}
}

type writerSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *writerSink) emit(level Level, cat Category, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.w, "%s %s <%s> %s\n", time.Now().UTC().Format(time.RFC3339), cat, level, msg)
}

var (
	targetsMu sync.RWMutex
	targets   []*Target
)

// AddTarget attaches t to the process-wide router; the returned func detaches it.
func AddTarget(t *Target) func() {
	targetsMu.Lock()
	targets = append(targets, t)
	targetsMu.Unlock()
	return func() {
		targetsMu.Lock()
		defer targetsMu.Unlock()
		for i, cur := range targets {
			if cur == t {
				targets = append(targets[:i], targets[i+1:]...)
				return
			}
		}
	}
}

// Logp writes one category record to every attached target that accepts it.
func Logp(cat Category, level Level, format string, args ...any) {
	targetsMu.RLock()
	defer targetsMu.RUnlock()
	var msg string
	for _, t := range targets {
		if !t.Enabled(cat, level) {
			continue
		}
		if msg == "" {
			msg = fmt.Sprintf(format, args...)
		}
		t.out.emit(level, cat, msg)
	}
}

func Debugf(cat Category, format string, args ...any) {
	Logp(cat, LevelDebug, format, args...)
}

func Infof(cat Category, format string, args ...any) {
	Logp(cat, LevelInfo, format, args...)
}

func Noticef(cat Category, format string, args ...any) {
	Logp(cat, LevelNotice, format, args...)
}

func Errf(cat Category, format string, args ...any) {
	Logp(cat, LevelError, format, args...)
}
