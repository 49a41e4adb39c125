package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	logs "github.com/danmuck/smplog"
)

func TestTargetClosedUntilAllFilter(t *testing.T) {
	target := NewWriterTarget("buf", &bytes.Buffer{})
	if target.Enabled(DL1C, LevelError) {
		t.Fatalf("expected target closed before SetAllFilter")
	}
	target.SetAllFilter(true)
	if !target.Enabled(DL1C, LevelError) {
		t.Fatalf("expected error record enabled")
	}
	if target.Enabled(DL1C, LevelDebug) {
		t.Fatalf("expected debug below default DL1C level")
	}
}

func TestParseCategoryMaskDisablesUnnamed(t *testing.T) {
	target := NewWriterTarget("buf", &bytes.Buffer{})
	target.SetAllFilter(true)
	if err := target.ParseCategoryMask("DL1C,1:dlapdm"); err != nil {
		t.Fatalf("parse mask: %v", err)
	}
	if !target.Enabled(DL1C, LevelDebug) {
		t.Fatalf("expected DL1C debug enabled by explicit level")
	}
	if !target.Enabled(DLAPDM, LevelNotice) {
		t.Fatalf("expected DLAPDM enabled with default level")
	}
	if target.Enabled(DLAPDM, LevelDebug) {
		t.Fatalf("expected DLAPDM debug filtered by default level")
	}
	if target.Enabled(DSAP, LevelFatal) {
		t.Fatalf("expected DSAP disabled by mask")
	}
}

func TestParseCategoryMaskUnknownCategory(t *testing.T) {
	target := NewWriterTarget("buf", &bytes.Buffer{})
	target.SetAllFilter(true)
	err := target.ParseCategoryMask("DL1C:DNOPE")
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if !target.Enabled(DL1C, LevelInfo) {
		t.Fatalf("expected known category applied despite unknown one")
	}
}

func TestParseCategoryMaskBadLevelKeepsRestOfMask(t *testing.T) {
	target := NewWriterTarget("buf", &bytes.Buffer{})
	target.SetAllFilter(true)
	err := target.ParseCategoryMask("DRR:DL1C,x:DLAPDM")
	if !errors.Is(err, ErrInvalidLevel) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
	if !target.Enabled(DRR, LevelInfo) {
		t.Fatalf("expected DRR before the bad token enabled")
	}
	if !target.Enabled(DLAPDM, LevelNotice) {
		t.Fatalf("expected DLAPDM after the bad token enabled")
	}
	if !target.Enabled(DL1C, LevelError) {
		t.Fatalf("expected DL1C enabled at its default level")
	}
	if target.Enabled(DSAP, LevelError) {
		t.Fatalf("expected unnamed DSAP disabled")
	}
}

func TestAttachWriterReplacesStderrAndAddsFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "l23.log")
	attached, err := Attach(Outputs{DebugMask: "DSUM,1", File: path, Writer: &buf})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if n := len(attached.Targets()); n != 2 {
		t.Fatalf("expected writer and file targets, got %d", n)
	}
	for _, target := range attached.Targets() {
		if target.Name() == "stderr" {
			t.Fatalf("stderr target attached alongside a writer")
		}
	}

	Debugf(DSUM, "tick=%d", 1)
	Infof(DSAP, "masked out")
	if err := attached.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	Infof(DSUM, "after close")

	out := buf.String()
	if !strings.Contains(out, "DSUM <DEBUG> tick=1") || strings.Contains(out, "masked out") || strings.Contains(out, "after close") {
		t.Fatalf("unexpected writer output: %q", out)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), "tick=1") {
		t.Fatalf("file target missed record: %q", raw)
	}
}

func TestAttachReportsMaskErrorButRoutes(t *testing.T) {
	var buf bytes.Buffer
	attached, err := Attach(Outputs{DebugMask: "DSUM:DNOPE", Writer: &buf})
	defer attached.Close()
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	Infof(DSUM, "still routed")
	if !strings.Contains(buf.String(), "still routed") {
		t.Fatalf("expected DSUM routed despite mask error: %q", buf.String())
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		EnvLogLevel:     "notice",
		EnvLogTimestamp: "false",
		EnvLogNoColor:   "1",
		EnvLogBypass:    "bogus",
	}
	cfg := logs.DefaultConfig()
	cfg.Timestamp = true
	cfg.Bypass = false
	applyEnv(&cfg, func(key string) string { return env[key] })
	if cfg.Level != logs.WarnLevel || cfg.Timestamp || !cfg.NoColor || cfg.Bypass {
		t.Fatalf("unexpected config after env: %+v", cfg)
	}
}

func TestLogpRoutesToAttachedTargets(t *testing.T) {
	var buf bytes.Buffer
	target := NewWriterTarget("buf", &buf)
	target.SetAllFilter(true)
	if err := target.ParseCategoryMask("DSAP,1"); err != nil {
		t.Fatalf("parse mask: %v", err)
	}
	detach := AddTarget(target)

	Debugf(DSAP, "connect path=%s", "/tmp/sap")
	Errf(DL1C, "dropped")
	detach()
	Infof(DSAP, "after detach")

	out := buf.String()
	if !strings.Contains(out, "DSAP <DEBUG> connect path=/tmp/sap") {
		t.Fatalf("missing DSAP record: %q", out)
	}
	if strings.Contains(out, "dropped") {
		t.Fatalf("DL1C record should be filtered: %q", out)
	}
	if strings.Contains(out, "after detach") {
		t.Fatalf("record written after detach: %q", out)
	}
}

func TestParseLevelAliases(t *testing.T) {
	cases := []string{"debug", "WARN", " notice ", "off"}
	for _, raw := range cases {
		if _, ok := parseLevel(raw); !ok {
			t.Fatalf("expected %q to parse", raw)
		}
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("expected unknown level rejected")
	}
}
