package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aodash/config"
	"aodash/recorder"
	"aodash/state"
	"aodash/stats"
	"aodash/ui"

	"gopkg.in/yaml.v3"
)

// runCLI executes the root command in an empty working directory so no
// stray config.json is picked up.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func effectiveConfig(t *testing.T, args ...string) config.Config {
	t.Helper()
	out, err := runCLI(t, append([]string{"config"}, args...)...)
	if err != nil {
		t.Fatalf("config command failed: %v", err)
	}
	var cfg config.Config
	if err := yaml.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("config output is not YAML: %v\n%s", err, out)
	}
	return cfg
}

func TestConfigCommandDefaults(t *testing.T) {
	cfg := effectiveConfig(t)
	if cfg.StateFilePath != config.DefaultStateFilePath {
		t.Fatalf("expected default state path, got %q", cfg.StateFilePath)
	}
	if cfg.UI.Mode != config.ModeAuto || cfg.UI.RefreshMS != 500 {
		t.Fatalf("unexpected ui defaults: %+v", cfg.UI)
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg := effectiveConfig(t, "--state", "/tmp/ao/state.json", "--ui", "headless", "--interval", "750ms", "--self", "Rustbank")
	if cfg.StateFilePath != "/tmp/ao/state.json" {
		t.Fatalf("state flag ignored: %q", cfg.StateFilePath)
	}
	if cfg.UI.Mode != config.ModeHeadless || cfg.UI.RefreshMS != 750 || cfg.UI.SelfName != "Rustbank" {
		t.Fatalf("ui flags ignored: %+v", cfg.UI)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("AODASH_STATE", "/srv/ao/state.json")
	t.Setenv("AODASH_INTERVAL", "1s")
	t.Setenv("AODASH_SELF", "Nanomage")
	cfg := effectiveConfig(t)
	if cfg.StateFilePath != "/srv/ao/state.json" || cfg.UI.RefreshMS != 1000 || cfg.UI.SelfName != "Nanomage" {
		t.Fatalf("environment ignored: state=%q ui=%+v", cfg.StateFilePath, cfg.UI)
	}

	cfg = effectiveConfig(t, "--state", "flag.json")
	if cfg.StateFilePath != "flag.json" {
		t.Fatalf("flag should win over environment, got %q", cfg.StateFilePath)
	}
}

func TestLegacyConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.json")
	if err := os.WriteFile(path, []byte(`{"StateFilePath": "C:/AO/state.json", "ui": {"chat_lines": 20}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := effectiveConfig(t, "--config", path)
	if cfg.StateFilePath != "C:/AO/state.json" {
		t.Fatalf("legacy key not honored: %q", cfg.StateFilePath)
	}
	if cfg.UI.ChatLines != 20 {
		t.Fatalf("expected chat_lines 20, got %d", cfg.UI.ChatLines)
	}
}

func TestMisconfigurationFailsFast(t *testing.T) {
	if _, err := runCLI(t, "config", "--config", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected explicit missing config to fail")
	}
	if _, err := runCLI(t, "config", "--ui", "gtk"); err == nil || !strings.Contains(err.Error(), "ui.mode") {
		t.Fatalf("expected invalid ui mode error, got %v", err)
	}
	if _, err := runCLI(t, "config", "--interval", "10ms"); err == nil {
		t.Fatalf("expected too-short interval to fail")
	}
	if _, err := runCLI(t, "stray-arg"); err == nil {
		t.Fatalf("expected unknown argument to fail")
	}
}

func TestSnapshotCommand(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")

	if _, err := runCLI(t, "snapshot", "--state", statePath); err == nil || !strings.Contains(err.Error(), ": absent:") {
		t.Fatalf("expected absent snapshot error, got %v", err)
	}

	body := `{"zone":"Omni-1 Trade","xp":123456,"credits":2500,"chat_history":["Rustbank: hi"]}`
	if err := os.WriteFile(statePath, []byte(body), 0o644); err != nil {
		t.Fatalf("write state: %v", err)
	}
	out, err := runCLI(t, "snapshot", "--state", statePath, "--self", "Rustbank")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for _, want := range []string{"Omni-1 Trade", "123,456", "2,500", "Rustbank: hi"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "aodash dev\n" {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestSelectSurfaceWithoutTerminal(t *testing.T) {
	for _, mode := range []string{config.ModeAuto, config.ModeTview, config.ModeHeadless} {
		surface := selectSurface(config.UIConfig{Mode: mode}, false)
		h, ok := surface.(*ui.Headless)
		if !ok {
			t.Fatalf("mode %s without a terminal: expected headless surface, got %T", mode, surface)
		}
		h.Stop()
	}
}

func TestStatsLinesForHeadless(t *testing.T) {
	surface := ui.NewHeadless(func(string, ...any) {})
	defer surface.Stop()
	tracker := stats.NewTracker()
	tracker.ObserveRead(state.OutcomeFileAbsent, time.Now())
	lines := statsLines(tracker, surface, nil)
	if len(lines) == 0 || !strings.Contains(lines[0], "absent=1") {
		t.Fatalf("unexpected stats lines %v", lines)
	}
	for _, line := range lines {
		if strings.HasPrefix(line, "Recorder:") {
			t.Fatalf("recorder line without a recorder: %q", line)
		}
	}
}

func TestStatsLinesIncludeRecorder(t *testing.T) {
	rec, err := recorder.Open(context.Background(), filepath.Join(t.TempDir(), "sessions.db"), recorder.Options{
		QueueSize: 1,
		Logf:      func(string, ...any) {},
	})
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	defer rec.Close()
	rec.Offer(recorder.Sample{Zone: "Omni-1", XP: 1})
	rec.Offer(recorder.Sample{Zone: "Omni-1", XP: 2})

	surface := ui.NewHeadless(func(string, ...any) {})
	defer surface.Stop()
	lines := statsLines(stats.NewTracker(), surface, rec)
	want := "Recorder: session=" + rec.SessionID() + " written=0 dropped=1"
	if lines[len(lines)-1] != want {
		t.Fatalf("expected %q, got %v", want, lines)
	}
}
