package config

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/taskdepot/td/internal/depgraph"
)

// isolate points every lookup location at empty temp directories.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, EnvPrefix+"_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	return dir
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if want := filepath.Join(dir, "data", "td"); cfg.RepoPath != want {
		t.Errorf("RepoPath = %q, want %q", cfg.RepoPath, want)
	}
	if cfg.ChangeLog.Backend != "journal" {
		t.Errorf("ChangeLog.Backend = %q, want journal", cfg.ChangeLog.Backend)
	}
	if cfg.Path() != "" {
		t.Errorf("Path() = %q, want empty without a config file", cfg.Path())
	}

	rc, ok := cfg.Reports[DefaultReport]
	if !ok {
		t.Fatalf("default report %q missing: %v", DefaultReport, cfg.Reports)
	}
	if rc.Sort != "urgency-" || !slices.Equal(rc.Columns, DefaultColumns) {
		t.Errorf("default report = %+v", rc)
	}

	got := cfg.UrgencyFactors()
	want := depgraph.DefaultUrgencyConfig()
	if got.DueTimePre != want.DueTimePre || got.ScheduledActiveTime != want.ScheduledActiveTime || got.Tags["next"] != want.Tags["next"] {
		t.Errorf("UrgencyFactors() = %+v, want %+v", got, want)
	}
}

func TestLoad_DiscoveredFile(t *testing.T) {
	dir := isolate(t)

	writeConfig(t, filepath.Join(dir, "config", "td", "config.toml"), `
repo_path = "/srv/tasks"

[changelog]
backend = "git"

[urgency.factors]
due_high = 20.0
due_time_pre = 3600

[urgency.factors.tags]
work = 2.5

[reports.work]
filter = "+work and not flag:blocked"
sort = "id+"
`)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.RepoPath != "/srv/tasks" || cfg.ChangeLog.Backend != "git" {
		t.Errorf("RepoPath=%q Backend=%q", cfg.RepoPath, cfg.ChangeLog.Backend)
	}
	if !strings.HasSuffix(cfg.Path(), "config.toml") {
		t.Errorf("Path() = %q", cfg.Path())
	}

	u := cfg.UrgencyFactors()
	if u.DueHigh != 20 || u.DueTimePre != time.Hour {
		t.Errorf("DueHigh=%v DueTimePre=%v, want 20 and 1h", u.DueHigh, u.DueTimePre)
	}
	if u.Dependents != depgraph.DefaultUrgencyConfig().Dependents {
		t.Errorf("unset factor lost its default: Dependents = %v", u.Dependents)
	}
	if u.Tags["work"] != 2.5 {
		t.Errorf("Tags = %v, want work=2.5", u.Tags)
	}

	work, ok := cfg.Reports["work"]
	if !ok {
		t.Fatalf("report work missing: %v", cfg.Reports)
	}
	if work.Filter != "+work and not flag:blocked" || work.Sort != "id+" {
		t.Errorf("work report = %+v", work)
	}
	if !slices.Equal(work.Columns, DefaultColumns) {
		t.Errorf("work columns = %v, want defaults", work.Columns)
	}
	if _, ok := cfg.Reports[DefaultReport]; !ok {
		t.Error("configuring a report dropped the default one")
	}

	if names := cfg.ReportNames(); !slices.Equal(names, []string{"next", "work"}) {
		t.Errorf("ReportNames() = %v", names)
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "td.yaml")
	writeConfig(t, path, "log:\n  file: /tmp/td.log\n  max_backups: 7\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Log.File != "/tmp/td.log" || cfg.Log.MaxBackups != 7 || cfg.Log.MaxSizeMB != 10 {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, filepath.Join(dir, "config", "td", "config.toml"), "repo_path = \"/from/file\"\n")

	t.Setenv("TD_REPO_PATH", "/from/env")
	t.Setenv("TD_CHANGELOG_BACKEND", "git")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.RepoPath != "/from/env" {
		t.Errorf("RepoPath = %q, want the environment value", cfg.RepoPath)
	}
	if cfg.ChangeLog.Backend != "git" {
		t.Errorf("Backend = %q, want git", cfg.ChangeLog.Backend)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := isolate(t)

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("Load() of a missing explicit file succeeded")
	}

	bad := filepath.Join(dir, "bad.toml")
	writeConfig(t, bad, "[reports.x]\nsort = \"urgency\"\n")
	_, err := Load(bad)
	if err == nil || !strings.Contains(err.Error(), "reports.x.sort") {
		t.Errorf("Load() error = %v, want a sort complaint", err)
	}

	negative := filepath.Join(dir, "negative.toml")
	writeConfig(t, negative, "[urgency.factors]\ndue_time_post = -1\n")
	if _, err := Load(negative); err == nil {
		t.Error("Load() accepted a negative time window")
	}
}

func TestWriteTOML(t *testing.T) {
	isolate(t)

	cfg := Default()
	var buf bytes.Buffer
	if err := cfg.WriteTOML(&buf); err != nil {
		t.Fatalf("WriteTOML() failed: %v", err)
	}

	var back Config
	if _, err := toml.Decode(buf.String(), &back); err != nil {
		t.Fatalf("output is not valid TOML: %v\n%s", err, buf.String())
	}
	if back.RepoPath != cfg.RepoPath || back.Urgency.Factors.DueHigh != cfg.Urgency.Factors.DueHigh {
		t.Errorf("decoded %+v from\n%s", back, buf.String())
	}
	if back.Reports[DefaultReport].Sort != "urgency-" {
		t.Errorf("reports lost in dump:\n%s", buf.String())
	}
}
