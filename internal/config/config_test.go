package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/todoboard/internal/domain"
)

// writeConfig writes content to a config.toml in a fresh temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default("/tmp/todoboard/todoboard.db")
	if cfg.Database.Path != "/tmp/todoboard/todoboard.db" {
		t.Fatalf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Auth.SessionFile != filepath.Join("/tmp/todoboard", "session.toml") {
		t.Fatalf("unexpected session file %q", cfg.Auth.SessionFile)
	}
	if cfg.Board.MobileBreakpoint != 600 || cfg.Board.DefaultDueHours != 24 {
		t.Fatalf("unexpected board defaults %#v", cfg.Board)
	}
	if cfg.DefaultStatus() != domain.StatusPending || cfg.DefaultDue() != 24*time.Hour {
		t.Fatalf("unexpected derived defaults %q %v", cfg.DefaultStatus(), cfg.DefaultDue())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults failed validation: %v", err)
	}
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	defaults := Default("/tmp/todoboard.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"), defaults)
	if err != nil {
		t.Fatalf("Load(absent) error = %v", err)
	}
	if cfg != defaults {
		t.Fatalf("Load(absent) = %#v, want defaults", cfg)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[database]
path = "/custom/todoboard.db"

[logging]
level = "debug"

[logging.dev_file]
max_size_mb = 2

[board]
default_status = "progress"
default_due_hours = 48
cell_width_px = 10
show_overdue = false

[server]
http_bind = "0.0.0.0:9000"
mutations_per_second = 0
`)

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load(%s) error = %v", path, err)
	}
	if cfg.Database.Path != "/custom/todoboard.db" {
		t.Fatalf("Database.Path = %q, want file value", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.DevFile.MaxSizeMB != 2 || cfg.Logging.DevFile.MaxBackups != 3 {
		t.Fatalf("unexpected logging config %#v", cfg.Logging)
	}
	if cfg.DefaultStatus() != domain.StatusInProgress || cfg.DefaultDue() != 48*time.Hour {
		t.Fatalf("unexpected board overrides %#v", cfg.Board)
	}
	if cfg.Board.ShowOverdue || cfg.Board.CellWidthPx != 10 || cfg.Board.MobileBreakpoint != 600 {
		t.Fatalf("unexpected board config %#v", cfg.Board)
	}
	if cfg.Server.HTTPBind != "0.0.0.0:9000" || cfg.Server.MutationsPerSecond != 0 || cfg.Server.APIEndpoint != "/api/v1" {
		t.Fatalf("unexpected server config %#v", cfg.Server)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"level":    "[logging]\nlevel = \"loud\"\n",
		"status":   "[board]\ndefault_status = \"archived\"\n",
		"due":      "[board]\ndefault_due_hours = 0\n",
		"bind":     "[server]\nhttp_bind = \"nope\"\n",
		"endpoint": "[server]\napi_endpoint = \"api\"\n",
		"rate":     "[server]\nmutations_per_second = -1\n",
		"session":  "[auth]\nsession_file = \" \"\n",
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content), Default("/tmp/default.db")); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "[board\n"), Default("/tmp/default.db"))
	if err == nil || !strings.Contains(err.Error(), "decode toml") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestEnsureConfigDirCreatesParents(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b", "config.toml")
	if err := EnsureConfigDir(nested); err != nil {
		t.Fatalf("EnsureConfigDir(%s) error = %v", nested, err)
	}
	if info, err := os.Stat(filepath.Dir(nested)); err != nil || !info.IsDir() {
		t.Fatalf("parent dir missing after EnsureConfigDir: %v", err)
	}
}
