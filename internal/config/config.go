package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/evanschultz/todoboard/internal/domain"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Board    BoardConfig    `toml:"board"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig controls the rotating logfmt sink used in dev mode.
type DevFileConfig struct {
	Enabled    bool   `toml:"enabled"`
	Dir        string `toml:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

type BoardConfig struct {
	DefaultStatus    string `toml:"default_status"`
	DefaultDueHours  int    `toml:"default_due_hours"`
	MobileBreakpoint int    `toml:"mobile_breakpoint"`
	// CellWidthPx converts terminal columns into viewport width units.
	CellWidthPx int  `toml:"cell_width_px"`
	ShowOverdue bool `toml:"show_overdue"`
}

type ServerConfig struct {
	HTTPBind           string  `toml:"http_bind"`
	APIEndpoint        string  `toml:"api_endpoint"`
	MCPEndpoint        string  `toml:"mcp_endpoint"`
	MutationsPerSecond float64 `toml:"mutations_per_second"`
	MutationBurst      int     `toml:"mutation_burst"`
}

type AuthConfig struct {
	SessionFile string `toml:"session_file"`
}

func Default(dbPath string) Config {
	sessionFile := ""
	if strings.TrimSpace(dbPath) != "" {
		sessionFile = filepath.Join(filepath.Dir(dbPath), "session.toml")
	}
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled:    true,
				Dir:        ".todoboard/log",
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 14,
			},
		},
		Board: BoardConfig{
			DefaultStatus:    string(domain.StatusPending),
			DefaultDueHours:  24,
			MobileBreakpoint: 600,
			CellWidthPx:      8,
			ShowOverdue:      true,
		},
		Server: ServerConfig{
			HTTPBind:           "127.0.0.1:5437",
			APIEndpoint:        "/api/v1",
			MCPEndpoint:        "/mcp",
			MutationsPerSecond: 20,
			MutationBurst:      40,
		},
		Auth: AuthConfig{
			SessionFile: sessionFile,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	if _, err := charmLog.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.MaxSizeMB < 0 || c.Logging.DevFile.MaxBackups < 0 || c.Logging.DevFile.MaxAgeDays < 0 {
		return errors.New("logging.dev_file rotation limits must be >= 0")
	}

	if _, err := domain.ParseStatus(c.Board.DefaultStatus); err != nil {
		return fmt.Errorf("invalid board.default_status: %q", c.Board.DefaultStatus)
	}
	if c.Board.DefaultDueHours <= 0 {
		return errors.New("board.default_due_hours must be > 0")
	}
	if c.Board.MobileBreakpoint <= 0 {
		return errors.New("board.mobile_breakpoint must be > 0")
	}
	if c.Board.CellWidthPx <= 0 {
		return errors.New("board.cell_width_px must be > 0")
	}

	if _, _, err := net.SplitHostPort(strings.TrimSpace(c.Server.HTTPBind)); err != nil {
		return fmt.Errorf("invalid server.http_bind %q: %w", c.Server.HTTPBind, err)
	}
	for name, endpoint := range map[string]string{
		"server.api_endpoint": c.Server.APIEndpoint,
		"server.mcp_endpoint": c.Server.MCPEndpoint,
	} {
		if !strings.HasPrefix(strings.TrimSpace(endpoint), "/") {
			return fmt.Errorf("%s must start with '/': %q", name, endpoint)
		}
	}
	if c.Server.MutationsPerSecond < 0 || c.Server.MutationBurst < 0 {
		return errors.New("server mutation rate limits must be >= 0")
	}

	if strings.TrimSpace(c.Auth.SessionFile) == "" {
		return errors.New("auth.session_file is required")
	}
	return nil
}

// DefaultStatus returns the parsed draft status for new items.
func (c Config) DefaultStatus() domain.Status {
	status, err := domain.ParseStatus(c.Board.DefaultStatus)
	if err != nil {
		return domain.StatusPending
	}
	return status
}

// DefaultDue returns how far ahead new items are due.
func (c Config) DefaultDue() time.Duration {
	return time.Duration(c.Board.DefaultDueHours) * time.Hour
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
