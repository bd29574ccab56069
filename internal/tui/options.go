package tui

import (
	"context"
	"time"

	charmLog "github.com/charmbracelet/log"

	"github.com/evanschultz/todoboard/internal/board"
	"github.com/evanschultz/todoboard/internal/domain"
)

// BoardConfig carries the board settings the model needs from config.
type BoardConfig struct {
	DefaultStatus    domain.Status
	DefaultDue       time.Duration
	MobileBreakpoint int
	CellWidthPx      int
	ShowOverdue      bool
}

type Option func(*Model)

func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		DefaultStatus:    domain.StatusPending,
		DefaultDue:       24 * time.Hour,
		MobileBreakpoint: board.MobileBreakpoint,
		CellWidthPx:      8,
		ShowOverdue:      true,
	}
}

func WithBoardConfig(cfg BoardConfig) Option {
	return func(m *Model) {
		if cfg.CellWidthPx <= 0 {
			cfg.CellWidthPx = DefaultBoardConfig().CellWidthPx
		}
		m.boardCfg = cfg
	}
}

// WithContext bounds every subscription and pending dialog to ctx.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.parent = ctx
		}
	}
}

// WithAuthSource streams the signed-in identity into the header.
func WithAuthSource(src board.AuthSource) Option {
	return func(m *Model) {
		m.auth = src
	}
}

func WithLogger(logger *charmLog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(m *Model) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithClipboard overrides how descriptions are copied.
func WithClipboard(copyText func(string) error) Option {
	return func(m *Model) {
		if copyText != nil {
			m.copyText = copyText
		}
	}
}
