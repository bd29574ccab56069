package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	charmLog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/evanschultz/todoboard/internal/config"
)

// workspaceMarkers identify the directory dev logs are anchored to.
var workspaceMarkers = []string{"go.mod", ".git"}

// runtimeLogger fans CLI events out to the console and, in dev mode, a rotating logfmt file.
type runtimeLogger struct {
	console   *charmLog.Logger
	file      *charmLog.Logger
	consoleOn *atomic.Bool
	rotator   *lumberjack.Logger
}

// gatedWriter discards writes while its switch is off.
type gatedWriter struct {
	out io.Writer
	on  *atomic.Bool
}

func (g gatedWriter) Write(p []byte) (int, error) {
	if !g.on.Load() {
		return len(p), nil
	}
	return g.out.Write(p)
}

// newRuntimeLogger builds the console sink and, when dev mode enables it, the file sink.
func newRuntimeLogger(stderr io.Writer, appName string, devMode bool, cfg config.LoggingConfig, now func() time.Time) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if now == nil {
		now = time.Now
	}

	on := &atomic.Bool{}
	on.Store(true)
	l := &runtimeLogger{
		consoleOn: on,
		console:   newSinkLogger(gatedWriter{out: stderr, on: on}, appName, level, charmLog.TextFormatter),
	}
	if !devMode || !cfg.DevFile.Enabled {
		return l, nil
	}

	path, err := devLogFilePath(cfg.DevFile.Dir, appName, now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolve dev log file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	l.rotator = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.DevFile.MaxSizeMB,
		MaxBackups: cfg.DevFile.MaxBackups,
		MaxAge:     cfg.DevFile.MaxAgeDays,
		Compress:   cfg.DevFile.Compress,
	}
	l.file = newSinkLogger(l.rotator, appName, level, charmLog.LogfmtFormatter)
	return l, nil
}

func newSinkLogger(w io.Writer, prefix string, level charmLog.Level, formatter charmLog.Formatter) *charmLog.Logger {
	return charmLog.NewWithOptions(w, charmLog.Options{
		Level:           level,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	})
}

// Library is the logger handed to internal packages: the dev file when
// present, otherwise the console.
func (l *runtimeLogger) Library() *charmLog.Logger {
	switch {
	case l == nil:
		return charmLog.New(io.Discard)
	case l.file != nil:
		return l.file
	default:
		return l.console
	}
}

// DevLogPath returns the active dev log file, or "" outside dev mode.
func (l *runtimeLogger) DevLogPath() string {
	if l == nil || l.rotator == nil {
		return ""
	}
	return l.rotator.Filename
}

// SetConsoleEnabled mutes or unmutes the console sink.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	if l != nil {
		l.consoleOn.Store(enabled)
	}
}

func (l *runtimeLogger) consoleEnabled() bool {
	return l != nil && l.consoleOn.Load()
}

// Close flushes and closes the dev log file.
func (l *runtimeLogger) Close() error {
	if l == nil || l.rotator == nil {
		return nil
	}
	return l.rotator.Close()
}

func (l *runtimeLogger) Debug(msg string, keyvals ...any) { l.emit(charmLog.DebugLevel, msg, keyvals) }
func (l *runtimeLogger) Info(msg string, keyvals ...any)  { l.emit(charmLog.InfoLevel, msg, keyvals) }
func (l *runtimeLogger) Warn(msg string, keyvals ...any)  { l.emit(charmLog.WarnLevel, msg, keyvals) }
func (l *runtimeLogger) Error(msg string, keyvals ...any) { l.emit(charmLog.ErrorLevel, msg, keyvals) }

// emit writes one event to every sink.
func (l *runtimeLogger) emit(level charmLog.Level, msg string, keyvals []any) {
	if l == nil {
		return
	}
	l.console.Log(level, msg, keyvals...)
	if l.file != nil {
		l.file.Log(level, msg, keyvals...)
	}
}

// devLogFilePath names today's dev log under dir; relative dirs hang off the workspace root.
func devLogFilePath(dir, appName string, day time.Time) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = ".todoboard/log"
	}
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
		dir = filepath.Join(workspaceRootFrom(cwd), dir)
	}
	name := sanitizeLogFileStem(appName) + "-" + day.Format("20060102") + ".log"
	return filepath.Join(filepath.Clean(dir), name), nil
}

// workspaceRootFrom walks up from start to the nearest directory holding a
// workspace marker, falling back to start itself.
func workspaceRootFrom(start string) string {
	start = filepath.Clean(strings.TrimSpace(start))
	for dir := start; ; {
		for _, marker := range workspaceMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// sanitizeLogFileStem turns an app name into a file-name-safe stem.
func sanitizeLogFileStem(appName string) string {
	stem := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '-'
		}
		return r
	}, strings.TrimSpace(appName))
	if stem = strings.Trim(stem, "-"); stem == "" {
		return "todoboard"
	}
	return stem
}
