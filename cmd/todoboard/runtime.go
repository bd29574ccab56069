package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/evanschultz/todoboard/internal/adapters/auth"
	"github.com/evanschultz/todoboard/internal/adapters/storage/sqlite"
	"github.com/evanschultz/todoboard/internal/app"
	"github.com/evanschultz/todoboard/internal/config"
	"github.com/evanschultz/todoboard/internal/platform"
)

// runtimeEnv is the resolved state one command runs against.
type runtimeEnv struct {
	command    string
	appName    string
	devMode    bool
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
	session    *auth.SessionStore
	repo       *sqlite.Repository
	svc        *app.Service
	stderr     io.Writer
}

// loadRuntime resolves paths, config, logging and the session store for one command.
func loadRuntime(cmd *cobra.Command, opts *rootOptions, command string) (*runtimeEnv, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return nil, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("TODOBOARD_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("TODOBOARD_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	stderr := cmd.ErrOrStderr()
	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// The board owns the terminal; runtime logs stay in the dev-file sink.
		logger.SetConsoleEnabled(false)
	}

	session, err := auth.NewSessionStore(cfg.Auth.SessionFile, time.Now)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}

	env := &runtimeEnv{
		command:    command,
		appName:    opts.appName,
		devMode:    opts.devMode,
		paths:      paths,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
		session:    session,
		stderr:     stderr,
	}
	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	logger.Info("configuration loaded", "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}
	return env, nil
}

// openService opens the sqlite store and builds the application service on top of it.
func (e *runtimeEnv) openService() (*app.Service, error) {
	if e.svc != nil {
		return e.svc, nil
	}
	e.logger.Info("opening sqlite repository", "db_path", e.cfg.Database.Path)
	repo, err := sqlite.Open(e.cfg.Database.Path)
	if err != nil {
		e.logger.Error("sqlite open failed", "db_path", e.cfg.Database.Path, "err", err)
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	e.logger.Info("sqlite repository ready", "db_path", e.cfg.Database.Path, "migrations", "ensured")

	e.repo = repo
	e.svc = app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		DefaultStatus: e.cfg.DefaultStatus(),
		Logger:        e.logger.Library(),
	})
	e.logger.Debug("application service initialized", "default_status", e.cfg.DefaultStatus())
	return e.svc, nil
}

// actorContext attributes mutations in ctx to the signed-in user, if any.
func (e *runtimeEnv) actorContext(ctx context.Context) context.Context {
	user, err := e.session.Current()
	if err != nil {
		e.logger.Warn("session read failed", "path", e.session.Path(), "err", err)
		return ctx
	}
	if user == nil {
		return ctx
	}
	return app.WithActor(ctx, app.Actor{ID: user.ID})
}

// Close releases the store and log sinks.
func (e *runtimeEnv) Close() {
	if e == nil {
		return
	}
	if e.repo != nil {
		if err := e.repo.Close(); err != nil {
			e.logger.Warn("sqlite close failed", "db_path", e.cfg.Database.Path, "err", err)
		}
	}
	if err := e.logger.Close(); err != nil && e.logger.consoleEnabled() {
		writef(e.stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// step wraps one command flow with start/complete/failed log events.
func (e *runtimeEnv) step(fn func() error) error {
	e.logger.Info("command flow start", "command", e.command)
	if err := fn(); err != nil {
		e.logger.Error("command flow failed", "command", e.command, "err", err)
		return fmt.Errorf("run %s command: %w", e.command, err)
	}
	e.logger.Info("command flow complete", "command", e.command)
	return nil
}
