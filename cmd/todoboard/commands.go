package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/evanschultz/todoboard/internal/adapters/auth"
	"github.com/evanschultz/todoboard/internal/adapters/server"
	"github.com/evanschultz/todoboard/internal/adapters/server/common"
	"github.com/evanschultz/todoboard/internal/app"
	"github.com/evanschultz/todoboard/internal/tui"
)

// runBoard opens the interactive board.
func runBoard(cmd *cobra.Command, opts *rootOptions) error {
	env, err := loadRuntime(cmd, opts, "tui")
	if err != nil {
		return err
	}
	defer env.Close()

	return env.step(func() error {
		svc, err := env.openService()
		if err != nil {
			return err
		}
		lib := env.logger.Library()
		m := tui.NewModel(
			svc,
			tui.WithContext(env.actorContext(cmd.Context())),
			tui.WithAuthSource(auth.NewWatcher(env.session, auth.WithWatcherLogger(lib))),
			tui.WithLogger(lib),
			tui.WithBoardConfig(tui.BoardConfig{
				DefaultStatus:    env.cfg.DefaultStatus(),
				DefaultDue:       env.cfg.DefaultDue(),
				MobileBreakpoint: env.cfg.Board.MobileBreakpoint,
				CellWidthPx:      env.cfg.Board.CellWidthPx,
				ShowOverdue:      env.cfg.Board.ShowOverdue,
			}),
		)
		defer m.Close()

		env.logger.Info("starting tui program loop")
		if _, err := programFactory(m).Run(); err != nil {
			return fmt.Errorf("run tui program: %w", err)
		}
		return nil
	})
}

func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the config, data, database and session paths commands will use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadRuntime(cmd, opts, "paths")
			if err != nil {
				return err
			}
			defer env.Close()
			out := cmd.OutOrStdout()
			writef(out, "app: %s\n", env.appName)
			writef(out, "dev_mode: %t\n", env.devMode)
			writef(out, "config: %s\n", env.configPath)
			writef(out, "data_dir: %s\n", env.paths.DataDir)
			writef(out, "db: %s\n", env.cfg.Database.Path)
			writef(out, "session: %s\n", env.session.Path())
			return nil
		},
	}
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		httpBind    string
		apiEndpoint string
		mcpEndpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over REST, websocket and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadRuntime(cmd, opts, "serve")
			if err != nil {
				return err
			}
			defer env.Close()

			return env.step(func() error {
				svc, err := env.openService()
				if err != nil {
					return err
				}
				cfg := server.Config{
					HTTPBind:           firstNonEmpty(httpBind, env.cfg.Server.HTTPBind),
					APIEndpoint:        firstNonEmpty(apiEndpoint, env.cfg.Server.APIEndpoint),
					MCPEndpoint:        firstNonEmpty(mcpEndpoint, env.cfg.Server.MCPEndpoint),
					ServerName:         env.appName,
					ServerVersion:      version,
					MutationsPerSecond: env.cfg.Server.MutationsPerSecond,
					MutationBurst:      env.cfg.Server.MutationBurst,
				}
				adapter := common.NewAppServiceAdapter(svc, time.Now)

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				env.logger.Info("serve starting", "http", cfg.HTTPBind, "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint)
				return server.Run(ctx, cfg, server.Dependencies{
					Todos:    adapter,
					Streamer: adapter,
					Logger:   env.logger.Library(),
				})
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "listen address (overrides server.http_bind)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "REST base path (overrides server.api_endpoint)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP path (overrides server.mcp_endpoint)")
	return cmd
}

func newListCommand(opts *rootOptions) *cobra.Command {
	var (
		terms  []string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the board, optionally narrowed by search terms",
		Long: `Print the board columns. Each --search term narrows the result of the
previous one, the same way repeated searches narrow the interactive board.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadRuntime(cmd, opts, "list")
			if err != nil {
				return err
			}
			defer env.Close()

			return env.step(func() error {
				svc, err := env.openService()
				if err != nil {
					return err
				}
				view, err := common.NewAppServiceAdapter(svc, time.Now).Board(cmd.Context(), terms)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), view)
				}
				writeBoard(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&terms, "search", "s", nil, "narrow by description substring (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newAddCommand(opts *rootOptions) *cobra.Command {
	var (
		status string
		due    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "add <what>",
		Short: "Append a to-do item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadRuntime(cmd, opts, "add")
			if err != nil {
				return err
			}
			defer env.Close()

			return env.step(func() error {
				svc, err := env.openService()
				if err != nil {
					return err
				}
				if strings.TrimSpace(due) == "" {
					due = time.Now().UTC().Add(env.cfg.DefaultDue()).Format(time.RFC3339)
				}
				item, err := common.NewAppServiceAdapter(svc, time.Now).AddTodo(
					env.actorContext(cmd.Context()),
					common.AddTodoRequest{TodoInput: common.TodoInput{
						What:     args[0],
						Status:   status,
						FinishBy: due,
					}},
				)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), item)
				}
				writef(cmd.OutOrStdout(), "added %q (%s%s)\n", item.What, item.Status, dueSuffix(item))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "pending, inProgress or done (defaults to board.default_status)")
	cmd.Flags().StringVar(&due, "due", "", "finish-by time, RFC3339 or YYYY-MM-DD (defaults to now + board.default_due_hours)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <what>",
		Short: "Remove every item whose description matches exactly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadRuntime(cmd, opts, "delete")
			if err != nil {
				return err
			}
			defer env.Close()

			return env.step(func() error {
				svc, err := env.openService()
				if err != nil {
					return err
				}
				res, err := common.NewAppServiceAdapter(svc, time.Now).DeleteTodos(
					env.actorContext(cmd.Context()),
					common.DeleteTodosRequest{What: args[0]},
				)
				if err != nil {
					return err
				}
				writef(cmd.OutOrStdout(), "deleted %d item(s) matching %q\n", res.Deleted, res.What)
				return nil
			})
		},
	}
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored list as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadRuntime(cmd, opts, "export")
			if err != nil {
				return err
			}
			defer env.Close()

			return env.step(func() error {
				svc, err := env.openService()
				if err != nil {
					return err
				}
				return runExport(cmd, svc, outPath)
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the stored list with a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			env, err := loadRuntime(cmd, opts, "import")
			if err != nil {
				return err
			}
			defer env.Close()

			return env.step(func() error {
				svc, err := env.openService()
				if err != nil {
					return err
				}
				return runImport(cmd, svc, env, inPath)
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file")
	return cmd
}

// runExport encodes the snapshot to stdout or a file.
func runExport(cmd *cobra.Command, svc *app.Service, outPath string) error {
	snap, err := svc.ExportSnapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot json: %w", err)
	}
	encoded = append(encoded, '\n')

	if outPath == "-" {
		if _, err := cmd.OutOrStdout().Write(encoded); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// runImport decodes one snapshot file and replaces the stored list with it.
func runImport(cmd *cobra.Command, svc *app.Service, env *runtimeEnv, inPath string) error {
	content, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return fmt.Errorf("decode snapshot json: %w", err)
	}
	if err := svc.ImportSnapshot(env.actorContext(cmd.Context()), snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	writef(cmd.OutOrStdout(), "imported %d item(s)\n", len(snap.Todos))
	return nil
}

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var (
		id       string
		name     string
		email    string
		provider string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Record the signed-in identity shown in the board header",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(name) == "" && strings.TrimSpace(email) == "" {
				return errors.New("--name or --email is required")
			}
			env, err := loadRuntime(cmd, opts, "login")
			if err != nil {
				return err
			}
			defer env.Close()

			return env.step(func() error {
				if strings.TrimSpace(id) == "" {
					id = uuid.NewString()
				}
				user, err := env.session.SignIn(id, firstNonEmpty(name, email), email, provider)
				if err != nil {
					return err
				}
				writef(cmd.OutOrStdout(), "signed in as %s\n", user.DisplayName())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "stable user id (generated when empty)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&provider, "provider", "local", "identity provider label")
	return cmd
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the signed-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadRuntime(cmd, opts, "logout")
			if err != nil {
				return err
			}
			defer env.Close()

			return env.step(func() error {
				if err := env.session.SignOut(); err != nil {
					return err
				}
				writef(cmd.OutOrStdout(), "signed out\n")
				return nil
			})
		},
	}
}

func newWhoamiCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadRuntime(cmd, opts, "whoami")
			if err != nil {
				return err
			}
			defer env.Close()

			return env.step(func() error {
				user, err := env.session.RequireCurrent()
				if errors.Is(err, auth.ErrNotSignedIn) {
					writef(cmd.OutOrStdout(), "signed out\n")
					return nil
				}
				if err != nil {
					return err
				}
				writef(cmd.OutOrStdout(), "%s (%s)\n", user.DisplayName(), user.Provider)
				return nil
			})
		},
	}
}

// writeBoard prints the columns in display order.
func writeBoard(w io.Writer, view common.BoardView) {
	if len(view.Search) > 0 {
		writef(w, "search: %s\n", strings.Join(view.Search, " → "))
	}
	columns := []struct {
		title string
		items []common.TodoItem
	}{
		{"Pending", view.Pending},
		{"In Progress", view.InProgress},
		{"Done", view.Done},
	}
	for _, col := range columns {
		writef(w, "%s (%d)\n", col.title, len(col.items))
		if len(col.items) == 0 {
			writef(w, "  (empty)\n")
			continue
		}
		for _, item := range col.items {
			writef(w, "  - %s%s\n", item.What, dueSuffix(item))
		}
	}
}

// dueSuffix renders the due time and overdue flag of one item.
func dueSuffix(item common.TodoItem) string {
	if item.FinishBy == nil {
		return ""
	}
	suffix := ", due " + item.FinishBy.Format("2006-01-02 15:04")
	if item.Overdue {
		suffix += ", overdue"
	}
	return suffix
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
