package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

// program is the slice of tea.Program the CLI drives.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests swap it for a fake.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run builds the command tree and executes args against it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(newRootOptions())
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(strings.NewReader(""))
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// rootOptions collects persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// newRootOptions seeds flag defaults from the environment.
func newRootOptions() *rootOptions {
	opts := &rootOptions{
		appName: "todoboard",
		devMode: version == "dev",
	}
	if envDev, ok := parseBoolEnv("TODOBOARD_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("TODOBOARD_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}
	return opts
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "todoboard",
		Short: "A three-column to-do board for the terminal",
		Long: `todoboard shows your to-do list as Pending, In Progress and Done columns.
Run it without a subcommand to open the board, or use the subcommands to
script the same list from a shell, serve it over HTTP and MCP, or move it
between machines with export and import.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBoard(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts),
		newServeCommand(opts),
		newListCommand(opts),
		newWatchCommand(opts),
		newAddCommand(opts),
		newDeleteCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newWhoamiCommand(opts),
	)
	return root
}

// parseBoolEnv reads a boolean env var, reporting false when unset or malformed.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// writef writes formatted CLI output, ignoring short writes like fmt.Printf does.
func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
