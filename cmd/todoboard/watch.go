package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evanschultz/todoboard/internal/adapters/auth"
	"github.com/evanschultz/todoboard/internal/adapters/server/common"
	"github.com/evanschultz/todoboard/internal/board"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	var (
		count  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the board every time it changes",
		Long: `Attach a headless board to the store and print its state after every
snapshot, search term and sign-in change. Searches published from another
board or from the API narrow this one too. Stops on interrupt, or after
--count states.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadRuntime(cmd, opts, "watch")
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
				b := board.New(svc, nil, nil,
					board.WithLogger(lib),
					board.WithDefaultDue(env.cfg.DefaultDue()),
					board.WithDefaultStatus(env.cfg.DefaultStatus()),
				)

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				ctx, cancel := context.WithCancel(ctx)
				defer cancel()

				adapter := common.NewAppServiceAdapter(svc, time.Now)
				out := cmd.OutOrStdout()
				printed := 0
				env.logger.Info("watch starting", "count", count)
				return b.Run(ctx, board.Sources{
					Todos:  svc,
					Search: svc,
					Auth:   auth.NewWatcher(env.session, auth.WithWatcherLogger(lib)),
				}, func(state board.State) {
					if count > 0 && printed >= count {
						return
					}
					printed++
					if err := writeWatchFrame(out, state, adapter.View(state, nil), asJSON); err != nil {
						env.logger.Warn("watch frame write failed", "err", err)
					}
					if count > 0 && printed >= count {
						cancel()
					}
				})
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "exit after printing this many states (0 runs until interrupted)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print each state as one JSON line")
	return cmd
}

// watchFrame is the JSON shape of one printed board state.
type watchFrame struct {
	User string `json:"user,omitempty"`
	common.BoardView
}

func writeWatchFrame(w io.Writer, state board.State, view common.BoardView, asJSON bool) error {
	user := ""
	if state.LoggedIn && state.User != nil {
		user = state.User.DisplayName()
	}
	if asJSON {
		return json.NewEncoder(w).Encode(watchFrame{User: user, BoardView: view})
	}
	if user == "" {
		user = "signed out"
	}
	writef(w, "== %s, %d item(s)\n", user, state.Len())
	writeBoard(w, view)
	return nil
}
