// Package server mounts the REST and MCP surfaces on one listener for `todoboard serve`.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode"

	charmLog "github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/evanschultz/todoboard/internal/adapters/server/common"
	"github.com/evanschultz/todoboard/internal/adapters/server/httpapi"
	"github.com/evanschultz/todoboard/internal/adapters/server/mcpapi"
)

// defaultBindAddress keeps serve on loopback unless told otherwise.
const defaultBindAddress = "127.0.0.1:5437"

// defaultShutdownTimeout caps how long in-flight requests get after ctx ends.
const defaultShutdownTimeout = 5 * time.Second

// Config selects the listen address, route prefixes, and mutation rate for serve.
type Config struct {
	HTTPBind           string
	APIEndpoint        string
	MCPEndpoint        string
	ServerName         string
	ServerVersion      string
	MutationsPerSecond float64
	MutationBurst      int
}

// Dependencies carries the board adapters shared by both transports.
type Dependencies struct {
	Todos    common.TodoService
	Streamer common.TodoStreamer
	Logger   *charmLog.Logger
}

// NewHandler builds the root mux: probes, the REST surface under APIEndpoint, and MCP.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	resolved, err := cfg.withDefaults()
	if err != nil {
		return nil, Config{}, err
	}
	if deps.Todos == nil {
		return nil, Config{}, errors.New("server needs a todo service")
	}

	mcpHandler, err := mcpapi.NewHandler(mcpapi.Config{
		ServerName:    resolved.ServerName,
		ServerVersion: resolved.ServerVersion,
		EndpointPath:  resolved.MCPEndpoint,
	}, deps.Todos)
	if err != nil {
		return nil, Config{}, fmt.Errorf("configure mcp handler: %w", err)
	}
	rest := http.StripPrefix(resolved.APIEndpoint, httpapi.NewHandler(
		deps.Todos,
		httpapi.WithStreamer(deps.Streamer),
		httpapi.WithMutationLimit(resolved.MutationsPerSecond, resolved.MutationBurst),
		httpapi.WithLogger(deps.Logger),
	))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeProbe(w, http.StatusOK, probeBody{Status: "ok"})
	})
	mux.Handle("GET /readyz", readiness(deps.Todos))
	mux.Handle(resolved.MCPEndpoint, mcpHandler)
	mux.Handle(resolved.APIEndpoint, rest)
	mux.Handle(resolved.APIEndpoint+"/", rest)
	return mux, resolved, nil
}

// Run starts the composed HTTP server and blocks until shutdown or startup failure.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := deps.Logger
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}

	handler, normalizedCfg, err := NewHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}
	listener, err := net.Listen("tcp", normalizedCfg.HTTPBind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", normalizedCfg.HTTPBind, err)
	}
	return Serve(ctx, listener, handler, logger)
}

// Serve serves handler on listener until ctx ends, then shuts down gracefully.
func Serve(ctx context.Context, listener net.Listener, handler http.Handler, logger *charmLog.Logger) error {
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("serving", "addr", listener.Addr().String())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("shutdown server: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})
	return group.Wait()
}

// withDefaults fills blank fields and rejects configs the mux cannot route.
func (c Config) withDefaults() (Config, error) {
	if c.HTTPBind = strings.TrimSpace(c.HTTPBind); c.HTTPBind == "" {
		c.HTTPBind = defaultBindAddress
	}
	c.APIEndpoint = normalizeEndpoint(c.APIEndpoint, "/api/v1")
	c.MCPEndpoint = normalizeEndpoint(c.MCPEndpoint, "/mcp")
	for _, endpoint := range []string{c.APIEndpoint, c.MCPEndpoint} {
		if strings.ContainsFunc(endpoint, unicode.IsSpace) {
			return Config{}, fmt.Errorf("endpoint %q contains whitespace", endpoint)
		}
	}
	if c.APIEndpoint == c.MCPEndpoint {
		return Config{}, fmt.Errorf("api endpoint %q collides with mcp endpoint", c.APIEndpoint)
	}
	if c.ServerName = strings.TrimSpace(c.ServerName); c.ServerName == "" {
		c.ServerName = "todoboard"
	}
	if c.ServerVersion = strings.TrimSpace(c.ServerVersion); c.ServerVersion == "" {
		c.ServerVersion = "dev"
	}
	if c.MutationsPerSecond < 0 {
		return Config{}, fmt.Errorf("mutation rate %v is negative", c.MutationsPerSecond)
	}
	return c, nil
}

// normalizeEndpoint reduces path to a single leading slash with no trailing one.
// Blank and root paths resolve to fallback.
func normalizeEndpoint(path, fallback string) string {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return fallback
	}
	return "/" + trimmed
}

// probeBody is the JSON payload of the health and readiness probes.
type probeBody struct {
	Status string `json:"status"`
	Todos  *int   `json:"todos,omitempty"`
	Error  string `json:"error,omitempty"`
}

// readiness reports ready once the todo service can list the board.
func readiness(todos common.TodoService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items, err := todos.ListTodos(r.Context())
		if err != nil {
			writeProbe(w, http.StatusServiceUnavailable, probeBody{Status: "unavailable", Error: err.Error()})
			return
		}
		count := len(items)
		writeProbe(w, http.StatusOK, probeBody{Status: "ok", Todos: &count})
	})
}

func writeProbe(w http.ResponseWriter, status int, body probeBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
