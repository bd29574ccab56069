// Package mcpapi exposes the board as MCP tools over stateless streamable HTTP.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/evanschultz/todoboard/internal/adapters/server/common"
)

// defaultToolActor is recorded for mutating tool calls that name no actor.
const defaultToolActor = "mcp"

// Config names the MCP server and the path it answers on.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// withDefaults fills blank fields and canonicalizes EndpointPath.
func (c Config) withDefaults() Config {
	if c.ServerName = strings.TrimSpace(c.ServerName); c.ServerName == "" {
		c.ServerName = "todoboard"
	}
	if c.ServerVersion = strings.TrimSpace(c.ServerVersion); c.ServerVersion == "" {
		c.ServerVersion = "dev"
	}
	if trimmed := strings.Trim(strings.TrimSpace(c.EndpointPath), "/"); trimmed != "" {
		c.EndpointPath = "/" + trimmed
	} else {
		c.EndpointPath = "/mcp"
	}
	return c
}

// Handler is an http.Handler speaking MCP streamable HTTP without sessions.
type Handler struct {
	transport http.Handler
}

// NewHandler registers every board tool on a fresh MCP server.
func NewHandler(cfg Config, todos common.TodoService) (*Handler, error) {
	if todos == nil {
		return nil, errors.New("mcp handler needs a todo service")
	}
	cfg = cfg.withDefaults()

	srv := mcpserver.NewMCPServer(cfg.ServerName, cfg.ServerVersion, mcpserver.WithToolCapabilities(false))
	srv.AddTools(boardTools(todos)...)
	return &Handler{
		transport: mcpserver.NewStreamableHTTPServer(srv,
			mcpserver.WithEndpointPath(cfg.EndpointPath),
			mcpserver.WithStateLess(true),
		),
	}, nil
}

// ServeHTTP forwards to the streamable transport.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.transport == nil {
		http.Error(w, "mcp transport not configured", http.StatusServiceUnavailable)
		return
	}
	h.transport.ServeHTTP(w, r)
}

// boardTools lists the read tools followed by the mutating ones.
func boardTools(todos common.TodoService) []mcpserver.ServerTool {
	actorOption := mcp.WithString("actor", mcp.Description("Actor recorded in the activity ledger"))
	return []mcpserver.ServerTool{
		{
			Tool: mcp.NewTool("todoboard.list_todos",
				mcp.WithDescription("List every item in board order."),
			),
			Handler: func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				items, err := todos.ListTodos(ctx)
				return reply("list_todos", map[string]any{"todos": items}, err)
			},
		},
		{
			Tool: mcp.NewTool("todoboard.board",
				mcp.WithDescription("Return the board split into pending, in-progress, and done columns. Each search term narrows the previous result."),
				mcp.WithArray("terms", mcp.WithStringItems(), mcp.Description("Search terms applied in order")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				view, err := todos.Board(ctx, req.GetStringSlice("terms", nil))
				return reply("board", view, err)
			},
		},
		{
			Tool: mcp.NewTool("todoboard.activity",
				mcp.WithDescription("List recent changes, newest first."),
				mcp.WithNumber("limit", mcp.Description("Maximum rows (default 50)")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				events, err := todos.ListActivity(ctx, req.GetInt("limit", 0))
				return reply("activity", map[string]any{"events": events}, err)
			},
		},
		{
			Tool: mcp.NewTool("todoboard.add_todo",
				mcp.WithDescription("Append one item to the board."),
				mcp.WithString("what", mcp.Required(), mcp.Description("Item description")),
				mcp.WithString("status", mcp.Description("pending, inProgress, or done"), mcp.Enum("pending", "inProgress", "done")),
				mcp.WithString("finish_by", mcp.Description("Due date, RFC3339 or YYYY-MM-DD")),
				actorOption,
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				what, err := req.RequireString("what")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				item, err := todos.AddTodo(ctx, common.AddTodoRequest{
					TodoInput: common.TodoInput{
						What:     what,
						Status:   req.GetString("status", ""),
						FinishBy: req.GetString("finish_by", ""),
					},
					Actor: req.GetString("actor", defaultToolActor),
				})
				return reply("add_todo", item, err)
			},
		},
		{
			Tool: mcp.NewTool("todoboard.delete_todo",
				mcp.WithDescription("Delete every item whose description exactly matches what."),
				mcp.WithString("what", mcp.Required(), mcp.Description("Exact item description")),
				actorOption,
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				what, err := req.RequireString("what")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				res, err := todos.DeleteTodos(ctx, common.DeleteTodosRequest{
					What:  what,
					Actor: req.GetString("actor", defaultToolActor),
				})
				return reply("delete_todo", res, err)
			},
		},
		{
			Tool: mcp.NewTool("todoboard.search",
				mcp.WithDescription("Broadcast a search term to every attached board. An empty term clears the search."),
				mcp.WithString("term", mcp.Description("Search term")),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				term := req.GetString("term", "")
				return reply("search", map[string]any{"term": term}, todos.Search(ctx, term))
			},
		},
	}
}

// reply turns a service outcome into a tool result. Service errors become
// tool-level errors prefixed with their category; only encoding failures
// surface as protocol errors.
func reply(tool string, payload any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(errorCategory(err) + ": " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

func errorCategory(err error) string {
	switch {
	case errors.Is(err, common.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, common.ErrNotFound):
		return "not_found"
	case errors.Is(err, common.ErrUnavailable):
		return "service_unavailable"
	default:
		return "internal_error"
	}
}
