// Package httpapi serves the board over JSON REST and a websocket snapshot stream.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	charmLog "github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/evanschultz/todoboard/internal/adapters/server/common"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes int64 = 1 << 20

// Handler serves the REST resources relative to its mount point, usually `/api/v1`.
type Handler struct {
	todos    common.TodoService
	streamer common.TodoStreamer
	limiter  *rate.Limiter
	logger   *charmLog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithMutationLimit caps mutating requests at perSecond with burst; zero disables the cap.
func WithMutationLimit(perSecond float64, burst int) Option {
	return func(h *Handler) {
		if perSecond <= 0 {
			h.limiter = nil
			return
		}
		h.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, burst))
	}
}

// WithStreamer enables the `/stream` websocket feed.
func WithStreamer(streamer common.TodoStreamer) Option {
	return func(h *Handler) {
		h.streamer = streamer
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *charmLog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Failure is the body of every non-2xx JSON response.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// FailureResponse nests one Failure under "error".
type FailureResponse struct {
	Error Failure `json:"error"`
}

// searchRequest is the POST `/search` body.
type searchRequest struct {
	Term string `json:"term"`
}

// NewHandler constructs one HTTP API adapter over the todo service.
func NewHandler(todos common.TodoService, opts ...Option) *Handler {
	h := &Handler{
		todos:  todos,
		logger: charmLog.New(io.Discard),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// routes maps each resource to its handlers by method. Mutating handlers are
// wrapped with the rate limit.
func (h *Handler) routes() map[string]map[string]http.HandlerFunc {
	return map[string]map[string]http.HandlerFunc{
		"todos": {
			http.MethodGet:    h.handleListTodos,
			http.MethodPost:   h.limited(h.handleAddTodo),
			http.MethodPut:    h.limited(h.handleReplaceTodos),
			http.MethodDelete: h.limited(h.handleDeleteTodos),
		},
		"board":    {http.MethodGet: h.handleBoard},
		"search":   {http.MethodPost: h.handleSearch},
		"activity": {http.MethodGet: h.handleActivity},
		"stream":   {http.MethodGet: h.handleStream},
	}
}

// ServeHTTP dispatches on the path below the mount point and the method.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.todos == nil {
		fail(w, http.StatusServiceUnavailable, "service_unavailable", "todo service is not configured")
		return
	}
	byMethod, ok := h.routes()[strings.Trim(strings.TrimSpace(r.URL.Path), "/")]
	if !ok {
		fail(w, http.StatusNotFound, "not_found", "no such resource: "+r.URL.Path)
		return
	}
	handle, ok := byMethod[r.Method]
	if !ok {
		allowed := slices.Sorted(maps.Keys(byMethod))
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		fail(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not supported here")
		return
	}
	handle(w, r)
}

// limited rejects the request with 429 once the mutation budget is spent.
func (h *Handler) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			respond(w, http.StatusTooManyRequests, FailureResponse{Error: Failure{
				Code:    "rate_limited",
				Message: "too many mutations",
				Hint:    "retry after a second",
			}})
			return
		}
		next(w, r)
	}
}

// handleListTodos serves GET `/todos`.
func (h *Handler) handleListTodos(w http.ResponseWriter, r *http.Request) {
	items, err := h.todos.ListTodos(r.Context())
	if err != nil {
		h.failFrom(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"todos": items})
}

// handleAddTodo serves POST `/todos`.
func (h *Handler) handleAddTodo(w http.ResponseWriter, r *http.Request) {
	var req common.AddTodoRequest
	if err := readJSON(w, r, &req); err != nil {
		h.failFrom(w, err)
		return
	}
	item, err := h.todos.AddTodo(r.Context(), req)
	if err != nil {
		h.failFrom(w, err)
		return
	}
	respond(w, http.StatusCreated, item)
}

// handleReplaceTodos serves PUT `/todos`.
func (h *Handler) handleReplaceTodos(w http.ResponseWriter, r *http.Request) {
	var req common.ReplaceTodosRequest
	if err := readJSON(w, r, &req); err != nil {
		h.failFrom(w, err)
		return
	}
	items, err := h.todos.ReplaceTodos(r.Context(), req)
	if err != nil {
		h.failFrom(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"todos": items})
}

// handleDeleteTodos serves DELETE `/todos?what=`.
func (h *Handler) handleDeleteTodos(w http.ResponseWriter, r *http.Request) {
	req := common.DeleteTodosRequest{
		What:  r.URL.Query().Get("what"),
		Actor: strings.TrimSpace(r.URL.Query().Get("actor")),
	}
	res, err := h.todos.DeleteTodos(r.Context(), req)
	if err != nil {
		h.failFrom(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

// handleBoard serves GET `/board?q=`; repeated q values narrow in order.
func (h *Handler) handleBoard(w http.ResponseWriter, r *http.Request) {
	view, err := h.todos.Board(r.Context(), r.URL.Query()["q"])
	if err != nil {
		h.failFrom(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

// handleSearch serves POST `/search`.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := readJSON(w, r, &req); err != nil {
		h.failFrom(w, err)
		return
	}
	if err := h.todos.Search(r.Context(), req.Term); err != nil {
		h.failFrom(w, err)
		return
	}
	respond(w, http.StatusAccepted, map[string]any{
		"term": req.Term,
	})
}

// handleActivity serves GET `/activity?limit=`.
func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			fail(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	events, err := h.todos.ListActivity(r.Context(), limit)
	if err != nil {
		h.failFrom(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"events": events})
}

// errorStatus pairs each adapter sentinel with its HTTP status and code.
var errorStatus = []struct {
	target error
	status int
	code   string
}{
	{common.ErrNotFound, http.StatusNotFound, "not_found"},
	{common.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{common.ErrUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
}

// failFrom reports err using the first matching sentinel, else as a 500.
func (h *Handler) failFrom(w http.ResponseWriter, err error) {
	for _, mapping := range errorStatus {
		if errors.Is(err, mapping.target) {
			fail(w, mapping.status, mapping.code, err.Error())
			return
		}
	}
	h.logger.Error("api request failed", "err", err)
	fail(w, http.StatusInternalServerError, "internal_error", err.Error())
}

func fail(w http.ResponseWriter, status int, code, message string) {
	respond(w, status, FailureResponse{Error: Failure{Code: code, Message: message}})
}

func respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already out; an encode failure can only be dropped.
	_ = json.NewEncoder(w).Encode(payload)
}

// readJSON decodes exactly one JSON value of at most maxBodyBytes into out.
// Unknown fields and trailing values are invalid requests.
func readJSON(w http.ResponseWriter, r *http.Request, out any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	if err := r.Context().Err(); err != nil {
		return fmt.Errorf("request canceled: %w", err)
	}
	return nil
}
