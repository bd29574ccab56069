package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/evanschultz/todoboard/internal/adapters/server/common"
)

const (
	// streamWriteTimeout bounds one websocket frame write.
	streamWriteTimeout = 5 * time.Second
	// streamPingInterval keeps idle stream connections alive.
	streamPingInterval = 30 * time.Second
)

// streamFrame is one websocket message on `/stream`.
type streamFrame struct {
	Type  string            `json:"type"`
	Todos []common.TodoItem `json:"todos"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// handleStream serves GET `/stream`: one snapshot frame now and one after every mutation.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	if h.streamer == nil {
		fail(w, http.StatusNotImplemented, "not_implemented", "snapshot stream is not available")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("stream upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snapshots, err := h.streamer.SubscribeTodos(ctx)
	if err != nil {
		h.logger.Error("stream subscribe failed", "err", err)
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"))
		return
	}

	// The read loop only watches for the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(streamWriteTimeout))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return
			}
		case items, ok := <-snapshots:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(streamFrame{Type: "snapshot", Todos: items}); err != nil {
				h.logger.Debug("stream write failed", "err", err)
				return
			}
		}
	}
}
