package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/satlabs/voice-tutor/internal/events"
)

// streamKeepalive bounds how long a stream write may block and paces
// keepalive pings to idle clients.
const (
	streamWriteTimeout = 5 * time.Second
	streamKeepalive    = 30 * time.Second
)

// StreamHandler pushes pipeline stage events to websocket clients so a voice
// UI can show progress while the avatar render is still polling.
type StreamHandler struct {
	bus   *events.Bus
	isDev bool
}

// NewStreamHandler creates a websocket stream handler.
func NewStreamHandler(bus *events.Bus, isDev bool) *StreamHandler {
	return &StreamHandler{bus: bus, isDev: isDev}
}

// RegisterRoutes mounts the stream endpoint.
func (h *StreamHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/tutor/session/{sessionID}/events", h.serveStream)
}

func (h *StreamHandler) serveStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		Error(w, http.StatusBadRequest, "session id is required")
		return
	}

	opts := &websocket.AcceptOptions{}
	if h.isDev {
		opts.OriginPatterns = []string{"*"}
	}

	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("failed to accept websocket", "session_id", sessionID, "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("failed to close websocket", "error", closeErr)
		}
	}()

	ch, cancel := h.bus.Subscribe(sessionID)
	defer cancel()

	slog.Info("event stream opened", "session_id", sessionID)

	ctx := r.Context()
	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if err := ws.Ping(ctx); err != nil {
				slog.Debug("stream keepalive failed", "session_id", sessionID, "error", err)
				return
			}
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(ctx, ws, ev); err != nil {
				slog.Debug("stream write failed", "session_id", sessionID, "error", err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, ws *websocket.Conn, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return ws.Write(wctx, websocket.MessageText, data)
}
