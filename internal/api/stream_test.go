package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/satlabs/voice-tutor/internal/events"
)

func dialStream(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := strings.Replace(srv.URL, "http://", "ws://", 1) + "/api/tutor/session/" + sessionID + "/events"
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close(websocket.StatusNormalClosure, "test done") })
	return ws
}

func TestStreamDeliversPipelineEvents(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()
	r := chi.NewRouter()
	NewStreamHandler(bus, true).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ws := dialStream(t, srv, "sess-1")

	// The subscription races the dial; retry until the subscriber is wired.
	deadline := time.Now().Add(2 * time.Second)
	var got events.Event
	for {
		bus.Publish("sess-1", events.TypeReplyGenerated, "")

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		_, data, err := ws.Read(ctx)
		cancel()
		if err == nil {
			if jsonErr := json.Unmarshal(data, &got); jsonErr != nil {
				t.Fatalf("decode stream event: %v", jsonErr)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no event received before deadline: %v", err)
		}
	}

	if got.SessionID != "sess-1" || got.Type != events.TypeReplyGenerated {
		t.Errorf("unexpected event %+v", got)
	}
}

func TestStreamIgnoresOtherSessions(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()
	r := chi.NewRouter()
	NewStreamHandler(bus, true).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ws := dialStream(t, srv, "sess-1")

	// Give the handler a moment to subscribe, then publish to a different
	// session only.
	time.Sleep(100 * time.Millisecond)
	bus.Publish("sess-2", events.TypeAudioReady, "")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, _, err := ws.Read(ctx); err == nil {
		t.Fatal("received an event for a session we did not subscribe to")
	}
}
