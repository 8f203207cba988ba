// Package events provides a per-session stage event bus. The pipeline
// publishes progress events while it works; websocket clients subscribe so a
// voice UI can show what the tutor is doing during the multi-second avatar
// render.
package events

import (
	"sync"
	"time"
)

// Stage event types published by the pipeline.
const (
	TypeMessageReceived = "message_received"
	TypeReplyGenerated  = "reply_generated"
	TypeAudioReady      = "audio_ready"
	TypeVideoReady      = "video_ready"
	TypeVideoSkipped    = "video_skipped"
)

// Event is one pipeline stage notification.
type Event struct {
	SessionID string    `json:"session_id"`
	Type      string    `json:"type"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// subscriberBuffer bounds each subscriber channel. A slow subscriber drops
// events rather than blocking the pipeline.
const subscriberBuffer = 16

// Bus fans events out to per-session subscribers.
type Bus struct {
	mu   sync.Mutex
	subs map[string]map[int64]chan Event
	next int64
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int64]chan Event)}
}

// Subscribe registers interest in a session's events. The returned cancel
// function removes the subscription and closes the channel; it is safe to
// call more than once.
func (b *Bus) Subscribe(sessionID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[int64]chan Event)
	}
	b.next++
	id := b.next
	b.subs[sessionID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.subs[sessionID]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(b.subs, sessionID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of the session. Full
// subscriber buffers drop the event.
func (b *Bus) Publish(sessionID, eventType, detail string) {
	ev := Event{
		SessionID: sessionID,
		Type:      eventType,
		Detail:    detail,
		Timestamp: time.Now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[sessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
