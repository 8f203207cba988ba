package domain

import "time"

// Speech is the result of synthesizing a reply into audio. URL is an opaque
// addressable locator (a data: URL until a CDN upload step exists) usable by
// both the client and the avatar renderer.
type Speech struct {
	URL          string
	DurationHint time.Duration
}

// Exchange is one archived request/response round trip, recorded after a
// pipeline run for diagnostics. It is never read back to restore session
// state.
type Exchange struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	Subject      string    `json:"subject"`
	UserMessage  string    `json:"user_message"`
	Reply        string    `json:"reply"`
	AudioURL     string    `json:"audio_url,omitempty"`
	VideoURL     string    `json:"video_url,omitempty"`
	ProcessingMs int64     `json:"processing_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
