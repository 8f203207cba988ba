package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/satlabs/voice-tutor/internal/config"
)

func TestSynthesizeReturnsDataURL(t *testing.T) {
	t.Parallel()

	audio := []byte("fake-mp3-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if key := r.Header.Get("xi-api-key"); key != "k" {
			t.Errorf("unexpected api key header %q", key)
		}

		var req synthesisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Text != "hello student" {
			t.Errorf("unexpected text %q", req.Text)
		}
		if req.ModelID != "eleven_monolingual_v1" {
			t.Errorf("unexpected model id %q", req.ModelID)
		}
		if req.VoiceSettings.Stability != 0.5 || req.VoiceSettings.SimilarityBoost != 0.5 {
			t.Errorf("unexpected voice settings %+v", req.VoiceSettings)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)
	}))
	defer srv.Close()

	c := NewClient(config.TTSConfig{
		APIKey:  "k",
		VoiceID: "voice-1",
		ModelID: "eleven_monolingual_v1",
		BaseURL: srv.URL,
	})

	speech, err := c.Synthesize(context.Background(), "hello student")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	const prefix = "data:audio/mpeg;base64,"
	if !strings.HasPrefix(speech.URL, prefix) {
		t.Fatalf("expected data URL, got %q", speech.URL)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(speech.URL, prefix))
	if err != nil {
		t.Fatalf("decode audio payload: %v", err)
	}
	if string(decoded) != string(audio) {
		t.Errorf("audio payload mismatch: %q", decoded)
	}
}

func TestSynthesizeRemoteError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(config.TTSConfig{VoiceID: "v", BaseURL: srv.URL})
	_, err := c.Synthesize(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected synthesis failure")
	}

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("unexpected status code %d", statusErr.StatusCode)
	}
}
