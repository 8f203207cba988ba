// Package avatar provides the D-ID talking-avatar client: a single-shot
// submission request followed by a bounded wait-then-query polling loop that
// observes the asynchronous render to completion.
package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/satlabs/voice-tutor/internal/config"
)

// Terminal poll outcomes.
var (
	// ErrRenderFailed reports a conclusive remote rendering failure. It does
	// not count toward attempts; no further polling follows.
	ErrRenderFailed = errors.New("avatar rendering failed")

	// ErrTimeout reports that the polling budget was exhausted without the
	// job reaching a terminal status.
	ErrTimeout = errors.New("avatar rendering timed out")
)

// Job statuses reported by the remote service. Anything else is treated as
// still in progress.
const (
	statusDone  = "done"
	statusError = "error"
)

// submitRequest is the talk creation payload. Exactly one of the two script
// modes is populated per call.
type submitRequest struct {
	Script    script     `json:"script"`
	Config    talkConfig `json:"config"`
	SourceURL string     `json:"source_url"`
}

type script struct {
	Type     string    `json:"type"`
	Input    string    `json:"input,omitempty"`
	AudioURL string    `json:"audio_url,omitempty"`
	Provider *provider `json:"provider,omitempty"`
}

type provider struct {
	Type    string `json:"type"`
	VoiceID string `json:"voice_id"`
}

type talkConfig struct {
	Fluent   bool `json:"fluent"`
	PadAudio int  `json:"pad_audio"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	Status    string `json:"status"`
	ResultURL string `json:"result_url"`
	Error     struct {
		Description string `json:"description"`
	} `json:"error"`
}

// Client renders talking-head videos via the D-ID talks API.
type Client struct {
	baseURL      string
	apiKey       string
	sourceURL    string
	ttsProvider  string
	voiceID      string
	maxAttempts  int
	pollInterval time.Duration
	httpClient   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a D-ID client from configuration.
func NewClient(cfg config.AvatarConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		sourceURL:    cfg.SourceURL,
		ttsProvider:  cfg.TTSProvider,
		voiceID:      cfg.VoiceID,
		maxAttempts:  cfg.PollAttempts,
		pollInterval: cfg.PollInterval,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit issues exactly one talk creation request and returns the remote job
// id. When audioURL is set the script references the audio; otherwise the
// raw text plus the configured voice is sent. Never both.
func (c *Client) Submit(ctx context.Context, audioURL, text string) (string, error) {
	payload := submitRequest{
		Config:    talkConfig{Fluent: true, PadAudio: 0},
		SourceURL: c.sourceURL,
	}
	if audioURL != "" {
		payload.Script = script{Type: "audio", AudioURL: audioURL}
	} else {
		payload.Script = script{
			Type:  "text",
			Input: text,
			Provider: &provider{
				Type:    c.ttsProvider,
				VoiceID: c.voiceID,
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("avatar: marshal submit request: %w", err)
	}

	url := c.baseURL + "/talks"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("avatar: create submit request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("avatar: submission failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("avatar: submission failed with status %d: %s", res.StatusCode, string(buf))
	}

	var out submitResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("avatar: decode submit response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("avatar: submit response carried no job id")
	}
	return out.ID, nil
}

// Poll waits one interval, queries the job status, and repeats up to the
// configured attempt budget. There is no zero-delay first check; the remote
// job cannot be ready immediately after submission.
//
// A "done" status returns the result URL at once. An "error" status is
// conclusive and fails with ErrRenderFailed carrying the remote reason. A
// non-2xx status query fails immediately rather than being silently retried.
// Exhausting the budget fails with ErrTimeout naming the attempt count.
func (c *Client) Poll(ctx context.Context, jobID string) (string, error) {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}

		status, err := c.queryStatus(ctx, jobID)
		if err != nil {
			return "", err
		}

		switch status.Status {
		case statusDone:
			return status.ResultURL, nil
		case statusError:
			reason := status.Error.Description
			if reason == "" {
				reason = "unknown reason"
			}
			return "", fmt.Errorf("%w: %s", ErrRenderFailed, reason)
		default:
			slog.Debug("avatar job still processing", "job_id", jobID, "status", status.Status, "attempt", attempt)
		}

		timer.Reset(c.pollInterval)
	}

	return "", fmt.Errorf("%w after %d attempts", ErrTimeout, c.maxAttempts)
}

func (c *Client) queryStatus(ctx context.Context, jobID string) (*statusResponse, error) {
	url := c.baseURL + "/talks/" + jobID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("avatar: create status request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("avatar: status query failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("avatar: status query failed with status %d: %s", res.StatusCode, string(buf))
	}

	var out statusResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("avatar: decode status response: %w", err)
	}
	return &out, nil
}

// GenerateVideo composes Submit and Poll as one unit of work and returns the
// rendered video URL.
func (c *Client) GenerateVideo(ctx context.Context, audioURL, text string) (string, error) {
	jobID, err := c.Submit(ctx, audioURL, text)
	if err != nil {
		return "", err
	}

	slog.Info("avatar render submitted", "job_id", jobID)
	return c.Poll(ctx, jobID)
}
