// Package api provides HTTP handlers for the voice tutor API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/satlabs/voice-tutor/internal/domain"
	"github.com/satlabs/voice-tutor/internal/session"
	"github.com/satlabs/voice-tutor/internal/tutor"
)

// maxRequestBodySize bounds decoded request bodies (1MB).
const maxRequestBodySize = 1 << 20

// TutorService is the pipeline surface the handlers depend on.
type TutorService interface {
	StartSession(userID, subject string) string
	SessionUser(sessionID string) (string, bool)
	ProcessMessage(ctx context.Context, sessionID, message string) (*tutor.Result, error)
	EndSession(sessionID string) bool
	Transcript(ctx context.Context, sessionID string, limit int) ([]*domain.Exchange, error)
}

// TokenService issues RTC channel tokens.
type TokenService interface {
	GenerateToken(channelName string, uid uint32) (string, error)
}

// Handler serves the tutor HTTP API.
type Handler struct {
	svc     TutorService
	tokens  TokenService
	limiter *RateLimiter
}

// NewHandler creates a new Handler.
func NewHandler(svc TutorService, tokens TokenService, limiter *RateLimiter) *Handler {
	return &Handler{svc: svc, tokens: tokens, limiter: limiter}
}

// RegisterRoutes mounts the tutor API under /api/tutor.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/tutor", func(r chi.Router) {
		r.Post("/token", h.handleToken)
		r.Post("/session/start", h.handleStartSession)
		r.Post("/process", h.handleProcess)
		r.Post("/session/end", h.handleEndSession)
		r.Get("/session/{sessionID}/transcript", h.handleTranscript)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

type tokenRequest struct {
	ChannelName string `json:"channelName"`
	UID         uint32 `json:"uid"`
}

type tokenResponse struct {
	Token       string `json:"token"`
	ChannelName string `json:"channelName"`
	UID         uint32 `json:"uid"`
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ChannelName == "" {
		Error(w, http.StatusBadRequest, "Channel name is required")
		return
	}

	token, err := h.tokens.GenerateToken(req.ChannelName, req.UID)
	if err != nil {
		slog.Error("token generation failed", "channel", req.ChannelName, "error", err)
		Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	JSON(w, http.StatusOK, tokenResponse{
		Token:       token,
		ChannelName: req.ChannelName,
		UID:         req.UID,
	})
}

type startSessionRequest struct {
	UserID  string `json:"userId"`
	Subject string `json:"subject"`
}

type startSessionResponse struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		Error(w, http.StatusBadRequest, "userId is required")
		return
	}

	sessionID := h.svc.StartSession(req.UserID, req.Subject)
	JSON(w, http.StatusOK, startSessionResponse{
		SessionID: sessionID,
		Message:   "Session started successfully",
	})
}

type processRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type processResponse struct {
	Response       string  `json:"response"`
	AudioURL       string  `json:"audioUrl"`
	VideoURL       *string `json:"videoUrl"`
	ProcessingTime int64   `json:"processingTime"`
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.Message == "" {
		Error(w, http.StatusBadRequest, "sessionId and message are required")
		return
	}

	// Throttle per user, not per session: session creation is free, so a
	// session-keyed limiter is bypassed by rotating sessions. An unknown
	// session falls through to ProcessMessage's 404.
	if h.limiter != nil {
		if userID, ok := h.svc.SessionUser(req.SessionID); ok && !h.limiter.Allow(userID) {
			Error(w, http.StatusTooManyRequests, "too many requests")
			return
		}
	}

	res, err := h.svc.ProcessMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			Error(w, http.StatusNotFound, "Session not found")
			return
		}
		// Upstream detail stays in the logs; callers only learn which stage
		// failed.
		slog.Error("message processing failed", "session_id", req.SessionID, "error", err)
		Error(w, http.StatusBadGateway, stageMessage(err))
		return
	}

	resp := processResponse{
		Response:       res.Reply,
		AudioURL:       res.AudioURL,
		ProcessingTime: res.Elapsed.Milliseconds(),
	}
	if res.Video.URL != "" {
		resp.VideoURL = &res.Video.URL
	}
	JSON(w, http.StatusOK, resp)
}

// stageMessage names the failed mandatory stage without leaking upstream
// error internals.
func stageMessage(err error) string {
	switch {
	case errors.Is(err, tutor.ErrGeneration):
		return "response generation is unavailable"
	case errors.Is(err, tutor.ErrSynthesis):
		return "speech synthesis is unavailable"
	default:
		return "message processing failed"
	}
}

type endSessionRequest struct {
	SessionID string `json:"sessionId"`
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.svc.EndSession(req.SessionID)
	JSON(w, http.StatusOK, map[string]string{"message": "Session ended successfully"})
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	exchanges, err := h.svc.Transcript(r.Context(), sessionID, limit)
	if err != nil {
		slog.Error("transcript lookup failed", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	if exchanges == nil {
		exchanges = []*domain.Exchange{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"exchanges": exchanges})
}
