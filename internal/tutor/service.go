// Package tutor orchestrates one user turn: look up the session, generate a
// reply, synthesize speech, and best-effort render an avatar video.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/satlabs/voice-tutor/internal/domain"
	"github.com/satlabs/voice-tutor/internal/events"
	"github.com/satlabs/voice-tutor/internal/prompt"
	"github.com/satlabs/voice-tutor/internal/session"
	"github.com/satlabs/voice-tutor/internal/store"
)

// Mandatory-stage failure markers. Handlers use these to name the failed
// stage without exposing upstream error internals.
var (
	ErrGeneration = errors.New("generation unavailable")
	ErrSynthesis  = errors.New("speech synthesis unavailable")
)

// Generator produces one assistant reply from the system instruction, the
// prior history and the new user message.
type Generator interface {
	GenerateReply(ctx context.Context, system, userMessage string, history []domain.Turn) (string, error)
}

// Synthesizer turns reply text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*domain.Speech, error)
}

// VideoGenerator renders a talking-head video keyed on an audio locator or
// raw text.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, audioURL, text string) (string, error)
}

// VideoOutcome is the explicit result of the optional avatar stage. A failed
// render leaves URL empty and retains Err for diagnostics; it is never
// surfaced to the caller as an error.
type VideoOutcome struct {
	URL string
	Err error
}

// Degraded reports whether the avatar stage failed.
func (v VideoOutcome) Degraded() bool { return v.Err != nil }

// Result is one complete tutor turn.
type Result struct {
	Reply        string
	AudioURL     string
	DurationHint time.Duration
	Video        VideoOutcome
	Elapsed      time.Duration
}

// Service runs the message pipeline.
type Service struct {
	sessions *session.Store
	gen      Generator
	speech   Synthesizer
	video    VideoGenerator
	bus      *events.Bus
	archive  store.Repository
	now      func() time.Time

	tracer    trace.Tracer
	processed metric.Int64Counter
	degraded  metric.Int64Counter
}

// NewService creates the pipeline service. bus and archive may be nil; stage
// events and transcript archiving are then skipped.
func NewService(sessions *session.Store, gen Generator, speech Synthesizer, video VideoGenerator, bus *events.Bus, archive store.Repository) *Service {
	meter := otel.Meter("tutor")
	processed, err := meter.Int64Counter("tutor.messages_processed")
	if err != nil {
		slog.Warn("failed to create processed counter", "error", err)
	}
	degraded, err := meter.Int64Counter("tutor.video_degraded")
	if err != nil {
		slog.Warn("failed to create degraded counter", "error", err)
	}

	return &Service{
		sessions:  sessions,
		gen:       gen,
		speech:    speech,
		video:     video,
		bus:       bus,
		archive:   archive,
		now:       time.Now,
		tracer:    otel.Tracer("tutor"),
		processed: processed,
		degraded:  degraded,
	}
}

// StartSession allocates a new conversation for the user and returns its id.
func (s *Service) StartSession(userID, subject string) string {
	return s.sessions.Create(userID, subject)
}

// SessionUser reports the owning user of a live session without refreshing
// its activity.
func (s *Service) SessionUser(sessionID string) (string, bool) {
	return s.sessions.UserID(sessionID)
}

// EndSession discards the session and reports whether it existed.
func (s *Service) EndSession(sessionID string) bool {
	return s.sessions.End(sessionID)
}

// Transcript returns archived exchanges for a session.
func (s *Service) Transcript(ctx context.Context, sessionID string, limit int) ([]*domain.Exchange, error) {
	if s.archive == nil {
		return nil, nil
	}
	return s.archive.ListExchanges(ctx, sessionID, limit)
}

// ProcessMessage produces a complete tutor turn for one inbound message.
//
// Generation and speech are mandatory: their failure aborts the turn. Avatar
// rendering is a best-effort enhancement: its failure degrades the result to
// audio-only and is logged, never returned.
func (s *Service) ProcessMessage(ctx context.Context, sessionID, message string) (*Result, error) {
	start := s.now()

	ctx, span := s.tracer.Start(ctx, "tutor.process_message",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, session.ErrNotFound
	}

	log := slog.With("session_id", sessionID, "user_id", sess.UserID, "subject", sess.Subject)
	log.Info("processing message")
	s.publish(sessionID, events.TypeMessageReceived, "")

	// Snapshot history before appending the user turn: the provider receives
	// the prior turns plus the new message exactly once.
	history := sess.History

	if err := s.sessions.Append(sessionID, domain.RoleUser, message); err != nil {
		return nil, err
	}

	reply, err := s.generate(ctx, sess.Subject, message, history)
	if err != nil {
		log.Error("generation failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	s.publish(sessionID, events.TypeReplyGenerated, "")

	if err := s.sessions.Append(sessionID, domain.RoleAssistant, reply); err != nil {
		return nil, err
	}

	speech, err := s.synthesize(ctx, reply)
	if err != nil {
		log.Error("speech synthesis failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	s.publish(sessionID, events.TypeAudioReady, "")

	video := s.renderVideo(ctx, sessionID, speech.URL, reply, log)

	elapsed := s.now().Sub(start)
	log.Info("message processed", "elapsed", elapsed, "video_degraded", video.Degraded())

	if s.processed != nil {
		s.processed.Add(ctx, 1)
	}

	result := &Result{
		Reply:        reply,
		AudioURL:     speech.URL,
		DurationHint: speech.DurationHint,
		Video:        video,
		Elapsed:      elapsed,
	}
	s.archiveExchange(ctx, &sess, message, result)
	return result, nil
}

func (s *Service) generate(ctx context.Context, subject, message string, history []domain.Turn) (string, error) {
	ctx, span := s.tracer.Start(ctx, "tutor.generate")
	defer span.End()
	return s.gen.GenerateReply(ctx, prompt.ForSubject(subject), message, history)
}

func (s *Service) synthesize(ctx context.Context, reply string) (*domain.Speech, error) {
	ctx, span := s.tracer.Start(ctx, "tutor.synthesize")
	defer span.End()
	return s.speech.Synthesize(ctx, reply)
}

// renderVideo runs the optional avatar stage. Failures are converted into a
// degraded outcome instead of propagating.
func (s *Service) renderVideo(ctx context.Context, sessionID, audioURL, reply string, log *slog.Logger) VideoOutcome {
	if s.video == nil {
		return VideoOutcome{}
	}

	ctx, span := s.tracer.Start(ctx, "tutor.render_video")
	defer span.End()

	url, err := s.video.GenerateVideo(ctx, audioURL, reply)
	if err != nil {
		log.Warn("avatar generation failed, continuing with audio only", "error", err)
		s.publish(sessionID, events.TypeVideoSkipped, err.Error())
		if s.degraded != nil {
			s.degraded.Add(ctx, 1)
		}
		return VideoOutcome{Err: err}
	}

	s.publish(sessionID, events.TypeVideoReady, url)
	return VideoOutcome{URL: url}
}

func (s *Service) publish(sessionID, eventType, detail string) {
	if s.bus != nil {
		s.bus.Publish(sessionID, eventType, detail)
	}
}

// archiveExchange writes the completed turn to the transcript archive.
// Best-effort: archive failures are logged and never fail the turn.
func (s *Service) archiveExchange(ctx context.Context, sess *domain.Session, message string, res *Result) {
	if s.archive == nil {
		return
	}

	// Inline data URLs carry the whole MP3; don't copy them into the archive.
	audioURL := res.AudioURL
	if strings.HasPrefix(audioURL, "data:") {
		audioURL = ""
	}

	ex := &domain.Exchange{
		SessionID:    sess.ID,
		UserID:       sess.UserID,
		Subject:      sess.Subject,
		UserMessage:  message,
		Reply:        res.Reply,
		AudioURL:     audioURL,
		VideoURL:     res.Video.URL,
		ProcessingMs: res.Elapsed.Milliseconds(),
		CreatedAt:    s.now(),
	}
	if err := s.archive.RecordExchange(ctx, ex); err != nil {
		slog.Warn("failed to archive exchange", "session_id", sess.ID, "error", err)
	}
}
