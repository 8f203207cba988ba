// Package rtc issues Agora RTC tokens for voice-channel clients.
package rtc

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AgoraIO/Tools/DynamicKey/AgoraDynamicKey/go/src/rtctokenbuilder2"
	"github.com/satlabs/voice-tutor/internal/config"
)

// ErrNotConfigured is returned when Agora credentials are absent.
var ErrNotConfigured = errors.New("agora credentials not configured")

// Service builds RTC tokens from the configured app credentials.
type Service struct {
	appID          string
	appCertificate string
	tokenTTL       time.Duration
}

// NewService creates a token service. Credentials may be empty; GenerateToken
// then fails with ErrNotConfigured.
func NewService(cfg config.AgoraConfig) *Service {
	return &Service{
		appID:          cfg.AppID,
		appCertificate: cfg.AppCertificate,
		tokenTTL:       cfg.TokenTTL,
	}
}

// GenerateToken builds a publisher token for the channel. uid 0 lets Agora
// accept any uid on join.
func (s *Service) GenerateToken(channelName string, uid uint32) (string, error) {
	if s.appID == "" || s.appCertificate == "" {
		return "", ErrNotConfigured
	}

	expire := uint32(s.tokenTTL / time.Second)
	token, err := rtctokenbuilder2.BuildTokenWithUid(
		s.appID,
		s.appCertificate,
		channelName,
		uid,
		rtctokenbuilder2.RolePublisher,
		expire,
		expire,
	)
	if err != nil {
		return "", fmt.Errorf("build rtc token: %w", err)
	}

	slog.Info("generated rtc token", "channel", channelName, "uid", uid)
	return token, nil
}
