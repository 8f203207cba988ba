// Package store provides the transcript archive. Completed exchanges are
// written behind the pipeline for diagnostics and review; session state
// itself stays volatile and is never restored from here.
package store

import (
	"context"

	"github.com/satlabs/voice-tutor/internal/domain"
)

// Repository defines the interface for archiving completed exchanges.
type Repository interface {
	// RecordExchange appends one completed request/response round trip.
	RecordExchange(ctx context.Context, ex *domain.Exchange) error

	// ListExchanges returns up to limit archived exchanges for a session,
	// oldest first.
	ListExchanges(ctx context.Context, sessionID string, limit int) ([]*domain.Exchange, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
