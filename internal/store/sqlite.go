package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/satlabs/voice-tutor/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed transcript archive.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode keeps archive writes from blocking readiness pings.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		user_message TEXT NOT NULL,
		reply TEXT NOT NULL,
		audio_url TEXT,
		video_url TEXT,
		processing_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordExchange appends one completed exchange.
func (s *SQLiteStore) RecordExchange(ctx context.Context, ex *domain.Exchange) error {
	query := `
	INSERT INTO exchanges (session_id, user_id, subject, user_message, reply, audio_url, video_url, processing_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var audioURL, videoURL interface{}
	if ex.AudioURL != "" {
		audioURL = ex.AudioURL
	}
	if ex.VideoURL != "" {
		videoURL = ex.VideoURL
	}

	_, err := s.db.ExecContext(ctx, query,
		ex.SessionID, ex.UserID, ex.Subject,
		ex.UserMessage, ex.Reply,
		audioURL, videoURL,
		ex.ProcessingMs, ex.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

// ListExchanges returns up to limit exchanges for a session, oldest first.
func (s *SQLiteStore) ListExchanges(ctx context.Context, sessionID string, limit int) ([]*domain.Exchange, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT id, session_id, user_id, subject, user_message, reply, audio_url, video_url, processing_ms, created_at
	FROM exchanges WHERE session_id = ?
	ORDER BY created_at ASC, id ASC
	LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Exchange
	for rows.Next() {
		var ex domain.Exchange
		var audioURL, videoURL sql.NullString
		var createdAt int64

		if err := rows.Scan(
			&ex.ID, &ex.SessionID, &ex.UserID, &ex.Subject,
			&ex.UserMessage, &ex.Reply,
			&audioURL, &videoURL,
			&ex.ProcessingMs, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan exchange row: %w", err)
		}

		ex.AudioURL = audioURL.String
		ex.VideoURL = videoURL.String
		ex.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, &ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchange rows: %w", err)
	}
	return out, nil
}
