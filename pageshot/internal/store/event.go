package store

import (
	"context"
	"database/sql"
	"time"
)

// Event records one capture attempt.
type Event struct {
	ID         string `json:"id"`
	CaptureID  string `json:"capture_id,omitempty"`
	URL        string `json:"url"`
	Action     string `json:"action"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	CreatedAt  int64  `json:"created_at"`
}

// LogEvent appends e.
func (s *Store) LogEvent(ctx context.Context, e *Event) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	var captureID sql.NullString
	if e.CaptureID != "" {
		captureID = sql.NullString{String: e.CaptureID, Valid: true}
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO capture_events (id, capture_id, url, action, success, error, duration_ms, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		e.ID, captureID, e.URL, e.Action, e.Success, e.Error, e.DurationMs, e.CreatedAt,
	)
	return err
}

// RecentEvents returns the latest events, newest first. limit <= 0 means 50.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, capture_id, url, action, success, error, duration_ms, created_at
		FROM capture_events ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e := &Event{}
		var captureID sql.NullString
		if err := rows.Scan(&e.ID, &captureID, &e.URL, &e.Action, &e.Success, &e.Error, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CaptureID = captureID.String
		out = append(out, e)
	}
	return out, rows.Err()
}
