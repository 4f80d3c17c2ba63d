// CLAUDE:SUMMARY CRUD for the captures table: metadata, content inventory, markdown and image bytes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/pageshot/pageshot/internal/protocol"
)

// Record is a stored capture without its image bytes.
type Record struct {
	ID             string            `json:"id"`
	URL            string            `json:"url"`
	Title          string            `json:"title,omitempty"`
	Width          int               `json:"width"`
	Height         int               `json:"height"`
	ViewportHeight int               `json:"viewport_height"`
	Tiles          int               `json:"tiles"`
	Format         string            `json:"format"`
	MIME           string            `json:"mime"`
	Digest         string            `json:"digest"`
	Size           int               `json:"size"`
	Content        *protocol.Content `json:"content,omitempty"`
	Markdown       string            `json:"markdown,omitempty"`
	ElapsedMs      int64             `json:"elapsed_ms"`
	CreatedAt      int64             `json:"created_at"`
}

// InsertCapture stores r with its image. Digest, Size and CreatedAt are
// filled in when zero.
func (s *Store) InsertCapture(ctx context.Context, r *Record, image []byte) error {
	if len(image) == 0 {
		return errors.New("store: empty image")
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}
	if r.Digest == "" {
		r.Digest = Digest(image)
	}
	r.Size = len(image)

	var content string
	if r.Content != nil {
		b, err := json.Marshal(r.Content)
		if err != nil {
			return fmt.Errorf("store: marshal content: %w", err)
		}
		content = string(b)
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO captures
			(id, url, title, width, height, viewport_height, tiles, format, mime,
			 digest, size, content, markdown, elapsed_ms, image, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.URL, r.Title, r.Width, r.Height, r.ViewportHeight, r.Tiles, r.Format, r.MIME,
		r.Digest, r.Size, content, r.Markdown, r.ElapsedMs, image, r.CreatedAt,
	)
	return err
}

const recordColumns = `id, url, title, width, height, viewport_height, tiles, format, mime,
		       digest, size, content, markdown, elapsed_ms, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	r := &Record{}
	var content string
	err := row.Scan(
		&r.ID, &r.URL, &r.Title, &r.Width, &r.Height, &r.ViewportHeight, &r.Tiles, &r.Format, &r.MIME,
		&r.Digest, &r.Size, &content, &r.Markdown, &r.ElapsedMs, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if content != "" {
		r.Content = &protocol.Content{}
		if err := json.Unmarshal([]byte(content), r.Content); err != nil {
			return nil, fmt.Errorf("store: content of %s: %w", r.ID, err)
		}
	}
	return r, nil
}

// GetCapture returns the record with id, or nil if there is none.
func (s *Store) GetCapture(ctx context.Context, id string) (*Record, error) {
	r, err := scanRecord(s.DB.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM captures WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// GetImage returns the encoded image of capture id and its media type. A
// missing capture yields nil data and no error.
func (s *Store) GetImage(ctx context.Context, id string) ([]byte, string, error) {
	var data []byte
	var mime string
	err := s.DB.QueryRowContext(ctx, `SELECT image, mime FROM captures WHERE id = ?`, id).Scan(&data, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return data, mime, nil
}

// ListCaptures returns the latest captures, newest first. limit <= 0 means 50.
func (s *Store) ListCaptures(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM captures ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FindByDigest returns the newest capture with the given image digest, or nil.
func (s *Store) FindByDigest(ctx context.Context, digest string) (*Record, error) {
	r, err := scanRecord(s.DB.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM captures WHERE digest = ? ORDER BY created_at DESC LIMIT 1`, digest))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// DeleteCapture removes capture id. It reports whether a row was deleted.
func (s *Store) DeleteCapture(ctx context.Context, id string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM captures WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
