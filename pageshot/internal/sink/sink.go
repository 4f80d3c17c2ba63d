// Package sink defines output backends for finished captures.
package sink

import (
	"context"

	"github.com/hazyhaar/pageshot/pageshot/internal/protocol"
)

// Capture is a finished capture as handed to sinks.
type Capture struct {
	ID        string            `json:"id"`
	URL       string            `json:"url"`
	Title     string            `json:"title,omitempty"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Tiles     int               `json:"tiles"`
	Format    string            `json:"format"`
	MIME      string            `json:"mime"`
	Digest    string            `json:"digest"`
	CreatedAt int64             `json:"created_at"`
	Content   *protocol.Content `json:"content,omitempty"`
	Image     []byte            `json:"image,omitempty"`
}

// Meta returns c without its image bytes.
func (c Capture) Meta() Capture {
	c.Image = nil
	return c
}

// Sink is the output interface. Implementations deliver captures to
// different backends (stdout, directory, webhook, in-process callback).
type Sink interface {
	Deliver(ctx context.Context, c Capture) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
