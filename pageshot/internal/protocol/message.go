// CLAUDE:SUMMARY Typed messages exchanged between the coordinator and the page-scoped worker.
// Package protocol defines the request/response messages that cross the
// boundary between the privileged coordinator and the page-scoped worker,
// and the in-process Pipe that carries them.
//
// The two sides never share memory: geometry and tile payloads travel as
// values inside Request and Response.
package protocol

import "fmt"

// Action names a step of the capture protocol.
type Action string

const (
	ActionGetPageDimensions Action = "getPageDimensions"
	ActionGetViewportHeight Action = "getViewportHeight"
	ActionGetScrollPosition Action = "getScrollPosition"
	ActionScrollTo          Action = "scrollTo"
	ActionCaptureTab        Action = "captureTab"
	ActionCaptureFullPage   Action = "captureFullPage"
	ActionGetWebpageContent Action = "getWebpageContent"
	ActionGetDocument       Action = "getDocument"
)

// Request is one call across the boundary. ID is assigned by the Pipe when
// empty and echoed in the matching Response.
type Request struct {
	ID     string `json:"id,omitempty"`
	Action Action `json:"action"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
}

// Response carries the answer to exactly one Request. Only the fields
// relevant to the action are set.
type Response struct {
	ID      string   `json:"id,omitempty"`
	Width   int      `json:"width,omitempty"`
	Height  int      `json:"height,omitempty"`
	Scale   float64  `json:"scale,omitempty"`
	X       int      `json:"x,omitempty"`
	Y       int      `json:"y,omitempty"`
	DataURL string   `json:"dataUrl,omitempty"`
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Content *Content `json:"content,omitempty"`

	// getDocument
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
	HTML  string `json:"html,omitempty"`
}

// Dimensions is the page extent reported by the worker. Width and Height are
// the larger of the documentElement and body scroll extents, in CSS pixels.
// Scale is window.devicePixelRatio.
type Dimensions struct {
	Width  int
	Height int
	Scale  float64
}

// Content is the media and link inventory of a page. Only absolute http(s)
// URLs are kept.
type Content struct {
	Images []string `json:"images"`
	Audio  []string `json:"audio"`
	Video  []string `json:"video"`
	Links  []string `json:"links"`
}

// RemoteError is returned by Call when the peer answered with an error
// message. The message is kept verbatim.
type RemoteError struct {
	Action  Action
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// UnreachableError wraps ErrUnreachable with the action that could not be
// delivered.
type UnreachableError struct {
	Action Action
	Reason string
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("protocol: %s: worker unreachable: %s", e.Action, e.Reason)
}

func (e *UnreachableError) Unwrap() error { return ErrUnreachable }
