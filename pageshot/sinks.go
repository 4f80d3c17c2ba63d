package pageshot

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/pageshot/pageshot/internal/config"
	"github.com/hazyhaar/pageshot/pageshot/internal/sink"
)

// Sink is the output interface for finished captures.
type Sink = sink.Sink

// SinkCapture is a finished capture as handed to sinks.
type SinkCapture = sink.Capture

// DeliverFunc is called for each finished capture.
type DeliverFunc = sink.DeliverFunc

// NewStdoutSink creates a stdout JSON-lines sink. withImage includes the
// encoded image in each line.
func NewStdoutSink(w io.Writer, withImage bool) Sink {
	return sink.NewStdout(w, withImage)
}

// NewDirSink writes each capture and its metadata under root.
func NewDirSink(root string) (Sink, error) {
	d, err := sink.NewDir(root)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process sink calling fn.
func NewCallbackSink(fn DeliverFunc) Sink {
	return sink.NewCallback(fn)
}

func buildSinks(cfgs []config.SinkConfig, logger *slog.Logger) ([]sink.Sink, error) {
	var out []sink.Sink
	for i, sc := range cfgs {
		switch sc.Type {
		case "stdout":
			out = append(out, sink.NewStdout(nil, sc.Image))
		case "dir":
			d, err := sink.NewDir(sc.Dir)
			if err != nil {
				return nil, fmt.Errorf("pageshot: sinks[%d]: %w", i, err)
			}
			out = append(out, d)
		case "webhook":
			out = append(out, sink.NewWebhook(sc.URL,
				sink.WithWebhookRetries(sc.Retries),
				sink.WithWebhookImage(sc.Image),
				sink.WithWebhookLogger(logger)))
		default:
			return nil, fmt.Errorf("pageshot: sinks[%d]: unknown type %q", i, sc.Type)
		}
	}
	return out, nil
}
