package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func testCapture() Capture {
	return Capture{
		ID:        "cap_abc",
		URL:       "https://example.com/",
		Width:     800,
		Height:    2400,
		Tiles:     3,
		Format:    "png",
		MIME:      "image/png",
		Digest:    "d1",
		CreatedAt: 1700000000000,
		Image:     []byte("png-bytes"),
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStdout(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf, false)
	if err := s.Deliver(context.Background(), testCapture()); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	var env struct {
		Type string  `json:"type"`
		Data Capture `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	if env.Type != "capture" {
		t.Errorf("type: got %q", env.Type)
	}
	if diff := cmp.Diff(testCapture().Meta(), env.Data); diff != "" {
		t.Errorf("data (-want +got):\n%s", diff)
	}
}

func TestDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	d, err := NewDir(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	c := testCapture()
	if err := d.Deliver(context.Background(), c); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	img, err := os.ReadFile(filepath.Join(root, "cap_abc.png"))
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if !bytes.Equal(img, c.Image) {
		t.Errorf("image: got %q", img)
	}
	meta, err := os.ReadFile(filepath.Join(root, "cap_abc.json"))
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	var got Capture
	if err := json.Unmarshal(meta, &got); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if diff := cmp.Diff(c.Meta(), got); diff != "" {
		t.Errorf("meta (-want +got):\n%s", diff)
	}

	c.ID = "../escape"
	if err := d.Deliver(context.Background(), c); err == nil {
		t.Error("path traversal id: expected error")
	}
}

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	var gotID atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var env struct {
			Data Capture `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gotID.Store(env.Data.ID + "|" + string(env.Data.Image))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond), WithWebhookLogger(quietLogger()))
	if err := w.Deliver(context.Background(), testCapture()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls: got %d, want 3", n)
	}
	if got := gotID.Load(); got != "cap_abc|png-bytes" {
		t.Errorf("payload: got %v", got)
	}
}

func TestWebhook_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond), WithWebhookLogger(quietLogger()))
	if err := w.Deliver(context.Background(), testCapture()); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls: got %d, want 1", n)
	}
}

func TestWebhook_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookRetries(1), WithWebhookBackoff(time.Millisecond), WithWebhookLogger(quietLogger()))
	if err := w.Deliver(context.Background(), testCapture()); err == nil {
		t.Fatal("expected error")
	}
}

func TestWebhook_RateLimitedRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "junk")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if r.Header.Get("X-Capture-ID") != "cap_abc" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond), WithWebhookLogger(quietLogger()))
	if err := w.Deliver(context.Background(), testCapture()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls: got %d, want 2", n)
	}
}

func TestParseRetryAfter(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"":                              0,
		"2":                             2 * time.Second,
		" 5 ":                           5 * time.Second,
		"-1":                            0,
		"3600":                          maxRetryAfter,
		"Wed, 21 Oct 2015 07:28:00 GMT": 0,
	} {
		if got := parseRetryAfter(in); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}

type failingSink struct{ err error }

func (f failingSink) Deliver(context.Context, Capture) error { return f.err }
func (f failingSink) Close() error                           { return f.err }

func TestRouter_FansOut(t *testing.T) {
	var got []string
	cb := NewCallback(func(_ context.Context, c Capture) error {
		got = append(got, c.ID)
		return nil
	})
	boom := errors.New("boom")
	r := NewRouter(quietLogger(), failingSink{err: boom}, cb)

	err := r.Deliver(context.Background(), testCapture())
	if !errors.Is(err, boom) {
		t.Errorf("deliver: got %v, want boom", err)
	}
	if len(got) != 1 || got[0] != "cap_abc" {
		t.Errorf("callback not reached after failing sink: %v", got)
	}
	if !errors.Is(r.Close(), boom) {
		t.Error("close: expected joined error")
	}
	if r.Len() != 2 {
		t.Errorf("len: got %d", r.Len())
	}
}
