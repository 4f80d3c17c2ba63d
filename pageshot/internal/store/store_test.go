package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/pageshot/dbopen"
	"github.com/hazyhaar/pageshot/pageshot/internal/protocol"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return &Store{DB: dbopen.OpenMemory(t, dbopen.WithSchema(Schema))}
}

func TestCaptureCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	img := []byte("\x89PNG fake image bytes")
	r := &Record{
		ID:             "cap_1",
		URL:            "https://example.com/",
		Title:          "Example",
		Width:          1280,
		Height:         4000,
		ViewportHeight: 800,
		Tiles:          5,
		Format:         "png",
		MIME:           "image/png",
		Content:        &protocol.Content{Images: []string{"https://example.com/a.png"}, Audio: []string{}, Video: []string{}, Links: []string{}},
		Markdown:       "# Example",
		ElapsedMs:      2600,
	}
	if err := s.InsertCapture(ctx, r, img); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if r.Digest != Digest(img) {
		t.Errorf("digest: got %q", r.Digest)
	}
	if r.Size != len(img) || r.CreatedAt == 0 {
		t.Errorf("defaults not filled: size=%d created_at=%d", r.Size, r.CreatedAt)
	}

	got, err := s.GetCapture(ctx, "cap_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("get: got nil")
	}
	if diff := cmp.Diff(r, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	data, mime, err := s.GetImage(ctx, "cap_1")
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if !bytes.Equal(data, img) || mime != "image/png" {
		t.Errorf("image: got %d bytes %q", len(data), mime)
	}

	byDigest, err := s.FindByDigest(ctx, Digest(img))
	if err != nil || byDigest == nil || byDigest.ID != "cap_1" {
		t.Errorf("find by digest: got %v, %v", byDigest, err)
	}

	deleted, err := s.DeleteCapture(ctx, "cap_1")
	if err != nil || !deleted {
		t.Fatalf("delete: %v, %v", deleted, err)
	}
	deleted, err = s.DeleteCapture(ctx, "cap_1")
	if err != nil || deleted {
		t.Errorf("second delete: got %v, %v", deleted, err)
	}
	if got, err := s.GetCapture(ctx, "cap_1"); err != nil || got != nil {
		t.Errorf("get after delete: got %v, %v", got, err)
	}
	if data, _, err := s.GetImage(ctx, "cap_1"); err != nil || data != nil {
		t.Errorf("image after delete: got %d bytes, %v", len(data), err)
	}
}

func TestInsertCapture_EmptyImage(t *testing.T) {
	s := testStore(t)
	if err := s.InsertCapture(context.Background(), &Record{ID: "x", URL: "u"}, nil); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestListCaptures(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		r := &Record{ID: id, URL: "https://example.com/" + id, Format: "png", MIME: "image/png", CreatedAt: int64(1000 + i)}
		if err := s.InsertCapture(ctx, r, []byte(id)); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	list, err := s.ListCaptures(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []string
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, ids); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
	if list[0].Content != nil {
		t.Errorf("content: got %+v, want nil", list[0].Content)
	}
}

func TestEvents(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.InsertCapture(ctx, &Record{ID: "cap_1", URL: "u", Format: "png", MIME: "image/png"}, []byte{1}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	events := []*Event{
		{ID: "ev_1", URL: "https://down.example/", Action: "capture", Error: "Failed to get page dimensions", CreatedAt: 1},
		{ID: "ev_2", CaptureID: "cap_1", URL: "u", Action: "capture", Success: true, DurationMs: 1500, CreatedAt: 2},
	}
	for _, e := range events {
		if err := s.LogEvent(ctx, e); err != nil {
			t.Fatalf("log %s: %v", e.ID, err)
		}
	}

	got, err := s.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	want := []*Event{events[1], events[0]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}

	// Deleting the capture keeps the event, unlinked.
	if _, err := s.DeleteCapture(ctx, "cap_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = s.RecentEvents(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].CaptureID != "" {
		t.Errorf("event after delete: %+v", got)
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "captures.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, err := s.ListCaptures(context.Background(), 0); err != nil {
		t.Errorf("list on fresh db: %v", err)
	}
}

func TestDigest(t *testing.T) {
	if len(Digest([]byte("x"))) != 64 {
		t.Error("digest should be 64 hex chars")
	}
	if Digest([]byte("a")) == Digest([]byte("b")) {
		t.Error("distinct inputs share a digest")
	}
}
