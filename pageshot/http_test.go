package pageshot

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func newTestServer(t *testing.T, svc *Service) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(svc.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func postCapture(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/captures", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestHTTP_CaptureLifecycle(t *testing.T) {
	f := &fixture{page: testPage(40, 90)}
	svc := newTestService(t, testConfig(t, true), WithOpener(f.opener(30)))
	ts := newTestServer(t, svc)

	resp := postCapture(t, ts, `{"url":"https://example.com/"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Trace-ID") == "" {
		t.Error("missing X-Trace-ID")
	}
	var rec Record
	decodeBody(t, resp, &rec)
	if rec.ID == "" || rec.Width != 40 || rec.Height != 90 || rec.Tiles != 3 {
		t.Fatalf("record = %+v", rec)
	}

	resp = get(t, ts.URL+"/api/captures")
	var list []Record
	decodeBody(t, resp, &list)
	if len(list) != 1 || list[0].ID != rec.ID {
		t.Errorf("list = %+v", list)
	}

	resp = get(t, ts.URL+"/api/captures/"+rec.ID)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET record status = %d", resp.StatusCode)
	}

	resp = get(t, ts.URL+"/api/captures/"+rec.ID+"/image")
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("image Content-Type = %q", ct)
	}
	var img bytes.Buffer
	img.ReadFrom(resp.Body)
	if !bytes.HasPrefix(img.Bytes(), []byte("\x89PNG")) {
		t.Error("image body is not PNG")
	}

	resp = get(t, ts.URL+"/api/captures/"+rec.ID+"/markdown")
	var md bytes.Buffer
	md.ReadFrom(resp.Body)
	if !strings.Contains(md.String(), "# Hello") {
		t.Errorf("markdown = %q", md.String())
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/captures/"+rec.ID, nil)
	dresp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	dresp.Body.Close()
	if dresp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d", dresp.StatusCode)
	}

	resp = get(t, ts.URL+"/api/captures/"+rec.ID)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET deleted status = %d", resp.StatusCode)
	}

	resp = get(t, ts.URL+"/api/events")
	var evs []Event
	decodeBody(t, resp, &evs)
	if len(evs) != 1 || !evs[0].Success {
		t.Errorf("events = %+v", evs)
	}
}

func TestHTTP_BadRequests(t *testing.T) {
	f := &fixture{page: testPage(8, 8)}
	svc := newTestService(t, testConfig(t, true), WithOpener(f.opener(8)))
	ts := newTestServer(t, svc)

	for _, body := range []string{`not json`, `{}`, `{"url":"   "}`, `{"url":"gopher://example.com/"}`} {
		resp := postCapture(t, ts, body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
	if resp := get(t, ts.URL+"/api/captures/nope/image"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing image status = %d", resp.StatusCode)
	}
	if f.opened.Load() != 0 {
		t.Error("tab opened for a bad request")
	}
}

func TestHTTP_Busy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := &fixture{page: testPage(8, 8)}
	inner := f.opener(8)
	var once sync.Once
	opener := func(ctx context.Context, url string) (Tab, error) {
		first := false
		once.Do(func() {
			close(entered)
			first = true
		})
		if first {
			<-release
		}
		return inner(ctx, url)
	}
	svc := newTestService(t, testConfig(t, false), WithOpener(opener))
	ts := newTestServer(t, svc)

	done := make(chan int, 1)
	go func() {
		resp, err := http.Post(ts.URL+"/api/captures", "application/json", strings.NewReader(`{"url":"https://example.com/"}`))
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-entered

	resp := postCapture(t, ts, `{"url":"https://example.com/"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("concurrent POST status = %d, want 409", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "capture already in progress" {
		t.Errorf("error = %q", body["error"])
	}

	close(release)
	if code := <-done; code != http.StatusCreated {
		t.Errorf("first POST status = %d", code)
	}
	resp = postCapture(t, ts, `{"url":"https://example.com/again"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("POST after release status = %d, want 201", resp.StatusCode)
	}
}

func TestHTTP_CaptureFailure(t *testing.T) {
	opener := func(context.Context, string) (Tab, error) {
		return nil, errString("Failed to get page dimensions")
	}
	svc := newTestService(t, testConfig(t, false), WithOpener(opener))
	ts := newTestServer(t, svc)

	resp := postCapture(t, ts, `{"url":"https://example.com/"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "Failed to get page dimensions" {
		t.Errorf("error = %q", body["error"])
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestHTTP_NoStore(t *testing.T) {
	f := &fixture{page: testPage(8, 8)}
	svc := newTestService(t, testConfig(t, false), WithOpener(f.opener(8)))
	ts := newTestServer(t, svc)

	for _, path := range []string{"/api/captures", "/api/captures/x", "/api/events"} {
		if resp := get(t, ts.URL+path); resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("GET %s status = %d, want 503", path, resp.StatusCode)
		}
	}
}

func TestHTTP_HealthAndProgress(t *testing.T) {
	svc := newTestService(t, testConfig(t, false), WithOpener((&fixture{page: testPage(8, 8)}).opener(8)))
	ts := newTestServer(t, svc)

	if resp := get(t, ts.URL+"/healthz"); resp.StatusCode != http.StatusOK {
		t.Errorf("healthz = %d", resp.StatusCode)
	}
	var p map[string]any
	decodeBody(t, get(t, ts.URL+"/api/progress"), &p)
	if p["state"] != "idle" {
		t.Errorf("progress = %v", p)
	}
}
