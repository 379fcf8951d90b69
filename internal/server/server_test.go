package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/auto-report/internal/db"
	"github.com/ziadkadry99/auto-report/internal/mail"
	"github.com/ziadkadry99/auto-report/internal/preview"
	"github.com/ziadkadry99/auto-report/internal/render"
)

const sampleDefinition = `
title: Q1 Results
root:
  contents:
    - header: {text: Overview, level: 2}
    - text: Revenue grew **12%**.
`

func newTestServer(t *testing.T, cfg Config, opts ...Option) *Server {
	t.Helper()
	return New(cfg, zerolog.Nop(), render.NewHTMLRenderer(), opts...)
}

func newTestOutbox(t *testing.T, tr mail.Transport) *mail.Outbox {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return mail.NewOutbox(mail.NewStore(database), tr)
}

func do(srv *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0})

	w := do(srv, "GET", "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0, AllowAll: true})

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestRenderDocument(t *testing.T) {
	srv := newTestServer(t, Config{})

	w := do(srv, "POST", "/api/render", []byte(sampleDefinition))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	out := w.Body.String()
	for _, want := range []string{"<!DOCTYPE html>", "<title>Q1 Results</title>", "<h1>Q1 Results</h1>", "<strong>12%</strong>"} {
		if !strings.Contains(out, want) {
			t.Errorf("response missing %q", want)
		}
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRenderFragment(t *testing.T) {
	srv := newTestServer(t, Config{})

	w := do(srv, "POST", "/api/render?fragment=1", []byte(sampleDefinition))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("fragment should not be wrapped in a page")
	}
	if !strings.HasPrefix(w.Body.String(), "<h1>Q1 Results</h1>") {
		t.Errorf("unexpected fragment start: %.60s", w.Body.String())
	}
}

func TestRenderInvalidDefinition(t *testing.T) {
	srv := newTestServer(t, Config{})

	w := do(srv, "POST", "/api/render", []byte("root:\n  flow: diagonal\n"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestMailRoutesDisabledWithoutOutbox(t *testing.T) {
	srv := newTestServer(t, Config{})
	if w := do(srv, "POST", "/api/mail", []byte(`{}`)); w.Code != http.StatusNotFound && w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected /api/mail to be unrouted, got %d", w.Code)
	}
}

func TestMailSendsThroughOutbox(t *testing.T) {
	var got mail.Message
	outbox := newTestOutbox(t, mail.TransportFunc(func(_ context.Context, msg mail.Message) error {
		got = msg
		return nil
	}))
	srv := newTestServer(t, Config{}, WithOutbox(outbox))

	body, _ := json.Marshal(mailRequest{
		Definition: sampleDefinition,
		To:         []string{"team@example.com"},
		From:       []string{"reports@example.com"},
	})
	w := do(srv, "POST", "/api/mail", body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body)
	}
	if got.Subject != "Q1 Results" {
		t.Errorf("subject = %q, want title fallback", got.Subject)
	}
	if !strings.Contains(got.Body, `<table class="report">`) {
		t.Errorf("body is not a rendered report: %.80s", got.Body)
	}

	w = do(srv, "GET", "/api/deliveries", nil)
	var list []mail.Delivery
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal deliveries: %v", err)
	}
	if len(list) != 1 || list[0].Status != mail.StatusSent {
		t.Errorf("deliveries = %+v", list)
	}
}

func TestMailUsesDefinitionMailBlock(t *testing.T) {
	var got mail.Message
	outbox := newTestOutbox(t, mail.TransportFunc(func(_ context.Context, msg mail.Message) error {
		got = msg
		return nil
	}))
	srv := newTestServer(t, Config{}, WithOutbox(outbox))

	def := sampleDefinition + "mail:\n  subject: Weekly numbers\n  to: [ops@example.com]\n"
	body, _ := json.Marshal(mailRequest{Definition: def})
	w := do(srv, "POST", "/api/mail", body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body)
	}
	if got.Subject != "Weekly numbers" || len(got.Recipients) != 1 || got.Recipients[0] != "ops@example.com" {
		t.Errorf("message = %+v", got)
	}
}

func TestMailWithoutRecipients(t *testing.T) {
	srv := newTestServer(t, Config{}, WithOutbox(newTestOutbox(t, mail.TransportFunc(
		func(context.Context, mail.Message) error { return nil }))))

	body, _ := json.Marshal(mailRequest{Definition: sampleDefinition})
	if w := do(srv, "POST", "/api/mail", body); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestMailTransportFailure(t *testing.T) {
	outbox := newTestOutbox(t, mail.TransportFunc(func(context.Context, mail.Message) error {
		return errors.New("connection refused")
	}))
	srv := newTestServer(t, Config{}, WithOutbox(outbox))

	body, _ := json.Marshal(mailRequest{Definition: sampleDefinition, To: []string{"a@example.com"}})
	w := do(srv, "POST", "/api/mail", body)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body)
	}

	w = do(srv, "GET", "/api/deliveries/pending", nil)
	var pending []mail.Delivery
	if err := json.Unmarshal(w.Body.Bytes(), &pending); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(pending) != 1 || pending[0].Status != mail.StatusFailed {
		t.Errorf("pending = %+v", pending)
	}
}

func TestPreview(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weekly.yml")
	if err := os.WriteFile(path, []byte(sampleDefinition), 0o644); err != nil {
		t.Fatal(err)
	}
	hub := preview.NewHub(zerolog.Nop())
	srv := newTestServer(t, Config{PreviewPath: path}, WithHub(hub))

	w := do(srv, "GET", "/preview", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "new WebSocket") {
		t.Error("preview page should include the reload script")
	}

	if err := os.WriteFile(path, []byte("title: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	w = do(srv, "GET", "/preview", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a broken definition, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `<pre class="error">`) || !strings.Contains(w.Body.String(), "new WebSocket") {
		t.Error("error page should show the error and keep reloading")
	}
}

func TestRenderRejectsFilesOutsideBaseDir(t *testing.T) {
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.csv")
	if err := os.WriteFile(secret, []byte("token\ns3cr3t-value\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	base := filepath.Join(outside, "project")
	if err := os.MkdirAll(base, 0o755); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, Config{BaseDir: base})

	for _, ref := range []string{filepath.ToSlash(secret), "../secret.csv"} {
		def := "root:\n  contents:\n    - data: {csv: \"" + ref + "\"}\n"
		w := do(srv, "POST", "/api/render?fragment=1", []byte(def))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", ref, w.Code)
		}
		if strings.Contains(w.Body.String(), "s3cr3t-value") {
			t.Errorf("%s: response contains the file contents", ref)
		}
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start after Shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept listening after Shutdown")
	}
}

func TestShutdownStopsRunningServer(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0})

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
