package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"edgefhir-dash/internal/config"
	"edgefhir-dash/internal/poll"
	"edgefhir-dash/internal/relay"
	"edgefhir-dash/internal/snapshot"
)

func TestResolveStartupConfigEmptyPath(t *testing.T) {
	t.Parallel()

	cfg, source, err := resolveStartupConfig("")
	if err != nil {
		t.Fatalf("resolveStartupConfig returned error: %v", err)
	}
	if source != "" {
		t.Fatalf("expected no config source for empty path, got %q", source)
	}
	if cfg.Poll.IntervalMs <= 0 {
		t.Fatalf("expected a positive poll interval, got %d", cfg.Poll.IntervalMs)
	}
}

func TestResolveStartupConfigSuccess(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "dash.yaml")
	if err := os.WriteFile(path, []byte("poll:\n  interval_ms: 750\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cfg, source, err := resolveStartupConfig(path)
	if err != nil {
		t.Fatalf("resolveStartupConfig returned error: %v", err)
	}
	if cfg.Poll.IntervalMs != 750 {
		t.Fatalf("expected interval from file, got %d", cfg.Poll.IntervalMs)
	}
	wantSource, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("filepath.Abs: %v", err)
	}
	if source != wantSource {
		t.Fatalf("resolved source mismatch: got %q want %q", source, wantSource)
	}
}

func TestResolveStartupConfigFailsForInvalidShape(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "dash.yaml")
	if err := os.WriteFile(path, []byte("- invalid\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, _, err := resolveStartupConfig(path); err == nil {
		t.Fatalf("expected resolveStartupConfig to fail for a YAML sequence")
	}
}

func TestParseFlagsRejectsMultipleModes(t *testing.T) {
	t.Parallel()

	if _, err := parseFlags([]string{"-headless", "-serve"}, io.Discard); err == nil {
		t.Fatalf("expected conflicting modes to be rejected")
	}
	if _, err := parseFlags([]string{"extra"}, io.Discard); err == nil {
		t.Fatalf("expected positional arguments to be rejected")
	}

	opts, err := parseFlags([]string{"-exec", "f", "-config", "dash.yaml"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.execPath != "f" || opts.configPath != "dash.yaml" {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if !opts.consoleAllowed() {
		t.Fatalf("expected console logging to be allowed outside the TUI")
	}

	tui, err := parseFlags(nil, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if tui.consoleAllowed() {
		t.Fatalf("expected console logging to be disabled for the TUI")
	}
}

type fakeRelay struct {
	mu       sync.Mutex
	requests []string
	mode     string
}

func (f *fakeRelay) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/simulate/") {
		f.mode = strings.TrimPrefix(r.URL.Path, "/simulate/")
	}
	mode := f.mode
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/status":
		_, _ = io.WriteString(w, `{"phase":"streaming","connectivity_on":true,"outbox_count":2,"last_decision":{"triage":"watch","confidence":0.5}}`)
	case "/history":
		_, _ = io.WriteString(w, `{"series":[{"hr":101,"spo2":97}]}`)
	case "/mode":
		_, _ = io.WriteString(w, `{"mode":"`+mode+`"}`)
	case "/health":
		_, _ = io.WriteString(w, `{"ok":true}`)
	default:
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}
}

func (f *fakeRelay) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func TestRunExecDispatchesThenRefreshesOnce(t *testing.T) {
	t.Parallel()

	fake := &fakeRelay{mode: "normal"}
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	client := relay.NewClient(srv.URL, srv.Client())
	syncer := poll.New(client, snapshot.NewStore(), poll.Options{CycleTimeout: 2 * time.Second})

	var out bytes.Buffer
	if err := runExec(context.Background(), syncer, client, time.Second, "e", &out); err != nil {
		t.Fatalf("runExec: %v", err)
	}

	requests := fake.seen()
	if len(requests) != 4 {
		t.Fatalf("expected one command and one three-resource cycle, got %v", requests)
	}
	if requests[0] != "POST /simulate/fever" {
		t.Fatalf("expected command first, got %v", requests)
	}
	got := out.String()
	for _, want := range []string{"/simulate/fever ok", "mode=fever", "connectivity=on", "outbox=2", "hr=101", "confidence=50%"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output, got %q", want, got)
		}
	}
}

func TestRunExecRejectsUnknownTarget(t *testing.T) {
	t.Parallel()

	client := relay.NewClient("http://127.0.0.1:1", nil)
	syncer := poll.New(client, snapshot.NewStore(), poll.Options{})
	if err := runExec(context.Background(), syncer, client, time.Second, "zz", io.Discard); err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestRunCheck(t *testing.T) {
	t.Parallel()

	fake := &fakeRelay{}
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	if err := runCheck(context.Background(), relay.NewClient(srv.URL, srv.Client()), time.Second, &out); err != nil {
		t.Fatalf("runCheck: %v", err)
	}
	if !strings.Contains(out.String(), "ok") {
		t.Fatalf("unexpected check output %q", out.String())
	}

	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	if err := runCheck(context.Background(), relay.NewClient(down.URL, nil), time.Second, io.Discard); err == nil {
		t.Fatalf("expected check against a closed server to fail")
	}
}

func TestSummaryLineIncludesError(t *testing.T) {
	t.Parallel()

	snap := snapshot.NewStore().Snapshot()
	snap.LastError = "dial tcp: refused"
	line := summaryLine(snap, poll.CycleResult{Finished: time.Now()})
	if !strings.Contains(line, `error="dial tcp: refused"`) {
		t.Fatalf("expected error in summary, got %q", line)
	}
	if !strings.Contains(line, "mode=normal") || !strings.Contains(line, "hr=—") {
		t.Fatalf("expected defaults in summary, got %q", line)
	}
}

func TestDefaultConfigServesProxyFromBaseURL(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	config.Normalize(cfg)
	if cfg.Relay.APIURL != cfg.Relay.BaseURL {
		t.Fatalf("expected API URL to default to the base URL, got %q", cfg.Relay.APIURL)
	}
}
