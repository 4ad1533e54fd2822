package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/valisia/internal/game"
	"github.com/MrWong99/valisia/internal/observe"
	ttsmock "github.com/MrWong99/valisia/pkg/provider/tts/mock"
)

// runnerCall records one RunTurn invocation.
type runnerCall struct {
	Audio        []byte
	MimeType     string
	CurrentItems []string
}

// stubRunner is a canned TurnRunner.
type stubRunner struct {
	mu     sync.Mutex
	result game.TurnResult
	calls  []runnerCall
}

func (s *stubRunner) RunTurn(_ context.Context, audio []byte, mimeType string, currentItems []string) game.TurnResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, runnerCall{Audio: audio, MimeType: mimeType, CurrentItems: currentItems})
	return s.result
}

func newTestServer(t *testing.T, runner *stubRunner, synth *ttsmock.Provider, opts ...Option) *Server {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	srv, err := New(runner, synth, append(opts, WithMetrics(m))...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

// turnRequest builds a multipart POST /api/game request.
func turnRequest(t *testing.T, audio []byte, currentItems string, header map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if audio != nil {
		fw, err := mw.CreateFormFile("audio", "turn.webm")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(audio); err != nil {
			t.Fatalf("write audio: %v", err)
		}
	}
	if currentItems != "" {
		if err := mw.WriteField("currentItems", currentItems); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/game", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range header {
		req.Header.Set(k, v)
	}
	return req
}

func TestHandleGameTurn_Success(t *testing.T) {
	runner := &stubRunner{result: game.TurnResult{
		Success: true,
		Audio:   []byte("reply-mp3"),
		Items:   []string{"shirt", "socks"},
	}}
	srv := newTestServer(t, runner, &ttsmock.Provider{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, turnRequest(t, []byte("utterance"), `["shirt"]`, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp turnResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioData)
	if err != nil || !bytes.Equal(audio, []byte("reply-mp3")) {
		t.Errorf("audioData = %q (%v)", resp.AudioData, err)
	}
	if len(resp.NewItems) != 2 || resp.NewItems[0] != "shirt" || resp.NewItems[1] != "socks" {
		t.Errorf("newItems = %v", resp.NewItems)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("RunTurn called %d times", len(runner.calls))
	}
	call := runner.calls[0]
	if !bytes.Equal(call.Audio, []byte("utterance")) {
		t.Error("audio payload not forwarded")
	}
	if len(call.CurrentItems) != 1 || call.CurrentItems[0] != "shirt" {
		t.Errorf("currentItems = %v", call.CurrentItems)
	}
}

func TestHandleGameTurn_MissingAudio(t *testing.T) {
	runner := &stubRunner{}
	srv := newTestServer(t, runner, &ttsmock.Provider{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, turnRequest(t, nil, `["shirt"]`, nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp.Error == "" {
		t.Errorf("expected error body, got %s", rec.Body)
	}
	if len(runner.calls) != 0 {
		t.Error("RunTurn must not run without audio")
	}
}

func TestHandleGameTurn_BadCurrentItems(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, &ttsmock.Provider{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, turnRequest(t, []byte("a"), `not-json`, nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleGameTurn_FailedTurn(t *testing.T) {
	runner := &stubRunner{result: game.TurnResult{
		Success: false,
		Error:   "I didn't hear anything. Please try speaking again.",
	}}
	srv := newTestServer(t, runner, &ttsmock.Provider{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, turnRequest(t, []byte("a"), "", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "I didn't hear anything. Please try speaking again." {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestHandleGameTurn_SessionStateApplied(t *testing.T) {
	runner := &stubRunner{result: game.TurnResult{
		Success: true,
		Audio:   []byte("a"),
		Items:   []string{"shirt", "socks"},
	}}
	srv := newTestServer(t, runner, &ttsmock.Provider{})
	hdr := map[string]string{sessionHeader: "sess-1"}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, turnRequest(t, []byte("first"), "", hdr))
	if rec.Code != http.StatusOK {
		t.Fatalf("first turn status = %d", rec.Code)
	}

	// Second turn omits currentItems; the server must feed its own state.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, turnRequest(t, []byte("second"), "", hdr))
	if rec.Code != http.StatusOK {
		t.Fatalf("second turn status = %d", rec.Code)
	}

	if len(runner.calls) != 2 {
		t.Fatalf("RunTurn called %d times", len(runner.calls))
	}
	got := runner.calls[1].CurrentItems
	if len(got) != 2 || got[0] != "shirt" || got[1] != "socks" {
		t.Errorf("second turn currentItems = %v, want applied session state", got)
	}
}

func TestHandleGameTurn_OverlappingSessionTurnRejected(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, &ttsmock.Provider{})

	// Simulate an outstanding turn for the session.
	if !srv.sessions.Get("busy").Begin() {
		t.Fatal("could not mark session busy")
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, turnRequest(t, []byte("a"), "", map[string]string{sessionHeader: "busy"}))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestHandleGameStart_CachesSynthesis(t *testing.T) {
	synth := &ttsmock.Provider{Audio: []byte("welcome-mp3")}
	srv := newTestServer(t, &stubRunner{}, synth)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/game/start", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
			t.Errorf("Content-Type = %q", ct)
		}
		if !bytes.Equal(rec.Body.Bytes(), []byte("welcome-mp3")) {
			t.Error("welcome audio not served")
		}
	}

	if len(synth.SynthesizeCalls) != 1 {
		t.Errorf("Synthesize called %d times, want 1 (cached)", len(synth.SynthesizeCalls))
	}
}

func TestHandleGameStart_SynthesisFailure(t *testing.T) {
	synth := &ttsmock.Provider{Err: errors.New("quota exhausted")}
	srv := newTestServer(t, &stubRunner{}, synth)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/game/start", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp.Error != "Could not start the game." {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, &ttsmock.Provider{})

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
}

func TestRateLimit_Returns429(t *testing.T) {
	runner := &stubRunner{result: game.TurnResult{Success: true, Audio: []byte("a"), Items: []string{"x"}}}
	srv := newTestServer(t, runner, &ttsmock.Provider{}, WithRateLimit(1))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, turnRequest(t, []byte("a"), "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, turnRequest(t, []byte("a"), "", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(nil, &ttsmock.Provider{}); err == nil {
		t.Error("nil runner must be rejected")
	}
	if _, err := New(&stubRunner{}, nil); err == nil {
		t.Error("nil synthesizer must be rejected")
	}
}
