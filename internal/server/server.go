// Package server exposes the game over HTTP: the turn endpoint, the welcome
// endpoint, health probes, and the Prometheus metrics scrape target.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/valisia/internal/game"
	"github.com/MrWong99/valisia/internal/health"
	"github.com/MrWong99/valisia/internal/observe"
	"github.com/MrWong99/valisia/pkg/provider/tts"
)

const (
	// maxUploadBytes caps the multipart form size for a single turn. A minute
	// of browser-recorded audio stays well under this.
	maxUploadBytes = 32 << 20

	// sessionHeader carries the optional client session ID. When present the
	// server tracks the item list itself and rejects overlapping turns.
	sessionHeader = "X-Session-ID"

	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// TurnRunner executes one full game turn. Implemented by turn.Orchestrator.
type TurnRunner interface {
	RunTurn(ctx context.Context, audio []byte, mimeType string, currentItems []string) game.TurnResult
}

// Server is the HTTP front of the game.
type Server struct {
	router   chi.Router
	turns    TurnRunner
	welcome  *welcomeCache
	sessions *game.SessionManager
	metrics  *observe.Metrics

	allowedOrigins []string
	ratePerMinute  int
	health         *health.Handler
	httpServer     *http.Server
}

// Option configures a [Server].
type Option func(*Server)

// WithAllowedOrigins enables CORS for the given browser origins.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithRateLimit caps requests per client IP per minute. Zero disables the
// limiter.
func WithRateLimit(requestsPerMinute int) Option {
	return func(s *Server) {
		s.ratePerMinute = requestsPerMinute
	}
}

// WithHealth replaces the default (checker-less) health handler.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) {
		s.health = h
	}
}

// WithMetrics replaces the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithWelcomeMessage overrides the spoken greeting served by
// POST /api/game/start.
func WithWelcomeMessage(text string) Option {
	return func(s *Server) {
		s.welcome.text = text
	}
}

// New builds the server around a turn runner and the synthesis provider used
// for the welcome greeting.
func New(turns TurnRunner, synth tts.Provider, opts ...Option) (*Server, error) {
	if turns == nil {
		return nil, fmt.Errorf("server: turn runner must not be nil")
	}
	if synth == nil {
		return nil, fmt.Errorf("server: synthesis provider must not be nil")
	}

	s := &Server{
		turns:   turns,
		welcome: newWelcomeCache(synth),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.health == nil {
		s.health = health.New()
	}
	s.sessions = game.NewSessionManager(game.WithSessionMetrics(s.metrics))

	s.router = s.buildRouter()
	return s, nil
}

// buildRouter assembles the middleware stack and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(s.logAndMeasure)
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", sessionHeader},
			MaxAge:         300,
		}))
	}

	s.health.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/game", func(r chi.Router) {
		if s.ratePerMinute > 0 {
			r.Use(httprate.LimitByIP(s.ratePerMinute, time.Minute))
		}
		r.Post("/", s.handleGameTurn)
		r.Post("/start", s.handleGameStart)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves HTTP on addr until Shutdown is called or the listener fails.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("server listening", "addr", addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// turnResponse is the JSON body of a successful POST /api/game.
type turnResponse struct {
	AudioData string   `json:"audioData"`
	NewItems  []string `json:"newItems"`
}

// errorResponse is the JSON body of any failed API call.
type errorResponse struct {
	Error string `json:"error"`
}

// handleGameTurn runs one full game turn from a multipart upload.
//
// Form fields:
//
//   - "audio" (required): the recorded utterance.
//   - "currentItems" (optional): JSON array with the client's item list.
//
// When the X-Session-ID header is set the server keeps the authoritative
// list itself, rejects overlapping turns for the session with 429, and
// ignores an absent currentItems field in favour of its own state.
func (s *Server) handleGameTurn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "request must be a multipart form with an audio file")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil || len(audio) == 0 {
		writeError(w, http.StatusBadRequest, "audio file could not be read")
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	currentItems, ok := s.parseCurrentItems(w, r)
	if !ok {
		return
	}

	var session *game.State
	if id := strings.TrimSpace(r.Header.Get(sessionHeader)); id != "" {
		session = s.sessions.Get(id)
		if !session.Begin() {
			writeError(w, http.StatusTooManyRequests, "a turn is already in progress for this session")
			return
		}
		defer session.Finish()
		if !r.Form.Has("currentItems") {
			currentItems = session.Snapshot()
		}
	}

	res := s.turns.RunTurn(r.Context(), audio, mimeType, currentItems)
	if !res.Success {
		writeError(w, http.StatusInternalServerError, res.Error)
		return
	}
	if session != nil {
		session.Apply(res)
	}

	writeJSON(w, http.StatusOK, turnResponse{
		AudioData: base64.StdEncoding.EncodeToString(res.Audio),
		NewItems:  res.Items,
	})
}

// parseCurrentItems decodes the optional currentItems form field. The second
// return value is false when a response was already written.
func (s *Server) parseCurrentItems(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	raw := r.FormValue("currentItems")
	if raw == "" {
		return nil, true
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		writeError(w, http.StatusBadRequest, "currentItems must be a JSON array of strings")
		return nil, false
	}
	return items, true
}

// handleGameStart speaks the game rules. The synthesized greeting is cached
// after the first call, so repeated starts cost no synthesis quota.
func (s *Server) handleGameStart(w http.ResponseWriter, r *http.Request) {
	audio, err := s.welcome.get(r.Context())
	if err != nil {
		slog.Error("welcome synthesis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not start the game.")
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// logAndMeasure records one structured log line and the request latency
// histogram per request.
func (s *Server) logAndMeasure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		s.metrics.HTTPRequestDuration.Record(r.Context(), elapsed.Seconds(),
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("path", r.URL.Path),
			),
		)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response failed", "error", err)
	}
}

// writeError writes the uniform error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
