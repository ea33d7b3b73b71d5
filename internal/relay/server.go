package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"career-twin/internal/llm"
	"career-twin/internal/session"
	"career-twin/internal/storage"
)

const (
	maxBodyBytes    = 1 << 20
	upstreamTimeout = 30 * time.Second
	locationTimeout = 10 * time.Second
)

// Store is what the analytics endpoints need from a session store.
type Store interface {
	AppendSession(ctx context.Context, s session.Summary) error
	LoadSessions(ctx context.Context) ([]storage.Entry, error)
}

type Options struct {
	Addr          string
	AllowedOrigin string
	// StatsToken guards GET /api/stats when set.
	StatsToken  string
	LocationURL string
	// HTTPClient is used for the geolocation lookup.
	HTTPClient *http.Client
}

// Server is the first-party relay: it holds the provider credential so the
// widget never does, and it collects session analytics.
type Server struct {
	llm       llm.Client
	store     Store
	opts      Options
	client    *http.Client
	server    *http.Server
	startTime time.Time
}

// New builds a server. A nil client makes /api/chat answer 500, a nil store
// disables the analytics endpoints.
func New(client llm.Client, store Store, opts Options) *Server {
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	s := &Server{llm: client, store: store, opts: opts, client: hc, startTime: time.Now()}
	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: upstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/analytics", s.handleAnalytics)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/location", s.handleLocation)
	mux.HandleFunc("/health", s.handleHealth)
	return logRequests(s.cors(mux))
}

// Start blocks serving on opts.Addr until Shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.opts.Addr).Msg("relay server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "relay server")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.opts.AllowedOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-Stats-Token")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Status  int    `json:"status,omitempty"`
	Details any    `json:"details,omitempty"`
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"llm_configured": s.llm != nil,
	})
}
