// Package api is the JSON HTTP surface of the service: authentication,
// document CRUD, retrieval queries, and bulk uploads. Every route except
// login, register, and the probes requires a bearer token.
package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andrapra-work/rag-system-api/internal/log"
)

// DefaultMaxUploadSize caps bulk upload bodies at 10 MiB.
const DefaultMaxUploadSize = 10 << 20

// ServerConfig contains everything needed to build the API server.
type ServerConfig struct {
	Logger log.Logger

	Auth      authService
	Authn     authenticator
	Documents documentReader
	Ingester  documentIngester
	Search    answerer
	Bulk      bulkIngester

	Pool        *pgxpool.Pool // Optional: nil degrades /ready to 503
	Version     string
	Environment string

	CORSOrigins   []string
	TrustProxy    bool  // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst     int   // Rate limiter burst per IP (0 = default 60)
	MaxUploadSize int64 // 0 = DefaultMaxUploadSize
	IsDev         bool  // Disables HSTS
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Auth == nil || cfg.Authn == nil {
		return nil, errors.New("auth service is required")
	}
	if cfg.Documents == nil || cfg.Ingester == nil {
		return nil, errors.New("document store is required")
	}
	if cfg.Search == nil {
		return nil, errors.New("search service is required")
	}
	if cfg.Bulk == nil {
		return nil, errors.New("bulk service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	maxUpload := cfg.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadSize
	}

	ah := &authHandler{auth: cfg.Auth, logger: logger}
	dh := &documentHandler{ingester: cfg.Ingester, docs: cfg.Documents, logger: logger}
	sh := &searchHandler{rag: cfg.Search, logger: logger}
	uh := &uploadHandler{bulk: cfg.Bulk, maxUploadSize: maxUpload, logger: logger}

	requireAuth := authMiddleware(cfg.Authn, logger)
	authed := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	mux := http.NewServeMux()

	// Credentials
	mux.HandleFunc("POST /auth/login", ah.login)
	mux.HandleFunc("POST /auth/register", ah.register)
	mux.Handle("POST /auth/change-password", authed(ah.changePassword))

	// Documents
	mux.Handle("POST /documents", authed(dh.create))
	mux.Handle("POST /documents/{$}", authed(dh.create))
	mux.Handle("GET /documents", authed(dh.list))
	mux.Handle("GET /documents/me", authed(dh.mine))
	mux.Handle("GET /documents/{id}", authed(dh.get))
	mux.Handle("PATCH /documents/{id}", authed(dh.update))
	mux.Handle("DELETE /documents/{id}", authed(dh.delete))

	// Retrieval
	mux.Handle("POST /search/query", authed(sh.query))

	// Bulk ingestion
	mux.Handle("POST /upload/csv", authed(uh.csv))
	mux.Handle("POST /upload/json", authed(uh.json))

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux keeps health probes outside the middleware stack.
	hh := &healthHandler{pool: cfg.Pool, version: cfg.Version, environment: cfg.Environment, logger: logger}
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", hh.health)
	topMux.HandleFunc("GET /ready", hh.ready)
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
