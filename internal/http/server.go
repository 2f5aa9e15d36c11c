package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

const (
	statsCacheSize       = 500
	defaultStatsCacheTTL = 2 * time.Minute
	cacheCleanupInterval = 10 * time.Minute
)

// Services groups the application services the handlers call.
type Services struct {
	Auth         *services.AuthService
	Transactions *services.TransactionService
	Recurring    *services.RecurringService
	Categories   *services.CategoryService
	Stats        *services.StatsService
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	Environment        string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	StatsCacheTTL      time.Duration
	TrustedProxies     []string
	// Ready reports whether dependencies are reachable; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *applog.Logger
}

// Server is the JSON API over the fintrack services.
type Server struct {
	http.Server

	svc         Services
	tokens      TokenParser
	environment string
	ready       func(ctx context.Context) error
	logger      *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	overviewCache *cache.LRUCache[core.Overview]
	trendCache    *cache.LRUCache[[]core.TrendPoint]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, tokens TokenParser, opts Options) *Server {
	if opts.Environment == "" {
		opts.Environment = "development"
	}
	if opts.StatsCacheTTL <= 0 {
		opts.StatsCacheTTL = defaultStatsCacheTTL
	}
	if len(opts.CORSAllowedOrigins) == 0 {
		opts.CORSAllowedOrigins = []string{"*"}
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		svc:           svc,
		tokens:        tokens,
		environment:   opts.Environment,
		ready:         opts.Ready,
		logger:        opts.Logger,
		limiter:       ratelimit.NewLimiter(limitCfg),
		detector:      security.NewDetector(),
		overviewCache: cache.NewLRUCache[core.Overview](statsCacheSize, opts.StatsCacheTTL),
		trendCache:    cache.NewLRUCache[[]core.TrendPoint](statsCacheSize, opts.StatsCacheTTL),
		cacheManager:  cache.NewManager(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			slog.Warn("Ignoring invalid trusted proxy", "cidr", cidr, "error", err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	s.cacheManager.Register(s.overviewCache)
	s.cacheManager.Register(s.trendCache)
	s.cacheManager.StartCleanup(cacheCleanupInterval)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(s.routes(), opts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/google", s.handleGoogleSignIn)
	mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))
	mux.HandleFunc("PATCH /api/auth/profile", s.requireAuth(s.handleUpdateProfile))
	mux.HandleFunc("DELETE /api/auth/account", s.requireAuth(s.handleDeleteAccount))

	mux.HandleFunc("POST /api/transactions/quick", s.requireAuth(s.handleQuickEntry))
	mux.HandleFunc("POST /api/transactions", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("GET /api/transactions/categories/suggestions", s.requireAuth(s.handleSuggestions))
	mux.HandleFunc("GET /api/transactions/{id}", s.requireAuth(s.handleGetTransaction))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireAuth(s.handleDeleteTransaction))

	mux.HandleFunc("POST /api/recurring", s.requireAuth(s.handleCreateRecurring))
	mux.HandleFunc("GET /api/recurring", s.requireAuth(s.handleListRecurring))
	mux.HandleFunc("POST /api/recurring/process", s.requireAuth(s.handleProcessRecurring))
	mux.HandleFunc("GET /api/recurring/{id}", s.requireAuth(s.handleGetRecurring))
	mux.HandleFunc("PATCH /api/recurring/{id}", s.requireAuth(s.handleUpdateRecurring))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.requireAuth(s.handleDeleteRecurring))

	mux.HandleFunc("GET /api/stats", s.requireAuth(s.handleStatsOverview))
	mux.HandleFunc("GET /api/stats/trend", s.requireAuth(s.handleStatsTrend))

	mux.HandleFunc("GET /api/categories/favorites", s.requireAuth(s.handleListFavorites))
	mux.HandleFunc("POST /api/categories/favorites", s.requireAuth(s.handleAddFavorite))
	mux.HandleFunc("PATCH /api/categories/favorites/{id}", s.requireAuth(s.handleUpdateFavorite))
	mux.HandleFunc("DELETE /api/categories/favorites/{id}", s.requireAuth(s.handleRemoveFavorite))
	mux.HandleFunc("GET /api/categories/all", s.requireAuth(s.handleAllCategories))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Route not found").Write(w)
	})
	return mux
}

// middleware wraps h, outermost first: panic recovery, tracing, request
// logger, CORS, security headers, suspicious request logging, rate limit.
func (s *Server) middleware(h http.Handler, opts Options) http.Handler {
	chain := []func(http.Handler) http.Handler{
		trace.Recovery(func(w http.ResponseWriter, r *http.Request) {
			InternalServerError().Write(w)
		}),
		s.tracer.Middleware,
		applog.Middleware(opts.Logger, func(r *http.Request) string {
			return trace.GetRequestID(r.Context())
		}),
		security.CORS(opts.CORSAllowedOrigins),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.detector.Middleware,
		s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", s.detector.ExtractClientIP(r),
				"method", r.Method,
				"url", r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "Too many requests, please try again later.").Write(w)
		}),
	}
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

// InvalidateStats drops the cached stats of one owner.
func (s *Server) InvalidateStats(ownerID string) {
	prefix := ownerID + ":"
	s.overviewCache.DeletePrefix(prefix)
	s.trendCache.DeletePrefix(prefix)
}

// PurgeStats drops every cached stats entry. Background processing that
// touches many owners calls it.
func (s *Server) PurgeStats() {
	s.overviewCache.Purge()
	s.trendCache.Purge()
}

// Metrics is a snapshot of the request counters kept by the middleware.
type Metrics struct {
	Requests           int64
	AvgResponseMicros  int64
	RateLimitHits      int64
	RateLimitClients   int64
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

func (s *Server) Metrics() Metrics {
	t := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	d := s.detector.GetMetrics()
	return Metrics{
		Requests:           t.TotalRequests,
		AvgResponseMicros:  t.AverageResponseTime,
		RateLimitHits:      rl.TotalHits,
		RateLimitClients:   rl.ClientCount,
		SuspiciousRequests: d.SuspiciousRequests,
		InvalidIPAttempts:  d.InvalidIPAttempts,
	}
}

// Shutdown gracefully shuts down the server and its background routines,
// logging the final request counters.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		m := s.Metrics()
		s.logger.InfoContext(ctx, "HTTP server stopping",
			"requests", m.Requests,
			"avg_response_us", m.AvgResponseMicros,
			"rate_limit_hits", m.RateLimitHits,
			"suspicious_requests", m.SuspiciousRequests,
			"invalid_ip_attempts", m.InvalidIPAttempts)
		s.limiter.Stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": s.environment,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			ErrorResponse(http.StatusServiceUnavailable, "Not ready").Write(w)
			return
		}
	}
	NewResponse().Message("ready").Write(w)
}

// respondError writes the envelope for err and logs unexpected failures.
func respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	b := ErrorFromDomain(err)
	if b.statusCode >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogRequestFailed(r.Context(), op, callerID(r), err)
	}
	b.Write(w)
}
