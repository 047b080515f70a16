package http

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"projecttracker/internal/auth"
	"projecttracker/internal/cache"
	applog "projecttracker/internal/log"
	"projecttracker/internal/middleware/metrics"
	"projecttracker/internal/middleware/ratelimit"
	"projecttracker/internal/middleware/security"
	"projecttracker/internal/middleware/trace"
	"projecttracker/internal/services"
)

// AuthSession is the sign-in state the API reports and clears.
type AuthSession interface {
	Status(ctx context.Context) (auth.Status, error)
	SignOut() error
}

// Deps are the services behind the API. Cache and Session may be nil.
type Deps struct {
	Projects *services.ProjectService
	Stats    *services.StatsService
	Exports  *services.ExportService
	Session  AuthSession
	Cache    *cache.Manager
	Logger   *applog.Logger

	// RequestsPerMinute limits each client; zero uses the limiter default.
	RequestsPerMinute int
	// Registry receives the HTTP metrics and backs /metrics. Nil uses the default registry.
	Registry *prometheus.Registry
	// TrustProxyHeaders reads the client IP from forwarding headers.
	TrustProxyHeaders bool
}

type Server struct {
	http.Server
	projects *services.ProjectService
	stats    *services.StatsService
	exports  *services.ExportService
	session  AuthSession
	cache    *cache.Manager
	logger   *applog.Logger
	started  time.Time
	clientIP func(*http.Request) string

	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	shutdownOnce    sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.Default(applog.ComponentHTTP)
	}

	clientIP := remoteIP
	if deps.TrustProxyHeaders {
		clientIP = forwardedIP
	}

	s := &Server{
		projects:        deps.Projects,
		stats:           deps.Stats,
		exports:         deps.Exports,
		session:         deps.Session,
		cache:           deps.Cache,
		logger:          logger.WithComponent(applog.ComponentHTTP),
		started:         time.Now(),
		clientIP:        clientIP,
		rateLimiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RequestsPerMinute}),
		traceMiddleware: trace.NewMiddleware(clientIP),
	}

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if deps.Registry != nil {
		reg, gatherer = deps.Registry, deps.Registry
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("POST /api/projects/order", s.handleReorderProjects)
	mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	mux.HandleFunc("PUT /api/projects/{id}", s.handleUpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.handleDeleteProject)
	mux.HandleFunc("GET /api/projects/{id}/totals", s.handleProjectTotals)
	mux.HandleFunc("GET /api/projects/{id}/export", s.handleExportWorkbook)
	mux.HandleFunc("POST /api/projects/{id}/cloud-export", s.handleCloudExport)
	mux.HandleFunc("GET /api/projects/{id}/{kind}", s.handleListEntries)
	mux.HandleFunc("POST /api/projects/{id}/{kind}", s.handleCreateEntry)
	mux.HandleFunc("PUT /api/{kind}/{entryID}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /api/{kind}/{entryID}", s.handleDeleteEntry)

	mux.HandleFunc("GET /api/stats/day", s.handleDayStats)
	mux.HandleFunc("GET /api/stats/month", s.handleMonthStats)
	mux.HandleFunc("GET /api/stats/trend", s.handleTrendStats)
	mux.HandleFunc("GET /api/stats/dashboard", s.handleDashboard)

	mux.HandleFunc("POST /api/backup", s.handleBackup)
	mux.HandleFunc("GET /api/auth/status", s.handleAuthStatus)
	mux.HandleFunc("POST /api/auth/signout", s.handleSignOut)

	// metrics sits directly on the mux so it sees the matched pattern.
	var h http.Handler = metrics.New(reg).Middleware(mux)
	h = s.rateLimiter.Middleware(clientIP, s.onRateLimit)(h)
	h = applog.AccessLog(clientIP)(h)
	h = s.traceMiddleware.Middleware(h)
	h = applog.Middleware(s.logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		if s.cache != nil {
			s.cache.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.clientIP(r),
		applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded", RequestID: trace.GetRequestID(r.Context())})
}

// forwardedIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func forwardedIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return remoteIP(r)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
