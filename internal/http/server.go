package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/insights"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
)

// InsightsProvider turns a totals summary into advisory text.
type InsightsProvider interface {
	Insights(ctx context.Context, summary core.Summary) (insights.Result, error)
}

// VoiceControl turns background voice capture on and off at runtime.
type VoiceControl interface {
	StartListening(ctx context.Context) error
	StopListening(ctx context.Context) error
	Listening() bool
}

// Options carries the optional collaborators of the API. A nil Insights,
// Exporter or Voice makes the matching endpoint answer 503.
type Options struct {
	Insights          InsightsProvider
	Exporter          export.Exporter
	Voice             VoiceControl
	Logger            *applog.Logger
	RequestsPerMinute int
	// Clock stamps reports and exports. Defaults to time.Now.
	Clock func() time.Time
}

type Server struct {
	http.Server
	svc         *services.ExpenseService
	insights    InsightsProvider
	exporter    export.Exporter
	voice       VoiceControl
	logger      *applog.Logger
	now         func() time.Time
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.ExpenseService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	s := &Server{
		svc:         svc,
		insights:    opts.Insights,
		exporter:    opts.Exporter,
		voice:       opts.Voice,
		logger:      logger,
		now:         now,
		rateLimiter: newRateLimiter(opts.RequestsPerMinute),
		metrics:     &securityMetrics{},
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(applog.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.withSecurity)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", s.handleCategories)

		r.Post("/expenses", s.handleCreateExpense)
		r.Get("/expenses/{category}", s.handleListEntries)
		r.Post("/receipts", s.handleUploadReceipt)
		r.Post("/commands", s.handleCommand)

		r.Get("/totals", s.handleTotals)
		r.Get("/summary", s.handleSummary)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/alerts", s.handleAlerts)
		r.Put("/departments/{department}/limit", s.handleSetDepartmentLimit)

		r.Post("/insights", s.handleInsights)
		r.Post("/exports", s.handleExport)
		r.Get("/report", s.handleReport)
		r.Get("/qr", s.handleQR)

		r.Get("/voice", s.handleVoiceStatus)
		r.Post("/voice/start", s.handleVoiceStart)
		r.Post("/voice/stop", s.handleVoiceStop)

		r.Get("/security", s.handleSecurityStats)
	})

	return r
}

// Shutdown stops the rate limiter cleanup and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().Text("ok").Write(w)
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	NewResponse().Text("ready").Write(w)
}
