package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"expensetrack/internal/core"
	applog "expensetrack/internal/log"
	"expensetrack/internal/middleware/ratelimit"
	"expensetrack/internal/middleware/security"
	"expensetrack/internal/middleware/trace"
	"expensetrack/internal/report"
	"expensetrack/internal/services"
	appweb "expensetrack/web"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Server struct {
	http.Server
	templates *template.Template
	svc       *services.ExpenseService
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	clientIP  *security.ClientIP
	checks    []ReadinessCheck
	now       func() time.Time
	logger    *applog.Logger

	rateLimitPerMinute int
	shutdownOnce       sync.Once
}

type Option func(*Server)

// WithRateLimit limits each client IP to perMinute requests.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimitPerMinute = perMinute }
}

// WithReadinessCheck adds a dependency to /readyz.
func WithReadinessCheck(name string, check func(ctx context.Context) error) Option {
	return func(s *Server) { s.checks = append(s.checks, ReadinessCheck{Name: name, Check: check}) }
}

// WithClock replaces time.Now, which decides Today/Yesterday labels and
// the default summary window.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(addr string, svc *services.ExpenseService, opts ...Option) (*Server, error) {
	s := &Server{
		svc:                svc,
		clientIP:           security.NewClientIP(),
		now:                time.Now,
		rateLimitPerMinute: ratelimit.DefaultConfig().RequestsPerMinute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(applog.ComponentHTTP)

	t, err := template.New("").Funcs(s.templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: s.rateLimitPerMinute})
	s.tracer = trace.NewMiddleware(s.logger, s.clientIP.Extract)

	app := http.NewServeMux()
	app.HandleFunc("/{$}", s.handleIndex)
	app.HandleFunc("/summary", s.handleSummaryPage)
	app.HandleFunc("/ui/summary", s.handleSummaryPartial)
	app.HandleFunc("/ui/expenses", s.handleExpensesPartial)
	app.HandleFunc("/expenses", s.handleCreateExpense)
	app.HandleFunc("/expenses/update", s.handleUpdateExpense)
	app.HandleFunc("/expenses/delete", s.handleDeleteExpense)
	app.HandleFunc("/api/expenses", s.handleAPIExpenses)
	app.HandleFunc("/api/summary", s.handleAPISummary)
	app.HandleFunc("/api/breakdown", s.handleAPIBreakdown)
	app.HandleFunc("/export.csv", s.handleExportCSV)

	root := http.NewServeMux()
	root.HandleFunc("/healthz", handleHealth)
	root.HandleFunc("/readyz", s.handleReady)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		root.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}
	root.Handle("/", s.limiter.Middleware(s.clientIP.Extract, s.onRateLimit)(app))

	s.Server = http.Server{
		Addr:              addr,
		Handler: s.tracer.Middleware(
			applog.ComponentMiddleware(applog.ComponentHTTP)(
				security.Headers(security.DefaultHeadersConfig())(root))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)

		m := s.tracer.GetMetrics()
		s.logger.Info("HTTP server stopped",
			applog.FieldOperation, applog.OpShutdown,
			"total_requests", m.TotalRequests,
			"avg_response_ms", m.AverageResponseTime.Milliseconds(),
			"rate_limited", s.limiter.Rejected(),
			"active_clients", s.limiter.ActiveClients())
	})
	return shutdownErr
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"amount": formatAmount,
		"icon":   categoryIcon,
		"displayDate": func(date string) string {
			return core.DisplayDateString(date, s.svc.Location())
		},
		"details": report.DetailByDay,
		"barStyle": func(percent float64, color string) template.CSS {
			return template.CSS(fmt.Sprintf("width: %.1f%%; background: %s", percent, color))
		},
		"swatch": func(color string) template.CSS {
			return template.CSS("background: " + color)
		},
	}
}

// render executes a template into a buffer so a failing template never
// produces a half-written page.
func (s *Server) render(ctx context.Context, name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.NewStructuredLogger(s.log(ctx)).LogError(ctx, "Template execution failed", err,
			applog.ComponentTemplate, applog.OpRender, applog.LogFields{"template": name})
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, name string, data any) {
	body, err := s.render(r.Context(), name, data)
	if err != nil {
		InternalServerError("Rendering failed (request " + trace.RequestID(r) + ")").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

func (s *Server) log(ctx context.Context) *applog.Logger {
	if l, ok := ctx.Value(applog.LoggerContextKey).(*applog.Logger); ok {
		return l
	}
	return s.logger
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.log(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.clientIP.Extract(r), applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, try again in a minute").
		TriggerErrorNotification("Too many requests").
		Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			s.log(ctx).WarnContext(ctx, "Readiness check failed", "check", c.Name, applog.FieldError, err)
			http.Error(w, c.Name+" not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
