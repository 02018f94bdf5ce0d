package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pnljournal/internal/aggregate"
	"pnljournal/internal/core"
	applog "pnljournal/internal/log"
	"pnljournal/internal/middleware/ratelimit"
	"pnljournal/internal/middleware/security"
	"pnljournal/internal/middleware/trace"
	"pnljournal/internal/services"
	appweb "pnljournal/web"
)

// Journal is the application surface the handlers need.
// *services.JournalService implements it.
type Journal interface {
	Dashboard(ctx context.Context, userID string, ym core.YearMonth, window aggregate.Window) (services.Dashboard, error)
	MonthSummary(ctx context.Context, userID string, ym core.YearMonth) (services.Dashboard, error)
	Series(ctx context.Context, userID string, window aggregate.Window) (aggregate.Series, error)

	GetEntry(ctx context.Context, userID string, date core.Date) (core.Entry, error)
	SaveEntry(ctx context.Context, e core.Entry) (core.Entry, error)
	DeleteEntry(ctx context.Context, userID string, date core.Date) error
	ExportEntries(ctx context.Context, userID string) ([]core.Entry, error)

	SetGoal(ctx context.Context, g core.MonthlyGoal) error
	ClearGoal(ctx context.Context, userID string, ym core.YearMonth) error
	ListGoals(ctx context.Context, userID string) ([]core.MonthlyGoal, error)

	CreateEvent(ctx context.Context, e core.CalendarEvent) (core.CalendarEvent, error)
	UpdateEvent(ctx context.Context, userID string, id uuid.UUID, patch services.EventPatch) (core.CalendarEvent, error)
	DeleteEvent(ctx context.Context, userID string, id uuid.UUID) error
	GetEvent(ctx context.Context, userID string, id uuid.UUID) (core.CalendarEvent, error)
	ListEventsByMonth(ctx context.Context, userID string, ym core.YearMonth) ([]core.CalendarEvent, error)
	ListEventsByDate(ctx context.Context, userID string, date core.Date) ([]core.CalendarEvent, error)

	Ping(ctx context.Context) error
}

var _ Journal = (*services.JournalService)(nil)

type Options struct {
	DefaultUserID      string
	RateLimitPerMinute int
	// TrustedProxies are CIDRs, beyond the private ranges, whose forwarding
	// headers name the client.
	TrustedProxies []string
	Logger         *applog.Logger
}

type Server struct {
	http.Server
	templates   *template.Template
	journal     Journal
	logger      *applog.Logger
	defaultUser string
	now         func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime         time.Time
	entriesSaved   int64
	entriesDeleted int64
	goalsSaved     int64
	eventsChanged  int64
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, journal Journal, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	defaultUser := strings.TrimSpace(opts.DefaultUserID)
	if defaultUser == "" {
		defaultUser = "local"
	}

	s := &Server{
		journal:          journal,
		logger:           logger,
		defaultUser:      defaultUser,
		now:              time.Now,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/month", s.handleMonthPanel)
	mux.HandleFunc("GET /ui/entry", s.handleEntryForm)

	mux.HandleFunc("POST /entries", s.handleSaveEntry)
	mux.HandleFunc("DELETE /entries/{date}", s.handleDeleteEntry)
	mux.HandleFunc("POST /goals", s.handleSaveGoal)
	mux.HandleFunc("DELETE /goals/{year}/{month}", s.handleClearGoal)

	mux.HandleFunc("GET /api/months/{year}/{month}", s.handleAPIMonth)
	mux.HandleFunc("GET /api/series", s.handleAPISeries)
	mux.HandleFunc("GET /api/goals", s.handleAPIGoals)
	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)

	mux.HandleFunc("GET /export/entries.csv", s.handleExportCSV)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited,
		http.MethodPost, http.MethodPut, http.MethodDelete)(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}
	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)

	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	TooManyRequestsError().Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
