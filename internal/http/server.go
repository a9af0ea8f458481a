package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"projex/internal/auth"
	"projex/internal/core"
	applog "projex/internal/log"
	"projex/internal/middleware/ratelimit"
	"projex/internal/middleware/security"
	"projex/internal/middleware/trace"
	"projex/internal/services"
)

// TokenVerifier turns a bearer token into verified claims.
type TokenVerifier interface {
	Verify(raw string) (*auth.Claims, error)
}

// Deps are the collaborators the transport calls into.
type Deps struct {
	Queries  *services.QueryService
	Reports  *services.ReportService
	Projects *services.ProjectService
	Expenses *services.ExpenseService
	Users    *services.UserService
	Tokens   TokenVerifier

	// Ready reports whether the store is reachable; nil means always ready.
	Ready func(context.Context) error

	Logger      *applog.Logger
	Registry    *prometheus.Registry
	ClientIP    *security.ClientIP
	AuthLimiter *ratelimit.Limiter
}

type Server struct {
	http.Server
	deps   Deps
	router *mux.Router
	now    func() time.Time

	stopBackground context.CancelFunc
	shutdownOnce   sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if deps.ClientIP == nil {
		deps.ClientIP, _ = security.NewClientIP(nil)
	}
	if deps.AuthLimiter == nil {
		deps.AuthLimiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	s := &Server{deps: deps, router: mux.NewRouter(), now: time.Now}
	s.routes()

	tracer := trace.NewMiddleware(
		deps.Logger.WithComponent(applog.ComponentHTTP),
		trace.NewMetrics(deps.Registry),
		deps.ClientIP.Extract,
		s.routeName,
	)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	registerLimiterMetrics(deps.Registry, deps.AuthLimiter)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           headers.Middleware(tracer.Middleware(s.router)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	go deps.AuthLimiter.Run(ctx, 5*time.Minute)

	return s
}

func (s *Server) routes() {
	r := s.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "Not Found - "+r.URL.Path).Write(w, r)
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Method Not Allowed").Write(w, r)
	})
	r.MethodNotAllowedHandler = methodNotAllowed

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Subrouters report method mismatches on their own; without a handler
	// the parent falls through to NotFound.
	api := r.PathPrefix("/api").Subrouter()
	api.MethodNotAllowedHandler = methodNotAllowed

	authAPI := api.PathPrefix("/auth").Subrouter()
	authAPI.MethodNotAllowedHandler = methodNotAllowed
	authAPI.Use(s.deps.AuthLimiter.Middleware(s.deps.ClientIP.Extract, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests, please try again later").Write(w, r)
	}))
	authAPI.Use(applog.ComponentMiddleware(applog.ComponentAuth))
	authAPI.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	authAPI.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	authAPI.HandleFunc("/me", s.protect(s.handleMe)).Methods(http.MethodGet)
	authAPI.HandleFunc("/me", s.protect(s.handleUpdateMe)).Methods(http.MethodPut)
	authAPI.HandleFunc("/change-password", s.protect(s.handleChangePassword)).Methods(http.MethodPost)

	projects := api.PathPrefix("/projects").Subrouter()
	projects.MethodNotAllowedHandler = methodNotAllowed
	projects.Use(applog.ComponentMiddleware(applog.ComponentProject))
	projects.HandleFunc("/landing", s.handleLanding).Methods(http.MethodGet)
	projects.HandleFunc("/summary", s.protect(s.handleProjectsSummary)).Methods(http.MethodGet)
	projects.HandleFunc("", s.protect(s.handleListProjects)).Methods(http.MethodGet)
	projects.HandleFunc("", s.protect(s.handleCreateProject)).Methods(http.MethodPost)
	projects.HandleFunc("/{id:[0-9]+}", s.protect(s.handleGetProject)).Methods(http.MethodGet)
	projects.HandleFunc("/{id:[0-9]+}", s.protect(s.handleUpdateProject)).Methods(http.MethodPut)
	projects.HandleFunc("/{id:[0-9]+}", s.protect(s.handleDeleteProject)).Methods(http.MethodDelete)

	expenses := api.PathPrefix("/expenses").Subrouter()
	expenses.MethodNotAllowedHandler = methodNotAllowed
	expenses.Use(applog.ComponentMiddleware(applog.ComponentExpense))
	expenses.HandleFunc("/summary", s.protect(s.handleGlobalSummary)).Methods(http.MethodGet)
	expenses.HandleFunc("/summary/{projectId:[0-9]+}", s.protect(s.handleCategorySummary)).Methods(http.MethodGet)
	expenses.HandleFunc("/project/{projectId:[0-9]+}", s.protect(s.handleProjectExpenses)).Methods(http.MethodGet)
	expenses.HandleFunc("/project/{projectId:[0-9]+}/monthly", s.protect(s.handleMonthly)).Methods(http.MethodGet)
	expenses.HandleFunc("/project/{projectId:[0-9]+}/annual", s.protect(s.handleAnnual)).Methods(http.MethodGet)
	expenses.HandleFunc("", s.protect(s.handleListExpenses)).Methods(http.MethodGet)
	expenses.HandleFunc("", s.protect(s.handleCreateExpense)).Methods(http.MethodPost)
	expenses.HandleFunc("/{id:[0-9]+}", s.protect(s.handleGetExpense)).Methods(http.MethodGet)
	expenses.HandleFunc("/{id:[0-9]+}", s.protect(s.handleUpdateExpense)).Methods(http.MethodPut)
	expenses.HandleFunc("/{id:[0-9]+}", s.protect(s.handleDeleteExpense)).Methods(http.MethodDelete)

	dashboard := api.PathPrefix("/dashboard").Subrouter()
	dashboard.MethodNotAllowedHandler = methodNotAllowed
	dashboard.Use(applog.ComponentMiddleware(applog.ComponentReport))
	dashboard.HandleFunc("", s.protect(s.handleDashboardStats)).Methods(http.MethodGet)
	dashboard.HandleFunc("/stats", s.protect(s.handleDashboardStats)).Methods(http.MethodGet)
	dashboard.HandleFunc("/project-status", s.protect(s.handleProjectStatus)).Methods(http.MethodGet)
}

func registerLimiterMetrics(reg prometheus.Registerer, l *ratelimit.Limiter) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "projex_auth_rate_limit_clients",
			Help: "Clients with an open auth rate limit window",
		}, func() float64 { return float64(l.ActiveClients()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "projex_auth_rate_limited_total",
			Help: "Auth requests refused by the rate limiter",
		}, func() float64 { return float64(l.Rejected()) }),
	)
}

// routeName returns the template of the matched route, keeping metric
// labels bounded.
func (s *Server) routeName(r *http.Request) string {
	var match mux.RouteMatch
	if !s.router.Match(r, &match) || match.Route == nil {
		return ""
	}
	tpl, err := match.Route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return tpl
}

// identityHandler is a handler that runs for an authenticated caller.
type identityHandler func(w http.ResponseWriter, r *http.Request, id *core.Identity)

// protect resolves the bearer token to the caller's current identity.
func (s *Server) protect(next identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := auth.BearerToken(r)
		if raw == "" {
			writeError(w, r, core.NotAuthorizedf("Not authorized, no token"))
			return
		}
		claims, err := s.deps.Tokens.Verify(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		id, err := s.deps.Users.Identity(r.Context(), claims.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := r.Context()
		logger := applog.FromContext(ctx).WithUser(id.ID, string(id.Role))
		r = r.WithContext(applog.NewContext(ctx, logger))
		next(w, r, &id)
	}
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopBackground != nil {
			s.stopBackground()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
