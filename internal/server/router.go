package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/QuocDuong16/headscale-dashboard/internal/cache"
	"github.com/QuocDuong16/headscale-dashboard/internal/config"
	"github.com/QuocDuong16/headscale-dashboard/internal/observability"
	"github.com/QuocDuong16/headscale-dashboard/internal/poller"
	"github.com/QuocDuong16/headscale-dashboard/internal/ratelimit"
	"github.com/QuocDuong16/headscale-dashboard/internal/web"
)

// Version is set at build time with -ldflags.
var Version = "0.1.0"

func Logger(cfg config.Config) *zerolog.Logger {
	return newLogger(os.Stderr, cfg)
}

func newLogger(w io.Writer, cfg config.Config) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(w).Level(cfg.LogLevel).With().Timestamp().Logger()
	return &logger
}

// Server wires the dashboard: UI pages, the headscale proxy and the
// supporting JSON endpoints.
type Server struct {
	cfg       config.Config
	logger    *zerolog.Logger
	metrics   *observability.Metrics
	caches    *cache.Store
	limiter   *ratelimit.Store
	monitor   *poller.Monitor
	jar       *cookieJar
	views     *web.Renderer
	proxyHTTP *http.Client
	started   time.Time
}

func New(cfg config.Config) (*Server, error) {
	views, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}
	logger := Logger(cfg)
	metrics := observability.NewMetrics()

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 30 * time.Second
	}
	caches := cache.NewStore(cfg.CacheStaleTime, map[string]time.Duration{
		"machines": poll,
		"routes":   poll,
		"health":   poll,
	}, sessionTTL)
	caches.OnLookup(metrics.ObserveCache)
	limiter := ratelimit.New()

	return &Server{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		caches:    caches,
		limiter:   limiter,
		monitor:   poller.NewMonitor(*logger, cfg, metrics, caches, limiter),
		jar:       newCookieJar(cfg),
		views:     views,
		proxyHTTP: &http.Client{Timeout: 60 * time.Second},
		started:   time.Now(),
	}, nil
}

// Start runs the background jobs until Stop.
func (s *Server) Start(ctx context.Context) error {
	return s.monitor.Start(ctx)
}

func (s *Server) Stop() {
	s.monitor.Stop()
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(zerologMiddleware(s.logger))
	r.Use(securityHeaders)

	// JSON endpoints used by scripts and the CLI
	r.Group(func(api chi.Router) {
		if s.cfg.CORSOrigin != "" {
			c := cors.New(cors.Options{
				AllowedOrigins:   strings.Split(s.cfg.CORSOrigin, ","),
				AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Authorization", "Content-Type"},
				AllowCredentials: false,
			})
			api.Use(c.Handler)
		}
		api.Get("/api/health", s.handleHealth)
		api.Get("/api/about", s.handleAbout)
		api.Get("/api/config", s.handleConfig)
		api.HandleFunc("/api/proxy/*", s.handleProxy)
	})

	if s.cfg.MetricsEnabled {
		var upstream observability.UpstreamMetricsClient
		if s.cfg.HeadscaleMetricsURL != "" {
			upstream = observability.HTTPMetricsSource{URL: s.cfg.HeadscaleMetricsURL, HTTP: &http.Client{Timeout: 5 * time.Second}}
		}
		r.Handle("/metrics", observability.NewCombinedMetricsHandler(s.metrics.Registry, upstream))
	}

	r.Handle("/static/*", web.Static())

	// Browser UI
	r.Group(func(ui chi.Router) {
		ui.Use(func(next http.Handler) http.Handler { return withSession(next, s.jar) })
		ui.Use(func(next http.Handler) http.Handler { return withLocale(next, s.jar, s.cfg.DefaultLocale) })
		ui.Use(requireCSRF)

		ui.Get("/login", s.handleLoginPage)
		ui.Post("/login", s.handleLogin)

		ui.Group(func(pr chi.Router) {
			pr.Use(requireToken)

			pr.Post("/logout", s.handleLogout)
			pr.Get("/", s.handleDashboard)

			pr.Get("/machines", s.handleMachines)
			pr.Post("/machines/register", s.handleRegisterMachine)
			pr.Post("/machines/backfill", s.handleBackfill)
			pr.Get("/machines/{id}", s.handleMachine)
			pr.Post("/machines/{id}/rename", s.handleRenameMachine)
			pr.Post("/machines/{id}/expire", s.handleExpireMachine)
			pr.Post("/machines/{id}/delete", s.handleDeleteMachine)
			pr.Post("/machines/{id}/tags", s.handleMachineTags)
			pr.Post("/machines/{id}/move", s.handleMoveMachine)
			pr.Post("/machines/{id}/routes", s.handleApproveRoutes)

			pr.Get("/users", s.handleUsers)
			pr.Post("/users", s.handleCreateUser)
			pr.Post("/users/{id}/rename", s.handleRenameUser)
			pr.Post("/users/{id}/delete", s.handleDeleteUser)

			pr.Get("/routes", s.handleRoutes)
			pr.Post("/routes/{action}", s.handleRouteAction)

			pr.Get("/preauth-keys", s.handlePreAuthKeys)
			pr.Post("/preauth-keys", s.handleCreatePreAuthKey)
			pr.Post("/preauth-keys/expire", s.handleExpirePreAuthKey)
			pr.Get("/preauth-keys/qr", s.handleRegistrationQR)

			pr.Get("/api-keys", s.handleAPIKeys)
			pr.Post("/api-keys", s.handleCreateAPIKey)
			pr.Post("/api-keys/{action}", s.handleAPIKeyAction)

			pr.Get("/acls", s.handleACLPage)
			pr.Post("/acls", s.handleACLSubmit)

			pr.Get("/setup", s.handleSetup)
		})
	})

	return r
}
