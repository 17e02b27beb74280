// Package server wires configuration, storage, services and handlers into one
// chi router and runs it with graceful shutdown.
//
// Routes:
//
//	GET    /healthz                    store ping
//	GET    /metrics                    Prometheus exposition (optional basic auth)
//	GET    /auth/{provider}/login      OAuth redirect
//	GET    /auth/{provider}/callback   OAuth callback, sets the session cookie
//	POST   /auth/logout
//	GET    /api/polls                  optional session
//	GET    /api/me                     session required from here on
//	POST   /api/polls
//	DELETE /api/polls/{pollID}
//	POST   /api/polls/{pollID}/votes
//	GET    /api/members
//	GET    /api/profile
//	DELETE /api/profile
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/pollboard/internal/auth"
	"github.com/sakif/pollboard/internal/config"
	"github.com/sakif/pollboard/internal/handler"
	"github.com/sakif/pollboard/internal/metrics"
	"github.com/sakif/pollboard/internal/middleware"
	"github.com/sakif/pollboard/internal/repository"
	"github.com/sakif/pollboard/internal/service"
)

// Deps are the long-lived resources the server does not own. The caller
// opens the store and closes it after Start returns.
type Deps struct {
	Store repository.Store
	// Metrics and Gatherer may be nil, which disables instrumentation and
	// the /metrics route.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Version  string
	// Providers overrides the OAuth providers built from config. Tests use it.
	Providers []auth.Provider
}

type Server struct {
	router  *chi.Mux
	config  *config.Config
	deps    Deps
	logger  *slog.Logger
	sweeper *service.Sweeper
}

func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("server: store is required")
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("server: token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
	}

	store := deps.Store
	polls := service.NewPollService(store, store, store, deps.Metrics, logger)
	s.sweeper = service.NewSweeper(polls, service.SweeperConfig{
		MaxAge:     cfg.Retention.MaxAge,
		Interval:   cfg.Retention.Interval,
		RunOnStart: cfg.Retention.SweepOnStart,
	}, logger)

	providers := deps.Providers
	if providers == nil {
		providers = buildProviders(cfg.Auth)
	}
	if len(providers) == 0 {
		logger.Warn("no OAuth provider configured, sign-in is unavailable")
	}

	s.setupRoutes(routeDeps{
		tokens:   tokens,
		authH:    handler.NewAuthHandler(providers, service.NewAuthService(store, tokens, logger), tokens, cfg.Server.SecureCookies, logger),
		pollH:    handler.NewPollHandler(polls, service.NewVoteService(store, store, store, deps.Metrics, logger), logger),
		memberH:  handler.NewMemberHandler(service.NewMemberService(store, logger)),
		profileH: handler.NewProfileHandler(service.NewProfileService(store, store, store, store, deps.Metrics, logger), cfg.Server.SecureCookies),
		healthH:  handler.NewHealthHandler(store, deps.Version, logger),
	})

	return s, nil
}

func buildProviders(cfg config.AuthConfig) []auth.Provider {
	var providers []auth.Provider
	for _, name := range cfg.AllowedProviders() {
		switch name {
		case "google":
			providers = append(providers, auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL))
		case "github":
			providers = append(providers, auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL))
		}
	}
	return providers
}

type routeDeps struct {
	tokens   *auth.TokenService
	authH    *handler.AuthHandler
	pollH    *handler.PollHandler
	memberH  *handler.MemberHandler
	profileH *handler.ProfileHandler
	healthH  *handler.HealthHandler
}

// setupRoutes registers middleware and routes. Order matters: RequestID must
// run before the logger so every line carries the id, and Recoverer sits
// inside the logger so a panic is still logged as a 500.
func (s *Server) setupRoutes(d routeDeps) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(s.deps.Metrics))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", d.healthH.HandleHealth)

	if s.config.Metrics.Enabled && s.deps.Gatherer != nil {
		metricsHandler := promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})
		s.router.With(auth.BasicAuth(
			auth.NewPasswordService(),
			"metrics",
			s.config.Metrics.Username,
			s.config.Metrics.PasswordHash,
		)).Handle("/metrics", metricsHandler)
	}

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/{provider}/login", d.authH.HandleLogin)
		r.Get("/{provider}/callback", d.authH.HandleCallback)
		r.Post("/logout", d.authH.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.With(auth.OptionalAuth(d.tokens)).Get("/polls", d.pollH.HandleList)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(d.tokens))
			r.Get("/me", d.authH.HandleMe)
			r.Post("/polls", d.pollH.HandleCreate)
			r.Delete("/polls/{pollID}", d.pollH.HandleDelete)
			r.Post("/polls/{pollID}/votes", d.pollH.HandleVote)
			r.Get("/members", d.memberH.HandleList)
			r.Get("/profile", d.profileH.HandleGet)
			r.Delete("/profile", d.profileH.HandleDelete)
		})
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP and runs the retention sweeper until ctx is cancelled,
// then drains in-flight requests within the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.sweeper.Start()
	defer s.sweeper.Stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("driver", s.config.Database.Driver),
			slog.String("version", s.deps.Version),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.config.Server.ShutdownTimeout > 0 {
		return s.config.Server.ShutdownTimeout
	}
	return 30 * time.Second
}
