// Package server wires the application together: database, session
// registry, services, handlers, middleware, and routes. It is the
// composition root — nothing else in the codebase constructs more than its
// own direct dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ma-central/macsvc/internal/auth"
	"github.com/ma-central/macsvc/internal/config"
	"github.com/ma-central/macsvc/internal/handler"
	"github.com/ma-central/macsvc/internal/middleware"
	sqliteRepo "github.com/ma-central/macsvc/internal/repository/sqlite"
	"github.com/ma-central/macsvc/internal/service"
	"github.com/ma-central/macsvc/internal/session"
)

// janitorInterval is how often expired sessions are swept. Resolve also
// drops expired entries lazily, so this only bounds memory, not security.
const janitorInterval = 10 * time.Minute

// appleAppSiteAssociation lets the iOS companion app claim universal links
// under this host. Served verbatim at the well-known path.
const appleAppSiteAssociation = `{
  "applinks": {
    "apps": [],
    "details": [
      {
        "appID": "MACSVC0000.com.macsvc.campus",
        "paths": ["/api/v1/passes/*"]
      }
    ]
  }
}`

// Server owns the router, the database handle, and the session registry.
// The database is closed when Start returns.
type Server struct {
	router   *chi.Mux
	cfg      config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions *session.Registry
}

// New assembles the full dependency graph. Each layer receives only the
// interfaces it needs: services get repositories, handlers get services.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		logger:   logger,
		db:       db,
		sessions: session.NewRegistry(cfg.SessionTTL),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Pass tokens are optional: without a secret the wallet download falls
	// back to session-cookie auth only.
	var passTokens *auth.PassTokenService
	if s.cfg.PassTokenSecret != "" {
		var err error
		passTokens, err = auth.NewPassTokenService(s.cfg.PassTokenSecret, s.cfg.PassTokenTTL)
		if err != nil {
			return fmt.Errorf("creating pass token service: %w", err)
		}
	} else {
		s.logger.Warn("PASS_TOKEN_SECRET not set; wallet pass downloads require a session cookie")
	}

	passwords := auth.NewPasswordService()

	ledgerSvc := service.NewLedgerService(s.db, s.logger)
	catalogSvc := service.NewCatalogService(s.db.Events(), s.logger)
	authSvc := service.NewAuthService(s.db, passwords, s.logger)
	ticketSvc := service.NewTicketService(catalogSvc, ledgerSvc, s.db.Tickets(), s.db, s.logger)

	authHandler := handler.NewAuthHandler(authSvc, s.sessions, s.cfg.SessionTTL, s.logger)
	boardHandler := handler.NewBoardHandler(ledgerSvc, s.logger)
	eventHandler := handler.NewEventHandler(catalogSvc, s.logger)
	ticketHandler := handler.NewTicketHandler(ticketSvc, passTokens, s.logger)

	s.router.Get("/apple-app-site-association", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(appleAppSiteAssociation))
	})
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		// Public: account creation, login, and catalog reads.
		r.Post("/auth/create", authHandler.HandleCreate)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Get("/auth/logout", authHandler.HandleLogout)

		r.Get("/board/lifetime/top", boardHandler.HandleLifetimeTop)

		r.Get("/events/all", eventHandler.HandleAll)
		r.Get("/events/future", eventHandler.HandleFuture)
		r.Get("/events/{event_id}", eventHandler.HandleGetByID)

		// Pass download authenticates per-request: session or signed token.
		r.With(auth.OptionalSession(s.sessions)).
			Get("/passes/{ticket_id}", ticketHandler.HandlePass)

		// Session required.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(s.sessions))

			r.Get("/auth/whoami", authHandler.HandleWhoami)
			r.Post("/auth/delete", authHandler.HandleDelete)

			r.Get("/tickets/mine", ticketHandler.HandleMine)
			r.Get("/tickets/mine/valid", ticketHandler.HandleMineValid)

			// Admin only.
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin())

				r.Get("/tickets_create/{user_id}/{event_id}", ticketHandler.HandleCreateFor)
				r.Post("/tickets/redeem/{ticket_id}", ticketHandler.HandleRedeem)

				r.Post("/manage/events", eventHandler.HandleManageCreate)
				r.Delete("/manage/events/{event_id}", eventHandler.HandleManageDelete)
			})
		})
	})

	return nil
}

// Start runs the HTTP listener and the session janitor until a shutdown
// signal arrives, then drains in-flight requests and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.String("addr", s.cfg.Addr),
			slog.String("database", s.cfg.DBPath),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := s.sessions.RunJanitor(gctx, janitorInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("server stopped gracefully")
	return nil
}
