// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the "composition root": main.go creates config and a logger, and
// everything else — database, services, handlers, middleware — is wired
// together here in one place rather than scattered across the codebase.
//
// DEPENDENCY CHAIN:
//
//	sqlite.DB → AuthService/VehicleService/RecordService → handlers → routes
//
// Handlers never touch the database; services never touch HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/carkeeper/internal/auth"
	"github.com/sakif/carkeeper/internal/handler"
	"github.com/sakif/carkeeper/internal/middleware"
	sqliteRepo "github.com/sakif/carkeeper/internal/repository/sqlite"
	"github.com/sakif/carkeeper/internal/service"
)

// Config holds server configuration. A struct (instead of a parameter list)
// means new options don't ripple through function signatures.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
	Version   string
}

// Server owns the router, the database connection, and the config. The
// database is closed during graceful shutdown — skipping that can leave the
// SQLite WAL unflushed.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates the server and wires the full dependency graph.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo to avoid confusion with the
// sqlite driver package.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and the route table.
//
// ROUTE STRUCTURE:
//
//	GET    /                     → status page (HTML, public)
//	POST   /register             → create account (public)
//	POST   /login                → credentials in, {user, token} out (public)
//	GET    /vehicles?user_id=    → list vehicles         (auth)
//	POST   /vehicles             → register vehicle      (auth)
//	PUT    /vehicles/{id}        → update vehicle        (auth)
//	DELETE /vehicles/{id}        → delete vehicle + history (auth)
//	GET    /summary/{user_id}    → spending aggregate    (auth)
//	GET    /records?vehicle_id=  → service history       (auth)
//	POST   /records              → log service record    (auth)
//	PUT    /records/{id}         → update record         (auth)
//	DELETE /records/{id}         → delete record         (auth)
//
// MIDDLEWARE ORDER MATTERS — it executes in the order added:
// RequestID first (so the logger can see it), then RealIP, Recoverer, and
// our request logger on every route; RequireAuth only on the protected group.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	vehicleService := service.NewVehicleService(s.db, s.logger)
	recordService := service.NewRecordService(s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	vehicleHandler := handler.NewVehicleHandler(vehicleService, s.logger)
	recordHandler := handler.NewRecordHandler(recordService, s.logger)

	statusHandler, err := handler.NewStatusHandler(s.config.Version, s.logger)
	if err != nil {
		return fmt.Errorf("creating status handler: %w", err)
	}
	s.router.Get("/", statusHandler.HandleStatus)

	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Post("/login", authHandler.HandleLogin)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/vehicles", vehicleHandler.HandleList)
		r.Post("/vehicles", vehicleHandler.HandleCreate)
		r.Put("/vehicles/{id}", vehicleHandler.HandleUpdate)
		r.Delete("/vehicles/{id}", vehicleHandler.HandleDelete)

		r.Get("/summary/{user_id}", vehicleHandler.HandleSummary)

		r.Get("/records", recordHandler.HandleList)
		r.Post("/records", recordHandler.HandleCreate)
		r.Put("/records/{id}", recordHandler.HandleUpdate)
		r.Delete("/records/{id}", recordHandler.HandleDelete)
	})

	return nil
}

// Router exposes the configured router, mainly so tests can mount the whole
// app on an httptest.Server without opening a real port.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the server's resources (the database connection) without
// starting the HTTP listener. Start() does this itself; Close exists for
// callers that used Router() directly.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the HTTP server and blocks until shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new connections
// 2. Wait for in-flight requests to finish (30s ceiling)
// 3. Close the database connection (flushes WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
