package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/saltinventory/minion-inventory/pkg/inventory"
	"github.com/saltinventory/minion-inventory/pkg/server/middleware"
)

// Auditor applies audit reports
type Auditor interface {
	Audit(ctx context.Context, ts string, props inventory.Properties, changed bool) inventory.AuditReport
}

// PresenceRecorder applies presence signals
type PresenceRecorder interface {
	Present(ctx context.Context, ts string, minions []string) inventory.PresenceReport
}

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Router   *mux.Router
	Auditor  Auditor
	Presence PresenceRecorder
	Health   HealthChecker
	Logger   *zap.Logger

	// JWTMiddleware is nil when no API token secret is configured
	JWTMiddleware *middleware.JWTAuthenticator

	srv *http.Server
}

type Options struct {
	Host           string
	Port           string
	TokenSecret    string
	RequestTimeout time.Duration
}

func NewServer(
	auditor Auditor,
	presence PresenceRecorder,
	health HealthChecker,
	logger *zap.Logger,
	opts Options,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	router := mux.NewRouter().UseEncodedPath()
	router.Use(middleware.RequestID)

	var jwtAuth *middleware.JWTAuthenticator
	if opts.TokenSecret != "" {
		jwtAuth = middleware.NewJWTAuthenticator([]byte(opts.TokenSecret))
	}

	stdLog := zap.NewStdLog(logger.Named("http"))
	handler := handlers.RecoveryHandler(
		handlers.RecoveryLogger(stdLog),
		handlers.PrintRecoveryStack(true),
	)(router)

	srv := &http.Server{
		Handler:           handlers.LoggingHandler(stdLog.Writer(), handler),
		Addr:              net.JoinHostPort(opts.Host, opts.Port),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       time.Minute,
		// Audits of large package lists hold the connection for the whole reconcile
		WriteTimeout: timeout,
	}

	return &Server{
		Router:        router,
		Auditor:       auditor,
		Presence:      presence,
		Health:        health,
		Logger:        logger,
		JWTMiddleware: jwtAuth,
		srv:           srv,
	}
}

// Protect wraps h with token authentication when it is enabled
func (s *Server) Protect(h http.Handler) http.Handler {
	if s.JWTMiddleware == nil {
		return h
	}
	return s.JWTMiddleware.Middleware(h)
}

// Handler returns the full handler chain, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.Logger.Info("listening", zap.String("address", s.srv.Addr), zap.Bool("auth", s.JWTMiddleware != nil))
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Serve is Start on an existing listener
func (s *Server) Serve(l net.Listener) error {
	err := s.srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
