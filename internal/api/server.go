// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

/*
Package api assembles the Parley HTTP surface: the chi router, the shared
middleware chain, the health checks and the /api/v1 resource groups.

Order of the chain, outermost first:

	RequestID → StructuredLogger → Timeout → RateLimiter → PanicRecovery → CORS → Authenticate → CleanPath

CORS sits before authentication so browser preflights never need a token.
Authentication only attaches claims; each route group decides whether they
are required.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/parley-chat/parley/internal/platform/config"
	"github.com/parley-chat/parley/internal/platform/constants"
	"github.com/parley-chat/parley/internal/platform/middleware"
	"github.com/parley-chat/parley/internal/users/account"
)

// Server owns the router and the [http.Server] listening on SERVER_PORT.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	log        *slog.Logger
}

// Handlers are the endpoint implementations mounted by [NewServer].
type Handlers struct {
	// Liveness answers /health while the process is up.
	Liveness http.HandlerFunc

	// Readiness answers /ready once Postgres and Redis respond.
	Readiness http.HandlerFunc

	Account *account.Handler
}

// Guards are the request filters shared by every route.
type Guards struct {
	Limiter     *middleware.RateLimiter
	Verifier    middleware.TokenVerifier
	Revocations middleware.RevocationChecker

	// Proxies may report the client address in forwarding headers.
	Proxies middleware.TrustedProxies
}

func NewServer(cfg *config.Config, log *slog.Logger, guards Guards, h Handlers) *Server {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID(),
		middleware.StructuredLogger(log, guards.Proxies),
		chimw.Timeout(constants.GlobalRequestTimeout),
		guards.Limiter.Middleware,
		middleware.PanicRecovery(),
		middleware.CORS(cfg),
		middleware.Authenticate(guards.Verifier, guards.Revocations),
		chimw.CleanPath,
	)
	mount(router, h)

	return &Server{
		router: router,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

func mount(router chi.Router, h Handlers) {
	router.Get("/", rootHandler)
	router.Get("/health", h.Liveness)
	router.Get("/ready", h.Readiness)

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Mount("/user", h.Account.Routes())
	})
}

// rootHandler lets load balancers and the frontend dev proxy check the API is reachable.
func rootHandler(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = writer.Write([]byte("success"))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the server is shut down or fails to bind.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits up to timeout for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
