/*
Package handler provides the HTTP surface of the relay.

This file defines the main Router. Every request passes the CORS handler, request id, real
IP, request logging, panic recovery and the origin check before reaching the health check,
the WebSocket endpoint or the authenticated /api routes.
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"chatrelay/internal/pkg/auth/jwt"
	"chatrelay/internal/pkg/limiter"
	"chatrelay/internal/pkg/logx"
)

const (
	ConnectRate  = 0.5
	ConnectBurst = 10
)

// Router sets up the main HTTP routing table for the relay. ctx bounds the lifetime of the
// rate limiter's background sweep.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	connectLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     deps.Origins.CheckRequest,
	}

	c := cors.New(cors.Options{
		AllowOriginFunc:  deps.Origins.Allowed,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)
	r.Use(deps.Origins.Middleware)

	r.Get("/health", HandleHealth())

	wsRoute := r.With(connectLimiter.Middleware)
	if deps.Config != nil && deps.Config.IsDevelopment() {
		// no connect limit in development
		wsRoute = r.With()
	}
	wsRoute.Get("/ws", HandleWebSocket(deps.Relay, wsUpgrader))

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.RequireIdentity(deps.Verifier))

		api.Get("/messages", HandleListMessages(deps))
		api.Get("/presence", HandlePresence(deps))

		api.Get("/profile", HandleGetProfile(deps))
		api.Post("/profile", HandleUpdateProfile(deps))

		api.Get("/avatar", HandleAvatarDownload(deps))
	})

	return r
}
