/*
Package main is the entry point for the chat relay.

It loads configuration, initializes logging, connects to the external store (running the
embedded migrations), starts the relay loop and the HTTP server, and shuts everything down
in order on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatrelay/internal/app/chat"
	"chatrelay/internal/app/db"
	"chatrelay/internal/app/message"
	"chatrelay/internal/app/profile"
	"chatrelay/internal/app/storage"
	"chatrelay/internal/configs"
	"chatrelay/internal/handler"
	"chatrelay/internal/pkg/auth/jwt"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/origin"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("trusted_origin_pattern", cfg.TrustedOriginPattern).
		Dur("store_timeout", cfg.StoreTimeout).
		Bool("storage_enabled", cfg.StorageEnabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to the external store")
	}
	defer pool.Close()

	queries := db.New(pool)

	policy, err := origin.NewPolicy(cfg.AllowedOrigins, cfg.TrustedOriginPattern)
	if err != nil {
		logx.Fatal(err, "Invalid cross-origin policy")
	}

	verifier := jwt.NewVerifier(cfg.JWTSecret)
	resolver := profile.NewResolver(queries, cfg.StoreTimeout)
	gateway := message.NewGateway(queries, cfg.StoreTimeout, cfg.HistoryLimit)

	relay := chat.NewRelay(verifier, resolver, gateway)
	go relay.Run()

	deps := &handler.AppDeps{
		Config:   cfg,
		Relay:    relay,
		Verifier: verifier,
		Profiles: resolver,
		Messages: gateway,
		Origins:  policy,
	}

	if cfg.StorageEnabled() {
		avatars, err := storage.NewAvatarStorage(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize avatar storage")
		}
		deps.Storage = avatars
	}

	// Setup HTTP server and routes
	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler.Router(ctx, deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Chat relay starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Shutdown does not wait for hijacked WebSocket connections; the relay closes them.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	relay.Shutdown()

	logx.Info("Server gracefully stopped.")
}
