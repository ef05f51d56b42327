package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/lifecaller/simulator/api"
	"github.com/lifecaller/simulator/auth"
	"github.com/lifecaller/simulator/cache"
	"github.com/lifecaller/simulator/simulation"
	"github.com/lifecaller/simulator/store/sqlite"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireSecret(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	authn, err := auth.NewAuthenticator(cfg.Auth.Secret, cfg.RoleMap())
	if err != nil {
		return err
	}

	// Optional coefficient cache
	var coefficients simulation.CoefficientStore = store
	var invalidator api.Invalidator
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisCache(cfg.Redis.Addr)
		if err := rc.Ping(ctx); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, coefficient cache disabled")
			rc.Close()
		} else {
			defer rc.Close()
			cached := cache.NewCoefficients(store, rc, cfg.Redis.TTL)
			coefficients = cached
			invalidator = cached
			logger.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("coefficient cache enabled")
		}
	}

	svc := simulation.NewService(cfg.AccessPolicy(), store, coefficients,
		simulation.WithLookupTimeout(cfg.Store.Timeout))

	handler := api.NewHandler(svc, store, store)
	handler.Invalidator = invalidator

	router := api.NewRouter(handler, authn, api.RouterOptions{
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("db", cfg.Database.Path).Msg("server starting")
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info().Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}
