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

	"github.com/QuocDuong16/headscale-dashboard/internal/config"
	"github.com/QuocDuong16/headscale-dashboard/internal/server"
)

func listenAddr(cfg config.Config) string {
	bind := cfg.Bind
	if bind == "" {
		bind = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", bind, cfg.Port)
}

func main() {
	cfg := config.FromEnv()
	logger := server.Logger(cfg)

	srv, err := server.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("init failed")
	}
	if _, err := cfg.APIBase(); err != nil {
		logger.Warn().Err(err).Msg("headscale upstream not configured; proxy and pages will report it")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("background jobs failed to start")
	}
	defer srv.Stop()

	addr := listenAddr(cfg)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Msgf("headscale-dashboard %s listening on http://%s", server.Version, addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
