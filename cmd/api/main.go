package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dvloznov/imagexbot/internal/api/handlers"
	"github.com/dvloznov/imagexbot/internal/app"
	"github.com/dvloznov/imagexbot/internal/config"
	"github.com/dvloznov/imagexbot/internal/logger"
)

func main() {
	port := flag.String("port", "", "HTTP server port (overrides server.port / PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	log := logger.NewWithLevel(cfg.Log.Level, cfg.Log.Pretty)
	ctx := logger.WithContext(context.Background(), log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := app.New(ctx, cfg, log, reg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize service")
	}

	// Start the deferred deletion worker in the background
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := a.StartCleanup(workerCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start cleanup worker")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handlers.NewRouter(a.Routes(reg), log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("store", cfg.Store.Driver).
			Bool("auth_required", cfg.Auth.Required).
			Bool("notion_export", a.Exporter != nil).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	cancelWorker()
	if err := a.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}

	log.Info().Msg("Server exited")
}
