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

	"github.com/DavidD95/Prueba-Data-Engineering/internal/api"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/api/handler"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/app"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/config"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/logger"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault()
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	// Runs recorded as running belong to a previous process that never finished them.
	if n, err := a.Runs.MarkStale(ctx, "interrupted: server restarted during run"); err != nil {
		log.WithError(err).Warn("Failed to mark stale runs")
	} else if n > 0 {
		log.Warnf("Marked %d stale runs as failed", n)
	}

	runHandler := handler.NewRunHandler(a.Orchestrator, a.Runs)
	router := api.SetupRouter(runHandler, handler.NewHealthHandler(a.Ping), cfg.Server.Mode, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithFields(logger.Fields{
			"port":   cfg.Server.Port,
			"mode":   cfg.Server.Mode,
			"bucket": cfg.Pipeline.Bucket,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	// A background run finishes its current batch before the process exits.
	log.Info("Waiting for in-flight run...")
	runHandler.Wait()

	log.Info("Server exited")
}
