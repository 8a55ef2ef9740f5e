package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/loan-decision/internal/config"
	"github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/monitoring"
)

// @title        Loan Decision API
// @version      1.0
// @description  Approve/reject decisions for loan applications with ranked feature attributions.
// @BasePath     /
func main() {
	logger := monitoring.NewLogger()
	slog.SetDefault(logger.Logger)

	cfg, err := config.Load(getEnvOrDefault("CONFIG_PATH", ""))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(exitCode(err))
	}
	logger.SetLevel(monitoring.ParseLogLevel(cfg.Logging.Level))
	slog.SetDefault(logger.Logger)
	gin.SetMode(cfg.Server.Mode)

	a, err := newApp(cfg, logger)
	if err != nil {
		slog.Error("Failed to load decision pipeline",
			"error", err,
			"category", errors.CategoryOf(err),
			"fatal", errors.IsFatal(err),
			"model_path", cfg.Model.Path,
			"schema_path", cfg.Model.SchemaPath)
		os.Exit(exitCode(err))
	}
	defer a.close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	a.health.RunHealthChecks(ctx)
	go a.health.StartHealthChecks(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           setupRouter(a),
		ReadHeaderTimeout: cfg.Server.RequestTimeout,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port, "model_version", a.model.Version())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// exitCode maps a startup error to the process status: 2 when the
// pipeline can never be served, 1 otherwise.
func exitCode(err error) int {
	if errors.IsFatal(err) {
		return 2
	}
	return 1
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
