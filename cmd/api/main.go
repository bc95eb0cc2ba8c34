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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/nutri-agenda/cmd/mainconfig"
	"github.com/wolfman30/nutri-agenda/internal/api/router"
	"github.com/wolfman30/nutri-agenda/internal/app/bootstrap"
	"github.com/wolfman30/nutri-agenda/internal/appointments"
	appconfig "github.com/wolfman30/nutri-agenda/internal/config"
	httpmiddleware "github.com/wolfman30/nutri-agenda/internal/http/middleware"
	"github.com/wolfman30/nutri-agenda/internal/patients"
	"github.com/wolfman30/nutri-agenda/internal/plans"
	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting nutri-agenda API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	ctx := context.Background()

	pool, err := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}
	sqlDB, err := bootstrap.OpenSQLDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if sqlDB != nil {
		defer sqlDB.Close()
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}
	llm, err := bootstrap.BuildPlanLLM(ctx, cfg, &awsCfg, logger)
	if err != nil {
		return err
	}
	defer llm.Close()

	metricsHandler, registry := setupMetrics()
	deps := bootstrap.Deps{
		Pool:       pool,
		SQLDB:      sqlDB,
		Redis:      redisClient,
		Registerer: registry,
	}
	if llm != nil {
		deps.LLM = llm.Client
	}
	if cfg.PlanArchiveBucket != "" {
		deps.S3 = newS3Client(awsCfg, cfg.AWSEndpointOverride != "")
	}

	services, err := bootstrap.BuildServices(cfg, deps, logger)
	if err != nil {
		return err
	}

	routerCfg := &router.Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(services.Appointments, logger),
		PatientsHandler:     patients.NewHandler(services.Patients, logger),
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	}
	if services.Drafter != nil {
		routerCfg.PlansHandler = plans.NewHandler(services.Drafter, logger)
		routerCfg.PlanRateLimiter = httpmiddleware.NewRateLimiter(cfg.PlanRateLimitRPS, cfg.PlanRateLimitBurst)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// setupMetrics returns the /metrics handler and the registry collectors register on.
func setupMetrics() (http.Handler, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), registry
}

func newS3Client(awsCfg aws.Config, pathStyle bool) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
	})
}
