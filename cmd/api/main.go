package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"docvault/internal/config"
	handlers "docvault/internal/http/handler"
	"docvault/internal/http/middleware"
	"docvault/internal/logger"
	"docvault/internal/metrics"
	"docvault/internal/otel"
	"docvault/internal/service"
)

const shutdownTimeout = 15 * time.Second

// @title DocVault API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, "docvault-api", log)
	if err != nil {
		log.Fatal("tracing_init_failed", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("backend_init_failed", zap.Error(err))
	}
	defer b.close()

	core := service.NewCore(b.repos, b.store, b.groups, cfg.Core, service.WithLogger(log))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)
	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal("metrics_init_failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Logger(log))
	app.Use(promMW.Handler())

	deps := handlers.Deps{
		Documents:   core.Documents,
		Sharing:     core.Sharing,
		Gatherer:    reg,
		JWTSecret:   []byte(cfg.JWTSecret),
		LinkLimiter: middleware.NewIPRateLimiter(cfg.LinkRateRPS, cfg.LinkRateBurst),
	}
	if b.db != nil {
		deps.DB = b.db
	}
	if len(deps.JWTSecret) == 0 {
		log.Warn("jwt_secret_missing", zap.String("msg", "bearer tokens will be rejected"))
	}
	handlers.RegisterRoutes(app, deps)

	go func() {
		<-ctx.Done()
		log.Info("server_shutdown", zap.String("status", "starting"))
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error("server_shutdown", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	log.Info("server_start", zap.String("addr", addr), zap.String("store_backend", cfg.StoreBackend), zap.String("audit_sink", cfg.AuditSink))
	if err := app.Listen(addr); err != nil {
		log.Error("server_listen_failed", zap.Error(err))
	}
}
