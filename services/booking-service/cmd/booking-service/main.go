package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sentinel-dot/easyseat-sub000/libs/config"
	"github.com/sentinel-dot/easyseat-sub000/libs/db"
	"github.com/sentinel-dot/easyseat-sub000/libs/httpx"
	"github.com/sentinel-dot/easyseat-sub000/libs/kafkax"
	otelx "github.com/sentinel-dot/easyseat-sub000/libs/otel"
	"github.com/sentinel-dot/easyseat-sub000/libs/runtime"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/audit"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/availability"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/booking"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/handlers"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/outbox"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/reminder"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/rules"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	bookingRepo := storage.NewBookingRepository()
	dirRepo := storage.NewDirectoryRepository()
	ruleRepo := storage.NewRuleRepository()
	outboxRepo := outbox.NewRepository()
	recorder := audit.NewRecorder(pool, logger)

	validator := availability.New(dirRepo, ruleRepo, bookingRepo)
	manager := booking.NewManager(pool, bookingRepo, dirRepo, validator, outboxRepo, recorder, logger)
	ruleSvc := rules.NewService(pool, ruleRepo, logger)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	reminderWorker := reminder.NewWorker(pool, bookingRepo, outboxRepo, logger, reminder.Config{
		Lead:      time.Duration(config.Int("REMINDER_LEAD_HOURS", 24)) * time.Hour,
		PollEvery: time.Duration(config.Int("REMINDER_POLL_SECONDS", 60)) * time.Second,
	})
	go reminderWorker.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	handlers.NewBookingHandler(manager, logger).Register(mux)
	handlers.NewProviderHandler(manager, ruleSvc, recorder, logger).Register(mux)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
	}
	if origins := config.String("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		middlewares = append(middlewares, httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(origins, ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Actor-Type", "X-Actor-Id"},
		}))
	}
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		limiter := httpx.NewRedisRateLimiter(rdb, config.Int("RATE_LIMIT_PER_MINUTE", 120), time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	}

	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
