package main

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/shortlet/libs/config"
	"github.com/md-rashed-zaman/shortlet/libs/db"
	"github.com/md-rashed-zaman/shortlet/libs/grpcx"
	"github.com/md-rashed-zaman/shortlet/libs/httpx"
	"github.com/md-rashed-zaman/shortlet/libs/kafkax"
	otelx "github.com/md-rashed-zaman/shortlet/libs/otel"
	"github.com/md-rashed-zaman/shortlet/libs/runtime"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/expiry"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/handlers"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/outbox"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/payments"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/reconcile"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/shortlet"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "shortlet-service")
	port, err := config.Port("PORT", "8090")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
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
	pool, err := db.Open(ctx, dbURL, db.PoolConfig{MaxConns: int32(config.Int("DB_MAX_CONNS", 10))})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	stripeKey := config.String("STRIPE_SECRET_KEY", "")
	provider := payments.NewStripeProvider(stripeKey)
	if !provider.Enabled() {
		logger.Warn("payments disabled: STRIPE_SECRET_KEY missing")
	}

	svc := shortlet.NewService(pool, provider, logger, shortlet.Config{
		PaymentWindow:      time.Duration(config.Int("PAYMENT_WINDOW_MINUTES", 30)) * time.Minute,
		HostResponseWindow: time.Duration(config.Int("HOST_RESPONSE_HOURS", 24)) * time.Hour,
		ViewingSlotMinutes: config.Int("VIEWING_SLOT_MINUTES", 30),
	})

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outbox.NewRepository(pool), logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	expiryWorker := expiry.NewWorker(svc, logger, expiry.WorkerConfig{
		Interval:  config.Duration("EXPIRY_INTERVAL", 30*time.Second),
		BatchSize: config.Int("EXPIRY_BATCH_SIZE", 100),
	})
	go expiryWorker.Run(ctx)

	if provider.Enabled() {
		reconciler := reconcile.NewReconciler(pool, svc, logger, reconcile.Config{
			BatchSize:       config.Int("RECONCILE_BATCH_SIZE", 50),
			MinAge:          config.Duration("RECONCILE_MIN_AGE", 2*time.Minute),
			AdvisoryLockKey: config.Int64("RECONCILE_LOCK_KEY", 0),
		})
		go reconciler.Run(ctx, config.Duration("RECONCILE_INTERVAL", time.Minute))
	} else {
		logger.Warn("payment reconcile disabled: STRIPE_SECRET_KEY missing")
	}

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)},
	}

	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var rateLimitMW httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "shortlet-rl"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	if err := grpcx.ServeHealth(ctx, logger, grpcx.HealthConfig{
		Addr:     ":" + grpcPort,
		Service:  service,
		Interval: 10 * time.Second,
		Check:    db.ReadyCheck(pool),
	}); err != nil {
		logger.Error("grpc health server failed", "err", err)
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.NewHandler(svc, logger, handlers.Config{
		StripeWebhookSecret:    config.String("STRIPE_WEBHOOK_SECRET", ""),
		StripeWebhookTolerance: time.Duration(config.Int("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300)) * time.Second,
	}).Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		rateLimitMW,
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "shortlet")
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
