package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/cache"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	h "github.com/V-Shkrobatskyi/lux-clothing-portal/internal/http"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/provider"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/publisher"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/repository"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/service"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/pkg/circuitbreaker"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/pkg/logger"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/pkg/metrics"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/pkg/telemetry"
)

const serviceName = "lux-clothing-portal"

type Config struct {
	HTTPPort        string
	LogLevel        string
	DB              repository.Credentials
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    []string
	KafkaTopic      string
	StripeSecretKey string
	PublicBaseURL   string
	ProviderTimeout time.Duration
	SessionValidity time.Duration
	OutboxTick      time.Duration
	ExpiryTick      time.Duration
	IdempotencyTTL  time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	OtelStdout      bool
}

func loadConfig() *Config {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		log.Fatalf("Invalid DB_PORT: %v", err)
	}

	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DB: repository.Credentials{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              dbPort,
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", "postgres"),
			DBName:            getEnv("DB_NAME", "lux_clothing"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
		},
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:    splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:      getEnv("KAFKA_TOPIC", publisher.DefaultTopic),
		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		PublicBaseURL:   getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		ProviderTimeout: durationEnv("PROVIDER_TIMEOUT", 10*time.Second),
		SessionValidity: durationEnv("SESSION_VALIDITY", 24*time.Hour),
		OutboxTick:      durationEnv("OUTBOX_TICK", time.Second),
		ExpiryTick:      durationEnv("EXPIRY_TICK", time.Minute),
		IdempotencyTTL:  durationEnv("IDEMPOTENCY_TTL", 24*time.Hour),
		RequestTimeout:  durationEnv("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
		OtelStdout:      getEnv("OTEL_STDOUT", "") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Invalid %s: %v", key, err)
	}
	return d
}

func splitList(csv string) []string {
	var out []string
	for _, item := range strings.Split(csv, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func main() {
	log.Println("lux-clothing-portal starting...")
	cfg := loadConfig()

	lg := logger.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(lg)

	shutdownTracing, err := telemetry.Setup(serviceName, cfg.OtelStdout)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	// Database setup
	repo, err := repository.NewRepository(&cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(&cfg.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	// Payment provider
	var paymentProvider provider.Provider
	if cfg.StripeSecretKey != "" {
		paymentProvider = provider.NewStripeProvider(cfg.StripeSecretKey, cfg.PublicBaseURL, nil)
		log.Println("Using Stripe payment provider")
	} else {
		paymentProvider = provider.NewFake(cfg.PublicBaseURL)
		log.Println("STRIPE_SECRET_KEY not set, using in-memory payment provider")
	}
	paymentProvider = provider.NewResilient(paymentProvider, cfg.ProviderTimeout,
		circuitbreaker.DefaultSettings("payment-provider"), lg)

	// Services
	productCache := cache.NewRedisCache(redisClient)
	payments := service.NewPaymentService(repo, paymentProvider, lg)
	orders := service.NewOrderService(repo, payments, productCache, lg)
	catalog := service.NewCatalogService(repo, productCache, lg)
	cart := service.NewCartService(repo, lg)
	profiles := service.NewProfileService(repo, lg)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics(registry, "api")
	outboxMetrics := metrics.NewOutboxMetrics(registry, "outbox")

	// Outbox poller
	var writer publisher.MessageWriter
	if len(cfg.KafkaBrokers) > 0 {
		kw := publisher.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kw.Close()
		writer = kw
		log.Printf("Publishing outbox events to kafka topic %s", cfg.KafkaTopic)
	} else {
		log.Println("KAFKA_BROKERS not set, outbox events are only handled locally")
	}

	opts := publisher.DefaultOptions()
	opts.EventTick = cfg.OutboxTick
	opts.RecoveryTick = cfg.ExpiryTick
	opts.SessionValidity = cfg.SessionValidity
	poller := publisher.NewOutboxPoller(repo, writer, payments, outboxMetrics, lg, opts)
	poller.Handle(domain.EventPaymentSessionRequested, publisher.SessionRequestedHandler(payments))

	pollerCtx, stopPoller := context.WithCancel(ctx)
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		poller.Run(pollerCtx)
	}()

	router := h.NewRouter(h.RouterConfig{
		Catalog:        catalog,
		Profiles:       profiles,
		Cart:           cart,
		Orders:         orders,
		Payments:       payments,
		Idempotency:    cache.NewRedisIdempotencyStore(redisClient),
		IdempotencyTTL: cfg.IdempotencyTTL,
		Metrics:        serverMetrics,
		Gatherer:       registry,
		Ping:           repo.Ping,
		RequestTimeout: cfg.RequestTimeout,
		Log:            lg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	stopPoller()
	<-pollerDone
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("failed to flush traces: %v", err)
	}

	log.Println("server exited")
}
