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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/fjod/go_cart/fakestore/internal/cart"
	"github.com/fjod/go_cart/fakestore/internal/catalog"
	"github.com/fjod/go_cart/fakestore/internal/checkout"
	"github.com/fjod/go_cart/fakestore/internal/config"
	h "github.com/fjod/go_cart/fakestore/internal/http"
	"github.com/fjod/go_cart/fakestore/internal/kv"
	"github.com/fjod/go_cart/fakestore/internal/metrics"
	"github.com/fjod/go_cart/fakestore/internal/poller"
	"github.com/fjod/go_cart/fakestore/pkg/logger"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.Log.Level),
		Format:      cfg.Log.Format,
	})
	ctx := context.Background()

	// spans are only sampled for their ids; nothing is exported
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	defer tp.Shutdown(context.Background())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, err := openStore(ctx, cfg.KV)
	if err != nil {
		log.Error(ctx, "failed to open kv store", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info(ctx, fmt.Sprintf("kv backend: %s", cfg.KV.Backend))

	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL,
		catalog.WithHTTPClient(&http.Client{
			Timeout:   cfg.Catalog.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
		catalog.WithBreaker(catalog.NewBreaker(log, cfg.Catalog.BreakerFailures, cfg.Catalog.BreakerTimeout)),
		catalog.WithMetrics(m),
		catalog.WithLogger(log),
	)

	sessions := cart.NewSessions(store, cfg.HTTP.MaxSessions, m, cart.WithLogger(log))

	var publisher checkout.Publisher = checkout.NopPublisher{}
	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	if cfg.Kafka.Enabled() {
		publisher = checkout.NewKafkaPublisher(cfg.Kafka.CheckoutTopic, cfg.Kafka.Brokers...)

		p := poller.NewPoller(sessions, log, cfg.Kafka.OrdersTopic, cfg.Kafka.GroupID, cfg.Kafka.Brokers...)
		defer p.Close()
		go p.Run(pollCtx)
		log.Info(ctx, fmt.Sprintf("consuming %s", cfg.Kafka.OrdersTopic))
	} else {
		log.Info(ctx, "kafka not configured, checkout events are dropped")
	}
	defer publisher.Close()

	router := h.NewRouter(h.RouterConfig{
		Catalog:        catalogClient,
		Sessions:       sessions,
		Checkout:       checkout.NewService(publisher, log),
		Logger:         log,
		Gatherer:       reg,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info(ctx, fmt.Sprintf("storefront starting on :%s", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server...")
	stopPolling()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server forced to shutdown", err)
	}

	log.Info(ctx, "server exited")
}

func openStore(ctx context.Context, cfg config.KVConfig) (kv.Store, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return kv.NewRedisStore(client, cfg.RedisTTL), nil
	case config.BackendSQLite:
		s, err := kv.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		db, err := kv.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		return kv.NewMongoStore(db), nil
	default:
		return kv.NewMemoryStore(), nil
	}
}
