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

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/cache"
	"github.com/dineflow/api/internal/cart"
	"github.com/dineflow/api/internal/config"
	"github.com/dineflow/api/internal/events"
	"github.com/dineflow/api/internal/geo"
	"github.com/dineflow/api/internal/logger"
	"github.com/dineflow/api/internal/router"
	"github.com/dineflow/api/internal/store/backend"
	"github.com/dineflow/api/internal/ws"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding, !cfg.IsProduction())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := backend.Open(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer db.Close()

	// Redis is shared by the read cache and the cart repository.
	var rdb *redis.Client
	if cfg.Cache.Driver == config.DriverRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		log.Info("connected to redis", zap.String("addr", cfg.Cache.RedisAddr))
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	var pub events.Publisher = hub
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer kp.Close()
		pub = events.Multi{hub, events.OnlyTypes(kp, "order.")}
		log.Info("publishing order events to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	var (
		kv    cache.Backend
		carts cart.Repository
	)
	if rdb != nil {
		kv = cache.NewRedisBackend(rdb, "dineflow")
		carts = cart.NewRedisRepository(rdb, cfg.Cache.CartTTL)
	} else {
		kv = cache.NewMemoryBackend()
		carts = cart.NewMemoryRepository()
	}
	cached := cache.New(db, kv, pub, cfg.Cache.TTL, log)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	r := router.New(cfg, router.Deps{
		Store:     cached,
		Carts:     carts,
		Tokens:    tokens,
		Hub:       hub,
		Publisher: pub,
		Estimator: geo.NewEstimator(geo.DefaultHeuristic()),
		Log:       log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Driver),
			zap.String("cache", cfg.Cache.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
