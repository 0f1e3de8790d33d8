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

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/cache"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/events"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/profile"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/subscriber"
	"github.com/ovaphlow/pitchfork/service-storefront-go/pkg/utilities"
)

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	cfg := config.ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}
	sugar.Infow("starting storefront", "env", cfg.Env, "backend", cfg.Backend, "addr", cfg.HTTPAddr)

	st, err := openStores(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			sugar.Warnf("store close failed: %v", err)
		}
	}()
	ensureCtx, cancelEnsure := context.WithTimeout(parent, 30*time.Second)
	err = st.ensure(ensureCtx)
	cancelEnsure()
	if err != nil {
		return err
	}

	verifier, err := auth.NewJWTVerifier(auth.JWTConfig{
		PublicKey:         cfg.JWTKey,
		Issuer:            cfg.Issuer,
		AuthorizedParties: cfg.AuthorizedParties,
	})
	if err != nil {
		return err
	}

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	idCache, err := newIdentityCache(cfg)
	if err != nil {
		return err
	}
	defer idCache.Close()

	publisher := newPublisher(cfg, sugar)
	defer publisher.Close()

	identities := auth.NewCachedFetcher(auth.NewClerkClient(cfg.APIURL, cfg.SecretKey, nil), idCache, cfg.IdentityCacheTTL, m, sugar)
	profiles := profile.NewService(st.profiles, identities, publisher, m, sugar)
	subscribers := subscriber.NewService(st.subscribers, sugar)

	handler := router.RegisterRoutes(router.Deps{
		Logger:      sugar,
		Gate:        auth.NewGate(verifier, sugar),
		Profiles:    profile.NewHandler(profiles, sugar),
		Subscribers: subscriber.NewHandler(subscribers, sugar),
		Metrics:     m,
		Gatherer:    prometheus.DefaultGatherer,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	sugar.Info("service is running; press Ctrl+C to stop")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	sugar.Info("shutting down")
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sugar.Info("goodbye")
	return nil
}

func newIdentityCache(cfg config.Config) (cache.Client, error) {
	driver := "memory"
	if cfg.RedisAddr != "" {
		driver = "redis"
	}
	return cache.New(cache.Config{
		Driver:   driver,
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   "storefront",
	})
}

func newPublisher(cfg config.Config, logger *zap.SugaredLogger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("KAFKA_BROKERS not set; profile events are dropped")
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}
