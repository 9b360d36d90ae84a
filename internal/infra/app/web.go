package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/albrthuynh/NBAIQ/internal/core/port"
	"github.com/albrthuynh/NBAIQ/internal/infra/backend"
	"github.com/albrthuynh/NBAIQ/internal/infra/config"
	"github.com/albrthuynh/NBAIQ/internal/infra/gotrue"
	kafkainfra "github.com/albrthuynh/NBAIQ/internal/infra/kafka"
	redisinfra "github.com/albrthuynh/NBAIQ/internal/infra/redis"
	"github.com/albrthuynh/NBAIQ/internal/infra/telemetry"
	redisrepo "github.com/albrthuynh/NBAIQ/internal/repository/redis"
	"github.com/albrthuynh/NBAIQ/internal/transport/http/middleware"
	"github.com/albrthuynh/NBAIQ/internal/transport/http/routes"
	"github.com/albrthuynh/NBAIQ/internal/usecase"
)

// NewWeb wires the session host: identity provider client, session store, auth controller and
// route guard behind gin, plus optional redis, kafka and profile sync.
func NewWeb(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	a, err := newBase(ctx, cfg, "web")
	if err != nil {
		return nil, err
	}
	log := a.logger

	metrics, err := telemetry.NewAuthMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, a.fail(fmt.Errorf("init auth metrics: %w", err))
	}

	hostID := hostIdentifier(cfg)
	providerOpts := []gotrue.Option{}

	var (
		rateLimitStore port.RateLimitStore
		rateLimiter    *middleware.RateLimiter
		cache          routes.CacheChecker
	)
	if cfg.Redis.Enabled {
		redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return nil, a.fail(fmt.Errorf("init redis: %w", err))
		}
		a.addStop("redis", func(context.Context) error { return redisClient.Close() })
		cache = redisClient

		window := cfg.RateLimit.WindowDuration
		if window <= 0 {
			window = time.Minute
		}
		store := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: "nbaiq:rate-limit",
			TTL:       window * 2,
		})
		rateLimitStore = store
		rateLimiter = middleware.NewRateLimiter(store, log)

		if cfg.Redis.PersistSession {
			persistence := redisrepo.NewSessionRepository(redisClient.Client(), cfg.Redis.SessionKeyPrefix, hostID, cfg.Redis.SessionTTL)
			providerOpts = append(providerOpts, gotrue.WithPersistence(persistence))
		}
	} else {
		log.Info("redis disabled; sessions are kept in memory and rate limiting is off")
	}

	provider, err := gotrue.New(cfg.Provider, log.Named("gotrue"), providerOpts...)
	if err != nil {
		return nil, a.fail(fmt.Errorf("init identity provider client: %w", err))
	}
	a.addComponent(component{
		name:  "gotrue",
		start: provider.Start,
		stop: func(context.Context) error {
			provider.Close()
			return nil
		},
	})

	events, err := newEventPublisher(a, cfg, hostID)
	if err != nil {
		return nil, a.fail(err)
	}

	store := usecase.NewSessionStore().WithObserver(metrics)
	controller := usecase.NewAuthController(cfg, provider, store, log.Named("auth")).
		WithProfileSync(usecase.NewProfileSync(backend.New(cfg.Backend, log.Named("backend")), log)).
		WithEventPublisher(events).
		WithObserver(metrics).
		WithRateLimitStore(rateLimitStore)

	a.addComponent(component{
		name: "auth_controller",
		// Restoration runs beside the server so guarded routes answer with the loading surface
		// until the session resolves.
		start: func(ctx context.Context) {
			go func() {
				if err := controller.Start(ctx); err != nil {
					log.Warn("session restoration failed; continuing unauthenticated", zap.Error(err))
				}
				log.Info("session restored", zap.String("state", controller.Store().State().String()))
			}()
		},
		stop: func(context.Context) error {
			controller.Dispose()
			return nil
		},
	})

	if err := addRevocationListener(a, cfg, hostID, provider); err != nil {
		return nil, a.fail(err)
	}

	engine, err := routes.RegisterWeb(routes.WebDependencies{
		Config:      cfg,
		Logger:      log,
		Registerer:  prometheus.DefaultRegisterer,
		RateLimiter: rateLimiter,
		Controller:  controller,
		Cache:       cache,
	})
	if err != nil {
		return nil, a.fail(fmt.Errorf("init routes: %w", err))
	}
	a.engine = engine

	return a, nil
}

func newEventPublisher(a *Application, cfg *config.AppConfig, clientID string) (port.EventPublisher, error) {
	log := a.logger
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka brokers not configured, using stub publisher")
		return kafkainfra.NewStubPublisher(log), nil
	}

	producer, err := kafkainfra.NewProducer(cfg.Kafka, clientID, log)
	if err != nil {
		log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(log), nil
	}
	a.addStop("kafka_producer", func(context.Context) error { return producer.Close() })

	return kafkainfra.NewEventPublisher(producer, cfg.App, log), nil
}

func addRevocationListener(a *Application, cfg *config.AppConfig, clientID string, revoker port.LocalSessionRevoker) error {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.RevocationTopic == "" || cfg.Kafka.ConsumerGroup == "" {
		return nil
	}

	handler := kafkainfra.NewSessionRevocationConsumer(revoker, a.logger)
	listener, err := kafkainfra.NewRevocationListener(cfg.Kafka, clientID, handler, a.logger)
	if err != nil {
		a.logger.Warn("failed to join revocation consumer group; remote sign-out disabled", zap.Error(err))
		return nil
	}

	a.addComponent(component{
		name:  "revocation_listener",
		start: func(ctx context.Context) { go listener.Run(ctx) },
		stop:  func(context.Context) error { return listener.Close() },
	})
	return nil
}

// hostIdentifier names this session host; persisted sessions are keyed by it.
func hostIdentifier(cfg *config.AppConfig) string {
	name := cfg.App.Name
	if name == "" {
		name = "nbaiq"
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return name
	}
	return name + "-" + host
}
