package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/albrthuynh/NBAIQ/internal/infra/config"
	"github.com/albrthuynh/NBAIQ/internal/infra/database"
	"github.com/albrthuynh/NBAIQ/internal/infra/security"
	postgresrepo "github.com/albrthuynh/NBAIQ/internal/repository/postgres"
	"github.com/albrthuynh/NBAIQ/internal/transport/http/routes"
	"github.com/albrthuynh/NBAIQ/internal/usecase"
)

// NewAPI wires the profile API over postgres.
func NewAPI(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	a, err := newBase(ctx, cfg, "api")
	if err != nil {
		return nil, err
	}
	log := a.logger

	verifier, err := security.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Audience, cfg.JWT.Issuer)
	if err != nil {
		return nil, a.fail(fmt.Errorf("init token verifier: %w", err))
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, a.fail(fmt.Errorf("init postgres: %w", err))
	}
	a.addStop("postgres", func(context.Context) error {
		pool.Close()
		return nil
	})

	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			return nil, a.fail(err)
		}
		log.Info("profiles schema migrated")
	}

	profiles := usecase.NewProfileService(postgresrepo.NewProfileRepository(pool), log.Named("profiles"))

	engine, err := routes.RegisterAPI(routes.APIDependencies{
		Config:     cfg,
		Logger:     log,
		Registerer: prometheus.DefaultRegisterer,
		Verifier:   verifier,
		Profiles:   profiles,
		Database:   pool,
	})
	if err != nil {
		return nil, a.fail(fmt.Errorf("init routes: %w", err))
	}
	a.engine = engine

	return a, nil
}
