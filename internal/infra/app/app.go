package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/albrthuynh/NBAIQ/internal/infra/config"
	"github.com/albrthuynh/NBAIQ/internal/infra/logger"
	"github.com/albrthuynh/NBAIQ/internal/infra/telemetry"
)

const shutdownTimeout = 10 * time.Second

// component is a long-lived dependency started before the HTTP server and stopped after it.
type component struct {
	name  string
	start func(ctx context.Context)
	stop  func(ctx context.Context) error
}

// Application is one HTTP process: the session host or the profile API.
type Application struct {
	name       string
	cfg        *config.AppConfig
	engine     *gin.Engine
	logger     *zap.Logger
	components []component
}

func newBase(ctx context.Context, cfg *config.AppConfig, name string) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log = log.With(zap.String("component", name))

	a := &Application{name: name, cfg: cfg, logger: log}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, name, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.addStop("tracer", tracer.Shutdown)

	return a, nil
}

func (a *Application) addStop(name string, stop func(ctx context.Context) error) {
	a.components = append(a.components, component{name: name, stop: stop})
}

func (a *Application) addComponent(c component) {
	a.components = append(a.components, c)
}

// close stops components in reverse order of registration.
func (a *Application) close(ctx context.Context) {
	for i := len(a.components) - 1; i >= 0; i-- {
		c := a.components[i]
		if c.stop == nil {
			continue
		}
		if err := c.stop(ctx); err != nil {
			a.logger.Warn("component shutdown failed", zap.String("name", c.name), zap.Error(err))
		}
	}
}

// fail releases whatever was built before a constructor error.
func (a *Application) fail(err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.close(ctx)
	_ = a.logger.Sync()
	return err
}

// Run starts background components, serves HTTP until ctx is cancelled and then shuts down.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.close(shutdownCtx)
	}()

	for _, c := range a.components {
		if c.start != nil {
			c.start(ctx)
		}
	}

	// Request contexts end when shutdown begins so open event streams return.
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	srv := &http.Server{
		Addr:              net.JoinHostPort(a.cfg.App.Host, strconv.Itoa(a.cfg.App.Port)),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelRequests)

	a.logger.Info("starting NBA IQ "+a.name,
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// Handler exposes the HTTP handler (tests).
func (a *Application) Handler() http.Handler {
	return a.engine
}
