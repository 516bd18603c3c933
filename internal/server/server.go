/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/seguemedia/segue/internal/api"
	"github.com/seguemedia/segue/internal/config"
	"github.com/seguemedia/segue/internal/db"
	"github.com/seguemedia/segue/internal/eventbus"
	"github.com/seguemedia/segue/internal/events"
	"github.com/seguemedia/segue/internal/notify"
	"github.com/seguemedia/segue/internal/playback"
	"github.com/seguemedia/segue/internal/player"
	"github.com/seguemedia/segue/internal/player/bridge"
	"github.com/seguemedia/segue/internal/store"
	"github.com/seguemedia/segue/internal/telemetry"
)

// Server bundles the HTTP API, the playback engine and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server

	db          *gorm.DB
	bus         *events.Bus
	store       *store.Service
	bridge      *bridge.Bridge
	coordinator *playback.Coordinator
	api         *api.API
	mirrors     []*eventbus.Mirror

	closers []func() error
}

// queueSource adapts the store to the playback engine's queue view.
type queueSource struct {
	store *store.Service
}

func (q *queueSource) Entries(ctx context.Context, projectID string) ([]playback.Entry, error) {
	resolved, err := q.store.Queue(ctx, projectID)
	if err != nil {
		return nil, err
	}
	entries := make([]playback.Entry, len(resolved))
	for i, item := range resolved {
		entries[i] = playback.Entry{
			ItemID:      item.Item.ID,
			Kind:        item.Item.Kind,
			Description: item.Item.Description,
			Segment:     item.Segment,
		}
	}
	return entries, nil
}

// New wires the full service from configuration.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger.With().Str("component", "server").Logger(),
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	s.db = gormDB
	s.closers = append(s.closers, func() error { return db.Close(gormDB) })

	s.bus = events.NewBus()
	s.store = store.NewService(gormDB, s.bus, logger)
	s.bridge = bridge.New(logger)

	notifier := notify.Multi{
		notify.NewLogNotifier(logger),
		notify.NewBusNotifier(s.bus),
	}

	adapterCfg := player.AdapterConfig{
		MountWaitInterval:    cfg.MountWaitInterval,
		MountWaitTimeout:     cfg.MountWaitTimeout,
		DurationSafetyMargin: cfg.DurationSafetyMargin,
	}
	opts := playback.Options{
		FadeLeadSeconds:  cfg.FadeLeadSeconds,
		MonitorInterval:  cfg.MonitorInterval,
		DescriptionDwell: cfg.DescriptionDwell,
		SkipDelay:        cfg.SkipDelay,
		SettlingGrace:    cfg.SettlingGrace,
		Fade: playback.FadeConfig{
			StepSize:     cfg.FadeStepSize,
			StepInterval: cfg.FadeStepInterval,
			SettleDelay:  cfg.FadeSettleDelay,
		},
	}
	s.coordinator = playback.NewCoordinator(&queueSource{store: s.store}, s.bridge, adapterCfg, opts, notifier, s.bus, logger)

	// Losing the browser page invalidates the widget handle underneath the
	// engine; the settling window keeps stale signals from racing remounts.
	s.bridge.OnDetach(s.coordinator.EnterSettling)
	s.bridge.OnAttach(func() {
		s.bus.Publish(events.EventPlayerMountReady, events.Payload{})
	})

	if err := s.initMirrors(); err != nil {
		return nil, err
	}

	s.api = api.New(s.store, s.coordinator, s.bridge, s.bus, logger)
	s.configureRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.metricsServer = &http.Server{
		Addr:              cfg.MetricsBind,
		Handler:           metricsMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *Server) initMirrors() error {
	if s.cfg.NATSEnabled {
		pub, err := eventbus.NewNATSPublisher(s.cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("init nats mirror: %w", err)
		}
		mirror := eventbus.NewMirror(s.bus, pub, s.logger)
		mirror.Start()
		s.mirrors = append(s.mirrors, mirror)
		s.logger.Info().Str("url", s.cfg.NATSURL).Msg("nats event mirror enabled")
	}
	if s.cfg.RedisEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pub, err := eventbus.NewRedisPublisher(ctx, s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("init redis mirror: %w", err)
		}
		mirror := eventbus.NewMirror(s.bus, pub, s.logger)
		mirror.Start()
		s.mirrors = append(s.mirrors, mirror)
		s.logger.Info().Str("addr", s.cfg.RedisAddr).Msg("redis event mirror enabled")
	}
	return nil
}

func (s *Server) configureRoutes() {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.MetricsMiddleware)

	s.api.Routes(router)
	s.router = router
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	return mux
}

// Run serves HTTP until the context is cancelled, then shuts down cleanly.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		s.logger.Info().Str("addr", s.metricsServer.Addr).Msg("metrics server listening")
		if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		s.logger.Error().Err(err).Msg("server failed")
		_ = s.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("http shutdown")
	}
	if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("metrics shutdown")
	}
	return s.Close()
}

// Close tears down the engine and every owned resource.
func (s *Server) Close() error {
	s.coordinator.Close()
	_ = s.bridge.Close()

	var firstErr error
	for _, mirror := range s.mirrors {
		if err := mirror.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
