package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/HatiCode/healthwatch/cmd/healthwatch/config"
	"github.com/HatiCode/healthwatch/cmd/healthwatch/metrics"
	"github.com/HatiCode/healthwatch/cmd/healthwatch/router"
	"github.com/HatiCode/healthwatch/cmd/healthwatch/store"
	"github.com/HatiCode/healthwatch/pkg/adapters"
	"github.com/HatiCode/healthwatch/pkg/events"
	"github.com/HatiCode/healthwatch/pkg/httpx"
	"github.com/HatiCode/healthwatch/pkg/inventory"
	"github.com/HatiCode/healthwatch/pkg/poller"
	"github.com/HatiCode/healthwatch/pkg/stream"
)

const shutdownTimeout = 10 * time.Second

// service holds the wired components of a running healthwatch instance.
type service struct {
	cfg    *config.Config
	logger *zerolog.Logger

	stores    *store.Stores
	reader    *adapters.Fallback
	bus       *events.Bus
	mirror    *events.NATSMirror
	nc        *nats.Conn
	streams   *stream.Manager
	poller    *poller.Poller
	inventory *inventory.Service
	handler   http.Handler
}

// newService wires every component for cfg. A nil reg registers metrics with
// the default Prometheus registry.
func newService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, reg *prometheus.Registry) (*service, error) {
	var (
		m              *metrics.Metrics
		metricsHandler http.Handler
	)
	if reg == nil {
		m = metrics.New()
		metricsHandler = promhttp.Handler()
	} else {
		m = metrics.NewWithRegisterer(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	stores, err := store.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &service{cfg: cfg, logger: logger, stores: stores}

	var source adapters.Source
	if cfg.GHOURL != "" {
		source = &adapters.GHOAdapter{BaseURL: cfg.GHOURL, Timeout: cfg.FetchTimeout}
	}
	s.reader = adapters.NewFallback(source, nil, cfg.FetchTimeout, logger)
	s.reader.OnFallback = m.RecordFallback

	s.bus = events.NewBus(logger)
	s.bus.SetObserver(m)

	if cfg.NATSURL != "" {
		nc, err := events.ConnectNATS(cfg.NATSURL, logger)
		if err != nil {
			_ = stores.Close()
			return nil, err
		}
		s.nc = nc
		s.mirror = events.NewNATSMirror(nc, events.DefaultSubjectPrefix, logger)
		s.mirror.Attach(s.bus, events.TopicHealthUpdate, events.TopicStockUpdate)
		logger.Info().Str("url", cfg.NATSURL).Msg("mirroring events to NATS")
	}

	s.streams = stream.NewManager(s.bus, stream.Options{
		Buffer:    cfg.SessionBuffer,
		KeepAlive: cfg.KeepAlive,
	}, logger)
	s.streams.SetObserver(m)

	s.poller = poller.New(poller.Config{
		Reader:    s.reader,
		Generator: s.reader.Synthetic(),
		Store:     stores.Readings,
		Bus:       s.bus,
		Interval:  cfg.PollInterval,
		Entity:    cfg.Entity,
		Logger:    logger,
		Observer:  m,
	})

	s.inventory = inventory.NewService(inventory.Config{
		Store:    stores.Inventory,
		Bus:      s.bus,
		Logger:   logger,
		Observer: m,
	})

	s.handler = router.SetupRoutes(router.Deps{
		Readings:  stores.Readings,
		Reader:    s.reader,
		Outbreaks: s.reader.Synthetic(),
		Inventory: s.inventory,
		Streams:   s.streams,
		Ready:     stores.Ping,
		Logger:    logger,
		Metrics:   metricsHandler,
	})
	return s, nil
}

// Run starts the poll loop and the servers and blocks until ctx is cancelled
// or a server fails. Resources are released before it returns.
func (s *service) Run(ctx context.Context) error {
	defer s.Close()

	if s.cfg.WarmStart {
		s.poller.WarmStart(ctx)
	}

	httpServer := httpx.NewServer(s.cfg.Listen, s.handler, s.logger)
	httpServer.RegisterOnShutdown(s.streams.Shutdown)

	var (
		grpcServer *grpc.Server
		lis        net.Listener
	)
	if s.cfg.GRPCListen != "" {
		var err error
		lis, err = net.Listen("tcp", s.cfg.GRPCListen)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.cfg.GRPCListen, err)
		}
		grpcServer = s.newGRPCServer()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("poll loop: %w", err)
		}
		return nil
	})
	g.Go(httpServer.Start)
	if grpcServer != nil {
		g.Go(func() error {
			s.logger.Info().Str("addr", s.cfg.GRPCListen).Msg("starting gRPC server")
			if err := grpcServer.Serve(lis); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info().Msg("shutting down")
		s.streams.Shutdown()
		if grpcServer != nil {
			stopGRPC(grpcServer, shutdownTimeout)
		}
		return httpServer.Stop(shutdownTimeout)
	})

	err := g.Wait()
	if err != nil {
		s.logger.Error().Err(err).Msg("healthwatch stopped with error")
		return err
	}
	s.logger.Info().Msg("shutdown complete")
	return nil
}

func (s *service) newGRPCServer() *grpc.Server {
	srv := grpc.NewServer()
	stream.NewWatchServer(s.streams, events.TopicHealthUpdate, events.TopicStockUpdate).Register(srv)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(srv)
	return srv
}

// stopGRPC drains the server, forcing it closed after timeout.
func stopGRPC(srv *grpc.Server, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		srv.Stop()
	}
}

// Seed stores a full reading set and creates the sample medicines. It returns
// the number of readings stored and medicines created.
func (s *service) Seed(ctx context.Context) (readings, medicines int, err error) {
	for _, r := range s.reader.FetchReadings(ctx, s.cfg.Entity) {
		if _, err := s.stores.Readings.UpsertReading(ctx, r); err != nil {
			return readings, 0, fmt.Errorf("store reading %s: %w", r.Key(), err)
		}
		readings++
	}
	medicines, err = s.inventory.Seed(ctx, inventory.DefaultSeed())
	return readings, medicines, err
}

// Close releases the NATS connection and the storage backends.
func (s *service) Close() {
	if s.mirror != nil {
		if err := s.mirror.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close NATS mirror")
		}
		s.mirror = nil
	}
	if s.nc != nil {
		s.nc.Close()
		s.nc = nil
	}
	if s.stores != nil {
		if err := s.stores.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close storage")
		}
		s.stores = nil
	}
}
