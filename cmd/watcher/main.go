// Package main implements the healthwatch watcher.
//
// The watcher follows the healthwatch event streams over HTTP or gRPC,
// reconnecting with exponential backoff, logs every event and exposes the
// latest indicator values and stock levels as Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/HatiCode/healthwatch/cmd/watcher/config"
	"github.com/HatiCode/healthwatch/cmd/watcher/logger"
	"github.com/HatiCode/healthwatch/cmd/watcher/metrics"
	"github.com/HatiCode/healthwatch/cmd/watcher/router"
	"github.com/HatiCode/healthwatch/pkg/client"
	"github.com/HatiCode/healthwatch/pkg/httpx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cobra.Command{
		Use:           "watcher",
		Short:         "Follow healthwatch event streams",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	config.BindFlags(cmd.Flags())

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	log := logger.New(cfg)
	m := metrics.New()
	w := NewWatcher(m, &log)

	log.Info().
		Str("listen", cfg.Listen).
		Str("server_url", cfg.ServerURL).
		Str("grpc_addr", cfg.GRPCAddr).
		Strs("topics", cfg.Topics).
		Msg("starting healthwatch watcher")

	httpServer := httpx.NewServer(cfg.Listen, router.SetupRoutes(w.Ready, promhttp.Handler(), &log), &log)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(httpServer.Start)
	g.Go(func() error {
		var err error
		if cfg.GRPCAddr != "" {
			err = w.FollowGRPC(ctx, cfg.GRPCAddr, cfg.Topics, cfg.MaxRetryInterval)
		} else {
			err = w.FollowHTTP(ctx, cfg.ServerURL, cfg.Topics, client.StreamOptions{MaxInterval: cfg.MaxRetryInterval})
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		return httpServer.Stop(10 * time.Second)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}
