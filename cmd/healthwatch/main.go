// Package main implements the healthwatch service.
//
// healthwatch polls health indicators, persists the ones that changed and
// streams them to connected clients. It also tracks a medicine inventory and
// raises reorder requests when stock runs low.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HatiCode/healthwatch/cmd/healthwatch/config"
	"github.com/HatiCode/healthwatch/cmd/healthwatch/logger"
)

const version = "v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "healthwatch",
		Short:   "Health indicator monitor and medicine inventory service",
		Version: version,
		Long: `healthwatch polls WHO health indicators, detects changed readings and
streams them over Server-Sent Events, WebSocket and gRPC. It also serves a
medicine inventory with stock movements and automatic reorder requests.

Without a subcommand the service is started.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the service",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load the sample medicines and current readings into storage",
			Long: `Seed fetches the current readings (synthetic when the upstream is
unreachable) and stores them, then creates the sample medicines that do not
exist yet. It is meant for the redis and postgres backends; with memory
storage the data is gone when the command exits.`,
			RunE: runSeed,
		},
	)
	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	log := logger.New(cfg)
	log.Info().
		Str("version", version).
		Str("listen", cfg.Listen).
		Str("grpc_listen", cfg.GRPCListen).
		Str("storage", cfg.Storage).
		Dur("poll_interval", cfg.PollInterval).
		Msg("starting healthwatch")

	svc, err := newService(cmd.Context(), cfg, &log, nil)
	if err != nil {
		return err
	}
	return svc.Run(cmd.Context())
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	log := logger.New(cfg)

	svc, err := newService(cmd.Context(), cfg, &log, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	readings, medicines, err := svc.Seed(cmd.Context())
	if err != nil {
		return err
	}
	log.Info().Int("readings", readings).Int("medicines", medicines).Msg("seed complete")
	return nil
}
