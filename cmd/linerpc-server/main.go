// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command linerpc-server serves the hello and echo methods over newline
// delimited JSON-RPC.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"go.lsp.dev/linerpc"
	"go.lsp.dev/linerpc/internal/cli"
)

type config struct {
	addr         string
	keepAlive    bool
	readTimeout  time.Duration
	writeTimeout time.Duration
	maxFrameSize int
	logLevel     string
	development  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var cfg config

	cmd := &cobra.Command{
		Use:           "linerpc-server",
		Short:         "Serve hello and echo over newline delimited JSON-RPC",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), &cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.addr, "addr", "127.0.0.1:5000", "TCP address to listen on")
	flags.BoolVar(&cfg.keepAlive, "keep-alive", false, "serve several requests per connection")
	flags.DurationVar(&cfg.readTimeout, "read-timeout", 30*time.Second, "bound on every frame read, 0 for none")
	flags.DurationVar(&cfg.writeTimeout, "write-timeout", 30*time.Second, "bound on every frame write, 0 for none")
	flags.IntVar(&cfg.maxFrameSize, "max-frame-size", linerpc.DefaultMaxFrameSize, "largest accepted frame in bytes")
	flags.StringVar(&cfg.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.BoolVar(&cfg.development, "development", false, "human readable logs")

	return cmd
}

func run(ctx context.Context, cfg *config) (err error) {
	logger, err := cli.NewLogger(cfg.logLevel, cfg.development)
	if err != nil {
		return err
	}
	defer func() {
		// syncing stderr fails on some platforms, that is not worth reporting
		_ = logger.Sync()
	}()

	srv, err := linerpc.Listen(ctx, "tcp", cfg.addr, handlers(),
		linerpc.WithLogger(logger),
		linerpc.WithKeepAlive(cfg.keepAlive),
		linerpc.WithReadTimeout(cfg.readTimeout),
		linerpc.WithWriteTimeout(cfg.writeTimeout),
		linerpc.WithMaxFrameSize(cfg.maxFrameSize),
	)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, srv.Close())
	}()

	logger.Info("listening", zap.Stringer("addr", srv.Addr()), zap.Bool("keep_alive", cfg.keepAlive))

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")

	return nil
}
