// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command linerpc-client makes one call to a linerpc server and prints the
// result.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"go.lsp.dev/linerpc"
	"go.lsp.dev/linerpc/internal/cli"
)

type config struct {
	addr     string
	timeout  time.Duration
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		var rerr *linerpc.Error
		if errors.As(err, &rerr) {
			fmt.Fprintf(os.Stderr, "Error %d: %s\n", rerr.Code, rerr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cobra.Command {
	var cfg config

	cmd := &cobra.Command{
		Use:           "linerpc-client [flags] METHOD [PARAMS_JSON]",
		Short:         "Call a method on a newline delimited JSON-RPC server",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var params *linerpc.Params
			if len(args) == 2 {
				params = new(linerpc.Params)
				if err := params.UnmarshalJSON([]byte(args[1])); err != nil {
					return fmt.Errorf("invalid PARAMS_JSON: %w", err)
				}
			}
			return run(cmd.Context(), &cfg, out, args[0], params)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.addr, "addr", "127.0.0.1:5000", "TCP address of the server")
	flags.DurationVar(&cfg.timeout, "timeout", 10*time.Second, "bound on the whole call")
	flags.StringVar(&cfg.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	return cmd
}

func run(ctx context.Context, cfg *config, out io.Writer, method string, params *linerpc.Params) (err error) {
	logger, err := cli.NewLogger(cfg.logLevel, true)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	client, err := linerpc.Dial(ctx, cfg.addr, linerpc.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil && !linerpc.IsClosingError(cerr) {
			err = multierr.Append(err, cerr)
		}
	}()

	result, err := client.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if result == nil {
		result = linerpc.RawMessage("null")
	}

	_, err = fmt.Fprintf(out, "%s\n", result)
	return err
}
