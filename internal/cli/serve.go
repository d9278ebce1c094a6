package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/provledger/internal/api"
	"github.com/roach88/provledger/internal/ledger"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr  string
	Grace time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		Long: `Start the HTTP adapter on http.addr.

Routes:
  POST /api/prov?action=record|verify|chain|reprove
  GET  /healthz
  GET  /metrics

SIGINT or SIGTERM stops accepting requests and waits for in-flight
requests, including proof generation, up to --grace.

Example:
  provledger serve
  provledger serve --addr 127.0.0.1:9090 --db ./ledger.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides http.addr)")
	cmd.Flags().DurationVar(&opts.Grace, "grace", 0, "shutdown grace period (default: proof.timeout + 5s)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := openApp(opts.RootOptions, cmd, ledger.WithMetrics(ledger.NewMetrics(reg)))
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.HTTP.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	grace := opts.Grace
	if grace <= 0 {
		grace = a.cfg.Proof.Timeout + 5*time.Second
	}

	srv := api.New(a.ledger, api.Options{
		Logger:         a.logger,
		Registry:       reg,
		RateLimitRPS:   a.cfg.HTTP.RateLimitRPS,
		RateLimitBurst: a.cfg.HTTP.RateLimitBurst,
		CORSOrigins:    a.cfg.HTTP.CORSOrigins,
		ProofCheck:     a.engine.Load,
	})

	// Use command's context if available (for testing)
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving ledger %s on %s\n", a.cfg.Ledger.DBPath, addr)
	if err := srv.ListenAndServe(ctx, addr, grace); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	a.logger.Info("server stopped gracefully")
	return nil
}
