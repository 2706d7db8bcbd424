package main

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/delegator/internal/delegation"
	"github.com/ShayCichocki/delegator/internal/server"
	"github.com/ShayCichocki/delegator/internal/transport"
	"github.com/ShayCichocki/delegator/internal/validation"
)

var (
	serveAddr string
	serveDemo bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the validation and delegation HTTP API",
	Long: `Serve the HTTP API:

  GET  /v1/health              health check
  POST /v1/validate            score output against contracts
  POST /v1/delegate            run a delegation session
  GET  /v1/metrics/delegation  delegation metrics snapshot
  GET  /metrics                Prometheus metrics
  GET  /openapi.json           OpenAPI document`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config server.addr)")
	serveCmd.Flags().BoolVar(&serveDemo, "demo", false, "Answer delegations with a scripted delegate")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	var t transport.Delegator
	if serveDemo {
		t = transport.DemoFunc()
	} else {
		d, err := transport.NewAnthropic(cfg.Transport(), logger)
		if err != nil {
			return err
		}
		t = d
	}

	ex, c, err := openExtractor()
	if err != nil {
		return err
	}
	defer c.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	orch := delegation.NewOrchestrator(t,
		delegation.WithLogger(logger),
		delegation.WithCollector(delegation.NewCollector(cfg.Delegation.HistorySize)),
	)
	handler, err := server.New(server.Config{
		Orchestrator: orch,
		Validator:    validation.NewValidator(validation.WithLogger(logger)),
		Extractor:    ex,
		Registry:     reg,
		Options:      cfg.Options(),
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	return server.Serve(ctx, addr, handler, logger)
}
