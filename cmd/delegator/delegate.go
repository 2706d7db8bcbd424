package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShayCichocki/delegator/internal/delegation"
	"github.com/ShayCichocki/delegator/internal/report"
	"github.com/ShayCichocki/delegator/internal/transport"
	"github.com/ShayCichocki/delegator/internal/tui"
	"github.com/ShayCichocki/delegator/pkg/models"
)

// eventBuffer sizes the channel feeding the session view.
const eventBuffer = 64

var (
	delegateSource   contractSource
	delegateDemo     bool
	delegateTUI      bool
	delegateDirect   bool
	delegateEscalate bool
)

var delegateCmd = &cobra.Command{
	Use:   "delegate <agent> <task>",
	Short: "Delegate a task and validate the reply",
	Long: `Send a task to the named agent, validate the reply against the
contracts, retry once with enriched context when it falls short, and fall
back when the retry does not help.

Examples:
  delegator delegate backend-dev "implement login" --requirements requirements.md --task-id AC-1
  delegator delegate backend-dev "implement login" -c "WHEN user submits login SHALL validate credentials" --tui
  delegator delegate backend-dev "implement login" --set contracts.yaml --demo`,
	Args: cobra.ExactArgs(2),
	RunE: runDelegate,
}

func init() {
	delegateSource.register(delegateCmd)
	delegateCmd.Flags().BoolVar(&delegateDemo, "demo", false, "Use a scripted delegate instead of the API")
	delegateCmd.Flags().BoolVar(&delegateTUI, "tui", false, "Show a live session view")
	delegateCmd.Flags().BoolVar(&delegateDirect, "allow-direct", true, "Allow the direct implementation fallback")
	delegateCmd.Flags().BoolVar(&delegateEscalate, "allow-escalation", false, "Allow the human escalation fallback")
}

func runDelegate(cmd *cobra.Command, args []string) error {
	agent, task := args[0], args[1]
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ex, c, err := openExtractor()
	if err != nil {
		return err
	}
	defer c.Close()

	earsCtx, err := delegateSource.resolve(ctx, ex)
	if err != nil {
		return err
	}

	opts := cfg.Options()
	if cmd.Flags().Changed("allow-direct") {
		opts.AllowDirectImplementation = delegateDirect
	}
	if cmd.Flags().Changed("allow-escalation") {
		opts.AllowHumanEscalation = delegateEscalate
	}

	t, usage, err := newTransport(earsCtx)
	if err != nil {
		return err
	}

	orchOpts := []delegation.OrchestratorOption{
		delegation.WithLogger(logger),
		delegation.WithCollector(delegation.NewCollector(cfg.Delegation.HistorySize)),
	}

	var session *models.DelegationSession
	if delegateTUI {
		session, err = delegateWithTUI(ctx, t, orchOpts, agent, task, earsCtx, opts)
	} else {
		session, err = delegation.NewOrchestrator(t, orchOpts...).Delegate(ctx, agent, task, earsCtx, opts)
	}
	if err != nil {
		return err
	}

	if usage != nil {
		for _, a := range usage.Attempts() {
			logger.Debug("attempt token usage",
				zap.Int("attempt", a.Attempt),
				zap.Int64("input_tokens", a.InputTokens),
				zap.Int64("output_tokens", a.OutputTokens),
			)
		}
		in, out := usage.Totals()
		logger.Info("token usage",
			zap.Int64("input_tokens", in),
			zap.Int64("output_tokens", out),
			zap.Float64("retry_share", usage.RetryShare()),
			zap.Float64("cost_usd", transport.SonnetPricing.Cost(in, out)),
		)
	}

	r := delegation.Report(session)
	payload := struct {
		Session *models.DelegationSession `json:"session" yaml:"session"`
		Report  delegation.SessionReport  `json:"report" yaml:"report"`
	}{session, r}
	if err := render(cmd.OutOrStdout(), payload, func(w io.Writer) { report.Session(w, r) }); err != nil {
		return err
	}
	if session.Status == models.SessionFailed {
		return fmt.Errorf("delegation failed: %s", session.Error)
	}
	return nil
}

// newTransport returns the configured delegate, or a scripted one in demo
// mode. The usage ledger is nil for scripted transports.
func newTransport(earsCtx models.EARSContext) (transport.Delegator, *transport.UsageLedger, error) {
	if delegateDemo {
		printStatus(color.Error, "⚠", "Demo mode: replies are scripted", color.FgYellow)
		return transport.Demo(earsCtx), nil, nil
	}
	d, err := transport.NewAnthropic(cfg.Transport(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create delegate transport: %w (set ANTHROPIC_API_KEY or use --demo)", err)
	}
	return d, d.Usage(), nil
}

// delegateWithTUI runs the session in the background while a live view
// follows its events.
func delegateWithTUI(ctx context.Context, t transport.Delegator, orchOpts []delegation.OrchestratorOption,
	agent, task string, earsCtx models.EARSContext, opts delegation.Options) (*models.DelegationSession, error) {
	// The view owns the terminal, so logs must not go to stderr.
	if cfg.Log.File == "" {
		orchOpts = append(orchOpts, delegation.WithLogger(zap.NewNop()))
	}
	emitter := delegation.NewEventEmitter(eventBuffer, logger)
	orchOpts = append(orchOpts, delegation.WithObserver(emitter))
	orch := delegation.NewOrchestrator(t, orchOpts...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	program, _ := tui.NewSessionProgram(agent, task, emitter.Events())
	var (
		session *models.DelegationSession
		runErr  error
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		session, runErr = orch.Delegate(runCtx, agent, task, earsCtx, opts)
		emitter.Close()
		program.Send(tui.SessionDoneMsg{Session: session, Err: runErr})
	}()

	_, viewErr := program.Run()
	// Quitting the view early cancels the session in flight.
	cancel()
	<-done
	if viewErr != nil {
		return nil, fmt.Errorf("session view: %w", viewErr)
	}
	return session, runErr
}
