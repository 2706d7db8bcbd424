// Package tui provides the terminal view for a running delegation.
//
// The view is read-only. It follows the orchestrator's event stream and
// shows each attempt's score, the chosen retry and fallback strategies,
// and an activity log. Users can only quit with 'q' or Ctrl+C.
//
// Usage:
//
//	emitter := delegation.NewEventEmitter(64, logger)
//	program, view := tui.NewSessionProgram(agent, task, emitter.Events())
//	go func() {
//	    s, err := orch.Delegate(ctx, agent, task, earsCtx, opts)
//	    emitter.Close()
//	    program.Send(tui.SessionDoneMsg{Session: s, Err: err})
//	}()
//	_, err := program.Run()
package tui
