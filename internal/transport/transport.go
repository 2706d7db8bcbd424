// Package transport delivers delegation prompts to an agent and returns
// its free-text output.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ShayCichocki/delegator/pkg/models"
)

var (
	// ErrTransport wraps every failure to obtain agent output.
	ErrTransport = errors.New("delegation transport failed")
	// ErrNoAPIKey is returned when no Anthropic API key is configured.
	ErrNoAPIKey = errors.New("ANTHROPIC_API_KEY environment variable is not set")
)

// Request is one delegation call.
type Request struct {
	// AgentName is the delegate, without the leading @.
	AgentName string
	// Task is the plain task description.
	Task string
	// Prompt is the rendered delegation prompt.
	Prompt string
	// Attempt is the 1-based attempt index within the session.
	Attempt int
	// Context is the EARS context the prompt was rendered from.
	Context models.EARSContext
}

// Response is the agent's reply.
type Response struct {
	Output       string
	InputTokens  int64
	OutputTokens int64
}

// Delegator sends a request to an agent. It is the only blocking call in a
// delegation session and must honor ctx cancellation.
type Delegator interface {
	Delegate(ctx context.Context, req Request) (Response, error)
}

// Func adapts a function to Delegator.
type Func func(ctx context.Context, req Request) (Response, error)

// Delegate calls f(ctx, req).
func (f Func) Delegate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Scripted replays canned outputs, one per call, repeating the last output
// once the script runs out. It records every request it receives.
type Scripted struct {
	mu       sync.Mutex
	outputs  []string
	requests []Request
}

// NewScripted creates a scripted transport.
func NewScripted(outputs ...string) *Scripted {
	return &Scripted{outputs: outputs}
}

// Delegate returns the next scripted output.
func (s *Scripted) Delegate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if len(s.outputs) == 0 {
		return Response{}, fmt.Errorf("%w: no scripted output", ErrTransport)
	}
	i := len(s.requests) - 1
	if i >= len(s.outputs) {
		i = len(s.outputs) - 1
	}
	return Response{Output: s.outputs[i]}, nil
}

// Requests returns a copy of the requests received so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

const demoVagueReply = "I'll implement the requested functionality. The implementation will include appropriate handling and should work as expected."

// DemoReply returns the canned demo output for an attempt: a vague reply
// first, then one that addresses each acceptance criterion of ctx.
func DemoReply(ctx models.EARSContext, attempt int) string {
	if attempt <= 1 {
		return demoVagueReply
	}
	out := "Implementation addressing each acceptance criterion:\n"
	for _, ac := range ctx.AcceptanceCriteria {
		out += fmt.Sprintf("- %s: %s %s, the system will %s. We validate this within limits and check the condition continuously during operation.\n",
			ac.ID, ac.Kind.Keyword(), ac.Condition, ac.Behavior)
	}
	for _, c := range ctx.BehavioralContracts {
		out += "- Satisfies: " + c + "\n"
	}
	return out
}

// Demo returns a scripted transport for a single demo session, so the
// session exercises the retry path.
func Demo(ctx models.EARSContext) *Scripted {
	return NewScripted(DemoReply(ctx, 1), DemoReply(ctx, 2))
}

// DemoFunc is a stateless demo transport safe to share across sessions.
// It answers each request from its own attempt index and context.
func DemoFunc() Func {
	return func(ctx context.Context, req Request) (Response, error) {
		if err := ctx.Err(); err != nil {
			return Response{}, fmt.Errorf("%w: %v", ErrTransport, err)
		}
		return Response{Output: DemoReply(req.Context, req.Attempt)}, nil
	}
}
