package transport

import "sync"

// Pricing is the USD price per million tokens.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// SonnetPricing is the list price of the default model.
var SonnetPricing = Pricing{InputPerMillion: 3, OutputPerMillion: 15}

// Cost prices a token count.
func (p Pricing) Cost(input, output int64) float64 {
	return float64(input)/1_000_000*p.InputPerMillion + float64(output)/1_000_000*p.OutputPerMillion
}

// AttemptUsage is the token usage of one delegation attempt.
type AttemptUsage struct {
	Agent        string `json:"agent"`
	Attempt      int    `json:"attempt"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// UsageLedger records token usage per delegation attempt. Safe for
// concurrent sessions sharing one transport.
type UsageLedger struct {
	mu      sync.Mutex
	entries []AttemptUsage
}

// NewUsageLedger returns an empty ledger.
func NewUsageLedger() *UsageLedger {
	return &UsageLedger{}
}

// Record appends the usage reported for req.
func (l *UsageLedger) Record(req Request, input, output int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, AttemptUsage{
		Agent:        req.AgentName,
		Attempt:      req.Attempt,
		InputTokens:  input,
		OutputTokens: output,
	})
}

// Attempts returns a copy of the recorded entries in call order.
func (l *UsageLedger) Attempts() []AttemptUsage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AttemptUsage(nil), l.entries...)
}

// Totals sums input and output tokens over every attempt.
func (l *UsageLedger) Totals() (input, output int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		input += e.InputTokens
		output += e.OutputTokens
	}
	return input, output
}

// RetryShare is the fraction of output tokens spent on retry attempts.
func (l *UsageLedger) RetryShare() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var retry, total int64
	for _, e := range l.entries {
		total += e.OutputTokens
		if e.Attempt > 1 {
			retry += e.OutputTokens
		}
	}
	if total == 0 {
		return 0
	}
	return float64(retry) / float64(total)
}
