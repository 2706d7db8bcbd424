package validation

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/delegator/internal/ears"
	"github.com/ShayCichocki/delegator/pkg/models"
)

// Result thresholds.
const (
	// conditionalPassMaxFailures is the most critical violations a
	// CONDITIONAL_PASS may carry.
	conditionalPassMaxFailures = 2
	// conditionalPassMinScore is the lowest score a CONDITIONAL_PASS may carry.
	conditionalPassMinScore = 70
)

// Confidence assigned to verdicts that never reach a checker.
const (
	unparsableConfidence = 0.3
	noCheckerConfidence  = 0.5
	defectConfidence     = 0.1
)

// Validator scores candidate text against behavioral requirements.
// It keeps no per-call state; only cumulative Stats are shared between
// calls. Safe for concurrent use.
type Validator struct {
	// matcher decides word presence.
	matcher TextMatcher
	// checkers maps each kind to its scoring function.
	checkers map[models.RequirementKind]Checker
	// logger receives per-contract debug output.
	logger *zap.Logger
	// now stamps aggregates.
	now func() time.Time
	// stats accumulates cross-call metrics.
	stats *Stats
}

// Option configures a Validator.
type Option func(*Validator)

// WithMatcher substitutes the text matcher.
func WithMatcher(m TextMatcher) Option {
	return func(v *Validator) { v.matcher = m }
}

// WithChecker replaces the checker for kind. A nil checker removes it, so
// requirements of that kind produce a no-checker warning.
func WithChecker(kind models.RequirementKind, c Checker) Option {
	return func(v *Validator) {
		if c == nil {
			delete(v.checkers, kind)
			return
		}
		v.checkers[kind] = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// NewValidator creates a validator using the keyword matcher and the
// default checker table.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		matcher:  KeywordMatcher{},
		checkers: DefaultCheckers(),
		logger:   zap.NewNop(),
		now:      time.Now,
		stats:    NewStats(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateContracts parses the contract strings and validates text against them.
func (v *Validator) ValidateContracts(text string, contracts []string) models.AggregateValidation {
	return v.Validate(text, ears.ParseAll(contracts))
}

// Validate scores text against every requirement in the set, in order.
// A fault while scoring one requirement only fails that requirement.
func (v *Validator) Validate(text string, set models.RequirementSet) models.AggregateValidation {
	start := time.Now()
	lower := strings.ToLower(text)

	agg := models.AggregateValidation{
		Verdicts:           make([]models.ValidationVerdict, 0, len(set.Statements)),
		CriticalViolations: []models.ValidationVerdict{},
		Warnings:           []models.ValidationVerdict{},
		Timestamp:          v.now(),
	}

	for i, req := range set.Statements {
		verdict := v.validateOne(lower, req)
		agg.Verdicts = append(agg.Verdicts, verdict)

		switch verdict.Status {
		case models.VerdictFailed:
			agg.CriticalViolations = append(agg.CriticalViolations, verdict)
		case models.VerdictWarning:
			agg.Warnings = append(agg.Warnings, verdict)
		}

		v.logger.Debug("contract validated",
			zap.Int("index", i+1),
			zap.Int("total", len(set.Statements)),
			zap.String("kind", string(req.Kind)),
			zap.String("status", string(verdict.Status)),
			zap.String("explanation", verdict.Explanation),
		)
	}

	agg.Score = Score(agg.Passed(), agg.Total())
	agg.Result = Classify(len(agg.CriticalViolations), agg.Score)
	agg.Recommendations = Recommend(agg)

	elapsed := time.Since(start)
	v.stats.record(agg, elapsed)

	v.logger.Debug("validation complete",
		zap.String("result", string(agg.Result)),
		zap.Int("score", agg.Score),
		zap.Int("critical", len(agg.CriticalViolations)),
		zap.Int("warnings", len(agg.Warnings)),
		zap.String("output", Sanitize(text)),
		zap.Duration("elapsed", elapsed),
	)
	return agg
}

// validateOne produces the verdict for a single requirement, converting
// a checker panic into a failed verdict.
func (v *Validator) validateOne(lowerText string, req models.RequirementStatement) (verdict models.ValidationVerdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = models.ValidationVerdict{
				Requirement: req,
				Status:      models.VerdictFailed,
				Confidence:  defectConfidence,
				Explanation: fmt.Sprintf("Contract validation error: %v", r),
				Details:     "Internal validation engine error",
				Class:       models.ViolationDefect,
			}
		}
	}()

	if !req.Parsable() {
		return models.ValidationVerdict{
			Requirement: req,
			Status:      models.VerdictWarning,
			Confidence:  unparsableConfidence,
			Explanation: "Contract format not recognized as valid EARS syntax",
			Details:     "Contract may not follow EARS format (WHEN/WHILE/IF/WHERE + SHALL)",
			Class:       models.ViolationUnparsable,
		}
	}

	check, ok := v.checkers[req.Kind]
	if !ok {
		return models.ValidationVerdict{
			Requirement: req,
			Status:      models.VerdictWarning,
			Confidence:  noCheckerConfidence,
			Explanation: "No validator available for contract type: " + string(req.Kind),
			Details:     "Contract type recognized but no specific validation logic implemented",
			Class:       models.ViolationNoChecker,
		}
	}

	out := check(v.matcher, lowerText, req)
	return models.ValidationVerdict{
		Requirement: req,
		Status:      out.Status,
		Confidence:  out.Confidence,
		Explanation: out.Explanation,
		Details:     out.Details,
		Class:       out.Class,
		Domains:     tagDomains(lowerText),
	}
}

// Stats returns a snapshot of the cumulative validation metrics.
func (v *Validator) Stats() StatsSnapshot {
	return v.stats.Snapshot()
}

// ResetStats clears the cumulative validation metrics.
func (v *Validator) ResetStats() {
	v.stats.Reset()
}

// Score is round(passed/total*100); an empty set scores 100.
func Score(passed, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(passed) / float64(total) * 100))
}

// Classify derives the overall result from the critical violation count
// and score.
func Classify(critical, score int) models.OverallResult {
	switch {
	case critical == 0:
		return models.ResultPassed
	case critical <= conditionalPassMaxFailures && score >= conditionalPassMinScore:
		return models.ResultConditionalPass
	default:
		return models.ResultFailed
	}
}
