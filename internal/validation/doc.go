// Package validation scores delegated output against EARS behavioral
// contracts.
//
// # Overview
//
// Each requirement statement is routed to the checker registered for its
// kind:
//
//   - EVENT_TRIGGERED (WHEN): trigger and behavior word overlap
//   - CONTINUOUS (WHILE): overlap plus a continuity marker
//   - CONDITIONAL (IF): overlap plus a conditional marker
//   - BOUNDARY (WHERE): overlap plus a boundary marker
//
// Trigger overlap needs ceil(60%) of the trigger's significant words and
// behavior overlap needs ceil(50%) of the behavior's. A word is significant
// when it is longer than two characters and not a stop word.
//
// Unparsable statements become warnings rather than errors, and a panic
// inside one checker fails only that requirement.
//
// # Usage
//
//	v := validation.NewValidator(validation.WithLogger(logger))
//	agg := v.ValidateContracts(output, []string{
//	    "AC-1: WHEN user submits login SHALL validate credentials within 200ms",
//	})
//	if !agg.Result.Acceptable() {
//	    report := validation.Report(agg)
//	    ...
//	}
//
// # Scoring
//
// The aggregate score is round(passed/total*100). The result is PASSED with
// no failed verdicts, CONDITIONAL_PASS with at most two failures and a score
// of at least 70, and FAILED otherwise. Warnings lower the score but are not
// critical violations.
//
// # Matching
//
// Word presence is decided by a TextMatcher. KeywordMatcher uses substring
// containment widened by a token-level fuzzy rule; substitute another
// matcher with WithMatcher.
package validation
