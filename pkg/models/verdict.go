package models

import "time"

// VerdictStatus is the outcome of checking text against one requirement.
type VerdictStatus string

const (
	VerdictPassed  VerdictStatus = "PASSED"
	VerdictFailed  VerdictStatus = "FAILED"
	VerdictWarning VerdictStatus = "WARNING"
)

// Valid returns true if the status is a known value.
func (s VerdictStatus) Valid() bool {
	switch s {
	case VerdictPassed, VerdictFailed, VerdictWarning:
		return true
	default:
		return false
	}
}

// OverallResult is the aggregate outcome over a requirement set.
type OverallResult string

const (
	ResultPassed          OverallResult = "PASSED"
	ResultConditionalPass OverallResult = "CONDITIONAL_PASS"
	ResultFailed          OverallResult = "FAILED"
)

// Valid returns true if the result is a known value.
func (r OverallResult) Valid() bool {
	switch r {
	case ResultPassed, ResultConditionalPass, ResultFailed:
		return true
	default:
		return false
	}
}

// Acceptable reports whether the result allows the output to be integrated.
func (r OverallResult) Acceptable() bool {
	return r == ResultPassed || r == ResultConditionalPass
}

// ViolationClass tags why a verdict did not pass. Retry strategy selection
// keys off this tag instead of the explanation text.
type ViolationClass string

const (
	// ViolationNone is carried by passed verdicts.
	ViolationNone ViolationClass = ""
	// ViolationTriggerMissing means the trigger condition was not addressed.
	ViolationTriggerMissing ViolationClass = "trigger_missing"
	// ViolationBehaviorMissing means the required behavior was not implemented.
	ViolationBehaviorMissing ViolationClass = "behavior_missing"
	// ViolationMarkerMissing means the kind-specific marker vocabulary was absent.
	ViolationMarkerMissing ViolationClass = "marker_missing"
	// ViolationUnparsable means the statement did not follow EARS syntax.
	ViolationUnparsable ViolationClass = "unparsable"
	// ViolationNoChecker means no checker is registered for the kind.
	ViolationNoChecker ViolationClass = "no_checker"
	// ViolationDefect means scoring the requirement hit an internal fault.
	ViolationDefect ViolationClass = "defect"
)

// DomainMatch records how strongly a verdict's text touches a domain
// keyword set (security, performance, ...). Informational only.
type DomainMatch struct {
	Domain          string   `json:"domain" yaml:"domain"`
	Description     string   `json:"description" yaml:"description"`
	MatchedKeywords []string `json:"matched_keywords" yaml:"matched_keywords"`
	Relevance       float64  `json:"relevance" yaml:"relevance"`
	Score           int      `json:"score" yaml:"score"`
}

// ValidationVerdict is the outcome of checking one candidate text against
// one requirement. Produced once and never mutated.
type ValidationVerdict struct {
	Requirement RequirementStatement `json:"requirement" yaml:"requirement"`
	Status      VerdictStatus        `json:"status" yaml:"status"`
	Confidence  float64              `json:"confidence" yaml:"confidence"`
	Explanation string               `json:"explanation" yaml:"explanation"`
	Details     string               `json:"details,omitempty" yaml:"details,omitempty"`
	Class       ViolationClass       `json:"class,omitempty" yaml:"class,omitempty"`
	Domains     []DomainMatch        `json:"domains,omitempty" yaml:"domains,omitempty"`
}

// RecommendationType groups recommendations by severity.
type RecommendationType string

const (
	RecommendationCritical    RecommendationType = "CRITICAL"
	RecommendationImprovement RecommendationType = "IMPROVEMENT"
	RecommendationEnhancement RecommendationType = "ENHANCEMENT"
)

// Recommendation is an actionable follow-up derived from a validation.
type Recommendation struct {
	Type    RecommendationType `json:"type" yaml:"type"`
	Message string             `json:"message" yaml:"message"`
	Actions []string           `json:"actions" yaml:"actions"`
}

// AggregateValidation summarises all verdicts for one candidate text.
type AggregateValidation struct {
	// Verdicts is in input requirement order.
	Verdicts []ValidationVerdict `json:"verdicts" yaml:"verdicts"`
	// Score is round(passed/total*100), 100 for an empty set.
	Score  int           `json:"score" yaml:"score"`
	Result OverallResult `json:"result" yaml:"result"`
	// CriticalViolations is the subsequence of failed verdicts.
	CriticalViolations []ValidationVerdict `json:"critical_violations" yaml:"critical_violations"`
	// Warnings is the subsequence of warning verdicts.
	Warnings        []ValidationVerdict `json:"warnings" yaml:"warnings"`
	Recommendations []Recommendation    `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
	// Timestamp records when validation ran. It is metadata and never
	// feeds the score, result or retry selection.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Passed returns the number of passed verdicts.
func (a AggregateValidation) Passed() int {
	n := 0
	for _, v := range a.Verdicts {
		if v.Status == VerdictPassed {
			n++
		}
	}
	return n
}

// Total returns the number of verdicts.
func (a AggregateValidation) Total() int {
	return len(a.Verdicts)
}

// HasViolationClass reports whether any critical violation carries the class.
func (a AggregateValidation) HasViolationClass(class ViolationClass) bool {
	for _, v := range a.CriticalViolations {
		if v.Class == class {
			return true
		}
	}
	return false
}
