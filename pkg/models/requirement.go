package models

import "strings"

// RequirementKind is the EARS pattern a requirement statement follows.
type RequirementKind string

const (
	// KindEventTriggered is a WHEN ... SHALL ... requirement.
	KindEventTriggered RequirementKind = "EVENT_TRIGGERED"
	// KindContinuous is a WHILE ... SHALL ... requirement.
	KindContinuous RequirementKind = "CONTINUOUS"
	// KindConditional is an IF ... SHALL ... requirement.
	KindConditional RequirementKind = "CONDITIONAL"
	// KindBoundary is a WHERE ... SHALL ... requirement.
	KindBoundary RequirementKind = "BOUNDARY"
	// KindUnknown marks a statement that could not be parsed.
	KindUnknown RequirementKind = "UNKNOWN"
)

// Valid returns true if the kind is a known value.
func (k RequirementKind) Valid() bool {
	switch k {
	case KindEventTriggered, KindContinuous, KindConditional, KindBoundary, KindUnknown:
		return true
	default:
		return false
	}
}

// Keyword returns the EARS trigger keyword for the kind.
func (k RequirementKind) Keyword() string {
	switch k {
	case KindEventTriggered:
		return "WHEN"
	case KindContinuous:
		return "WHILE"
	case KindConditional:
		return "IF"
	case KindBoundary:
		return "WHERE"
	default:
		return ""
	}
}

// KindForKeyword maps an EARS trigger keyword (any case) to its kind.
func KindForKeyword(keyword string) RequirementKind {
	switch strings.ToUpper(keyword) {
	case "WHEN":
		return KindEventTriggered
	case "WHILE":
		return KindContinuous
	case "IF":
		return KindConditional
	case "WHERE":
		return KindBoundary
	default:
		return KindUnknown
	}
}

// RequirementStatement is one parsed behavioral requirement.
// Values are never mutated after parsing.
type RequirementStatement struct {
	// ID is the optional identifier prefix (e.g. "AC-1").
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
	// Kind is the EARS pattern of the statement.
	Kind RequirementKind `json:"kind" yaml:"kind"`
	// Trigger is the condition text between the keyword and SHALL.
	Trigger string `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	// Behavior is the required response after SHALL.
	Behavior string `json:"behavior,omitempty" yaml:"behavior,omitempty"`
	// Raw is the source text the statement was parsed from.
	Raw string `json:"raw" yaml:"raw"`
}

// Parsable reports whether the statement can be checked by a validator.
func (r RequirementStatement) Parsable() bool {
	return r.Kind != KindUnknown && r.Kind.Valid() && r.Trigger != "" && r.Behavior != ""
}

// RequirementSet is an ordered list of statements plus the free-text
// contracts they were derived from.
type RequirementSet struct {
	Statements []RequirementStatement `json:"statements" yaml:"statements"`
	Contracts  []string               `json:"contracts,omitempty" yaml:"contracts,omitempty"`
}

// Len returns the number of statements in the set.
func (s RequirementSet) Len() int {
	return len(s.Statements)
}

// AcceptanceCriterion is one EARS criterion extracted from a requirements document.
type AcceptanceCriterion struct {
	ID        string          `json:"id" yaml:"id"`
	Kind      RequirementKind `json:"kind" yaml:"kind"`
	Condition string          `json:"condition" yaml:"condition"`
	Behavior  string          `json:"behavior" yaml:"behavior"`
	FullText  string          `json:"full_text" yaml:"full_text"`
}

// Contract renders the criterion as an EARS behavioral contract.
func (a AcceptanceCriterion) Contract() string {
	return a.Kind.Keyword() + " " + a.Condition + ", SHALL " + a.Behavior
}

// ComponentInterface is a component named in a design document.
type ComponentInterface struct {
	Component      string `json:"component" yaml:"component"`
	Responsibility string `json:"responsibility" yaml:"responsibility"`
}

// MinimalContext is the background information handed to a delegate.
type MinimalContext struct {
	FeatureSummary           string               `json:"feature_summary" yaml:"feature_summary"`
	Constraints              []string             `json:"constraints" yaml:"constraints"`
	Dependencies             []string             `json:"dependencies" yaml:"dependencies"`
	TaskFocus                string               `json:"task_focus" yaml:"task_focus"`
	ArchitecturalConstraints []string             `json:"architectural_constraints,omitempty" yaml:"architectural_constraints,omitempty"`
	ComponentInterfaces      []ComponentInterface `json:"component_interfaces,omitempty" yaml:"component_interfaces,omitempty"`
}

// Guidance is extra material injected into a context by a retry strategy.
// Each section is keyed by the strategy that produced it.
type Guidance struct {
	// Strategy is the retry strategy that produced this guidance.
	Strategy string `json:"strategy" yaml:"strategy"`
	// Failures lists the violation explanations that triggered the retry.
	Failures []string `json:"failures,omitempty" yaml:"failures,omitempty"`
	// Items is the ordered list of instructions for the delegate.
	Items []string `json:"items,omitempty" yaml:"items,omitempty"`
	// Examples maps a criterion or pattern to an illustrative hint.
	Examples map[string]string `json:"examples,omitempty" yaml:"examples,omitempty"`
	// Checkpoints are per-criterion verification steps.
	Checkpoints []string `json:"checkpoints,omitempty" yaml:"checkpoints,omitempty"`
}

// EARSContext is the execution context for a delegation: the acceptance
// criteria, the behavioral contracts to validate against, and background.
type EARSContext struct {
	RequirementID       string                `json:"requirement_id" yaml:"requirement_id"`
	AcceptanceCriteria  []AcceptanceCriterion `json:"acceptance_criteria" yaml:"acceptance_criteria"`
	BehavioralContracts []string              `json:"behavioral_contracts" yaml:"behavioral_contracts"`
	Minimal             MinimalContext        `json:"minimal_context" yaml:"minimal_context"`
	Guidance            []Guidance            `json:"guidance,omitempty" yaml:"guidance,omitempty"`
	SourceFiles         []string              `json:"source_files,omitempty" yaml:"source_files,omitempty"`
}

// Clone returns a deep copy of the context.
func (c EARSContext) Clone() EARSContext {
	out := c
	out.AcceptanceCriteria = append([]AcceptanceCriterion(nil), c.AcceptanceCriteria...)
	out.BehavioralContracts = append([]string(nil), c.BehavioralContracts...)
	out.SourceFiles = append([]string(nil), c.SourceFiles...)
	out.Minimal.Constraints = append([]string(nil), c.Minimal.Constraints...)
	out.Minimal.Dependencies = append([]string(nil), c.Minimal.Dependencies...)
	out.Minimal.ArchitecturalConstraints = append([]string(nil), c.Minimal.ArchitecturalConstraints...)
	out.Minimal.ComponentInterfaces = append([]ComponentInterface(nil), c.Minimal.ComponentInterfaces...)
	if c.Guidance != nil {
		out.Guidance = make([]Guidance, len(c.Guidance))
		for i, g := range c.Guidance {
			cp := g
			cp.Failures = append([]string(nil), g.Failures...)
			cp.Items = append([]string(nil), g.Items...)
			cp.Checkpoints = append([]string(nil), g.Checkpoints...)
			if g.Examples != nil {
				cp.Examples = make(map[string]string, len(g.Examples))
				for k, v := range g.Examples {
					cp.Examples[k] = v
				}
			}
			out.Guidance[i] = cp
		}
	}
	return out
}

// HasGuidance reports whether guidance from the named strategy is present.
func (c EARSContext) HasGuidance(strategy string) bool {
	for _, g := range c.Guidance {
		if g.Strategy == strategy {
			return true
		}
	}
	return false
}
