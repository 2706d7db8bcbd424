package validation

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/delegator/pkg/models"
)

// Outcome is what a Checker concludes about one requirement.
type Outcome struct {
	Status      models.VerdictStatus
	Confidence  float64
	Explanation string
	Details     string
	Class       models.ViolationClass
}

// Checker scores lower-cased candidate text against one parsable requirement.
type Checker func(m TextMatcher, lowerText string, req models.RequirementStatement) Outcome

// Marker vocabularies for the non-event kinds.
var (
	continuityMarkers  = []string{"continuously", "ongoing", "while", "during", "throughout", "maintain"}
	conditionalMarkers = []string{"if", "when", "condition", "check", "verify", "validate"}
	boundaryMarkers    = []string{"limit", "boundary", "constraint", "within", "outside", "exceed"}
)

// DefaultCheckers returns the checker table for every parsable kind.
func DefaultCheckers() map[models.RequirementKind]Checker {
	return map[models.RequirementKind]Checker{
		models.KindEventTriggered: checkEventTriggered,
		models.KindContinuous:     checkContinuous,
		models.KindConditional:    checkConditional,
		models.KindBoundary:       checkBoundary,
	}
}

func checkEventTriggered(m TextMatcher, text string, req models.RequirementStatement) Outcome {
	triggerOK := triggerAddressed(m, text, req.Trigger)
	behaviorOK := behaviorImplemented(m, text, req.Behavior)

	switch {
	case triggerOK && behaviorOK:
		return Outcome{
			Status:      models.VerdictPassed,
			Confidence:  0.85,
			Explanation: "Event-triggered behavior correctly implemented for: " + req.Trigger,
			Details:     fmt.Sprintf("Output addresses trigger %q and implements required behavior %q", req.Trigger, req.Behavior),
		}
	case !triggerOK:
		return Outcome{
			Status:      models.VerdictFailed,
			Confidence:  0.9,
			Explanation: "Trigger condition not addressed: " + req.Trigger,
			Details:     "Implementation does not handle the specified trigger condition",
			Class:       models.ViolationTriggerMissing,
		}
	default:
		return Outcome{
			Status:      models.VerdictFailed,
			Confidence:  0.8,
			Explanation: "Required behavior not implemented: " + req.Behavior,
			Details:     "Implementation addresses trigger but does not implement required behavior",
			Class:       models.ViolationBehaviorMissing,
		}
	}
}

// markedKind describes one of the marker-gated kinds.
type markedKind struct {
	markers        []string
	markerName     string
	passConfidence float64
	failConfidence float64
	passMessage    string
	failMessage    string
}

var (
	continuousKind = markedKind{
		markers:        continuityMarkers,
		markerName:     "continuity",
		passConfidence: 0.8,
		failConfidence: 0.85,
		passMessage:    "Continuous behavior correctly implemented for: %s",
		failMessage:    "Continuous behavior not implemented for: %s",
	}
	conditionalKind = markedKind{
		markers:        conditionalMarkers,
		markerName:     "conditional",
		passConfidence: 0.82,
		failConfidence: 0.87,
		passMessage:    "Conditional behavior correctly implemented for: %s",
		failMessage:    "Conditional logic not properly implemented for: %s",
	}
	boundaryKind = markedKind{
		markers:        boundaryMarkers,
		markerName:     "boundary",
		passConfidence: 0.83,
		failConfidence: 0.88,
		passMessage:    "Boundary condition correctly handled for: %s",
		failMessage:    "Boundary condition not properly handled for: %s",
	}
)

func checkContinuous(m TextMatcher, text string, req models.RequirementStatement) Outcome {
	return continuousKind.check(m, text, req)
}

func checkConditional(m TextMatcher, text string, req models.RequirementStatement) Outcome {
	return conditionalKind.check(m, text, req)
}

func checkBoundary(m TextMatcher, text string, req models.RequirementStatement) Outcome {
	return boundaryKind.check(m, text, req)
}

// check passes only when a marker is present and both the trigger and the
// behavior overlap the text. Overlap failures take precedence over a
// missing marker when classifying.
func (k markedKind) check(m TextMatcher, text string, req models.RequirementStatement) Outcome {
	markerOK := hasMarker(text, k.markers)
	triggerOK := triggerAddressed(m, text, req.Trigger)
	behaviorOK := behaviorImplemented(m, text, req.Behavior)

	if markerOK && triggerOK && behaviorOK {
		return Outcome{
			Status:      models.VerdictPassed,
			Confidence:  k.passConfidence,
			Explanation: fmt.Sprintf(k.passMessage, req.Trigger),
			Details:     fmt.Sprintf("Implementation includes %s patterns and addresses condition %q", k.markerName, req.Trigger),
		}
	}

	out := Outcome{
		Status:      models.VerdictFailed,
		Confidence:  k.failConfidence,
		Explanation: fmt.Sprintf(k.failMessage, req.Trigger),
	}
	switch {
	case !triggerOK:
		out.Class = models.ViolationTriggerMissing
		out.Details = "Trigger condition not addressed: " + req.Trigger
	case !behaviorOK:
		out.Class = models.ViolationBehaviorMissing
		out.Details = "Required behavior not implemented: " + req.Behavior
	default:
		out.Class = models.ViolationMarkerMissing
		out.Details = fmt.Sprintf("Incomplete implementation: no %s marker (%s) found", k.markerName, strings.Join(k.markers, ", "))
	}
	return out
}
