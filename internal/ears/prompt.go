package ears

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/delegator/pkg/models"
)

// maxPromptContracts bounds how many behavioral contracts are listed in a prompt.
const maxPromptContracts = 3

// BuildPrompt renders the delegation prompt for an agent: the acceptance
// criteria, the leading behavioral contracts, background context and any
// retry guidance the context carries.
func BuildPrompt(agentName, task string, c models.EARSContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "@%s:\n\n", agentName)
	fmt.Fprintf(&sb, "Please %s following these EARS acceptance criteria:\n\n", task)

	sb.WriteString("**Required Acceptance Criteria:**\n")
	for _, ac := range c.AcceptanceCriteria {
		fmt.Fprintf(&sb, "- %s: %s\n", ac.ID, ac.Contract())
	}

	sb.WriteString("\n**Behavioral Contracts:**\n")
	for _, bc := range c.BehavioralContracts[:min(len(c.BehavioralContracts), maxPromptContracts)] {
		fmt.Fprintf(&sb, "- %s\n", bc)
	}

	sb.WriteString("\n**Context:**\n")
	fmt.Fprintf(&sb, "- Feature: %s\n", c.Minimal.FeatureSummary)
	fmt.Fprintf(&sb, "- Constraints: %s\n", strings.Join(c.Minimal.Constraints, ", "))
	fmt.Fprintf(&sb, "- Dependencies: %s\n", strings.Join(c.Minimal.Dependencies, ", "))
	if len(c.Minimal.ArchitecturalConstraints) > 0 {
		fmt.Fprintf(&sb, "- Architecture: %s\n", strings.Join(c.Minimal.ArchitecturalConstraints, "; "))
	}
	if c.Minimal.TaskFocus != "" && c.Minimal.TaskFocus != GeneralFocus {
		fmt.Fprintf(&sb, "- Focus: %s\n", c.Minimal.TaskFocus)
	}

	for _, g := range c.Guidance {
		writeGuidance(&sb, g)
	}

	sb.WriteString("\n**Expected Output:**\n")
	sb.WriteString("Implementation that satisfies all specified EARS acceptance criteria with clear validation against behavioral contracts.\n")
	sb.WriteString("\n**Validation Required:** All outputs will be validated against the original EARS behavioral contracts before integration.\n")

	return sb.String()
}

func writeGuidance(sb *strings.Builder, g models.Guidance) {
	fmt.Fprintf(sb, "\n**Retry Guidance (%s):**\n", g.Strategy)
	if len(g.Failures) > 0 {
		sb.WriteString("Previous attempt failed on:\n")
		for _, f := range g.Failures {
			fmt.Fprintf(sb, "- %s\n", f)
		}
	}
	for _, item := range g.Items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
	if len(g.Examples) > 0 {
		sb.WriteString("Examples:\n")
		for _, k := range sortedKeys(g.Examples) {
			fmt.Fprintf(sb, "- %s: %s\n", k, g.Examples[k])
		}
	}
	if len(g.Checkpoints) > 0 {
		sb.WriteString("Checkpoints:\n")
		for _, cp := range g.Checkpoints {
			fmt.Fprintf(sb, "- [ ] %s\n", cp)
		}
	}
}
