package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ShayCichocki/delegator/internal/delegation"
	"github.com/ShayCichocki/delegator/internal/validation"
	"github.com/ShayCichocki/delegator/pkg/models"
)

const explanationWidth = 60

var (
	passColor = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed, color.Bold)
	headColor = color.New(color.FgCyan, color.Bold)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// statusColor picks the color for a verdict, result or session status.
// Verdicts and overall results share the "PASSED" spelling.
func statusColor(status string) *color.Color {
	switch status {
	case string(models.VerdictPassed),
		string(models.SessionSuccess), string(models.SessionSuccessAfterRetry):
		return passColor
	case string(models.VerdictWarning), string(models.ResultConditionalPass),
		string(models.SessionFallbackSuccess), string(models.SessionInProgress):
		return warnColor
	default:
		return failColor
	}
}

func colored(status string) string {
	return statusColor(status).Sprint(status)
}

func panel(lines ...string) string {
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w)
	headColor.Fprintln(w, title)
}

func bullets(w io.Writer, items []string) {
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

// Validation renders a validation report.
func Validation(w io.Writer, r validation.ValidationReport) {
	validationBody(w, r)
	heading(w, "Next steps")
	bullets(w, r.NextSteps)
}

func validationBody(w io.Writer, r validation.ValidationReport) {
	s := r.ExecutiveSummary
	fmt.Fprintln(w, panel(
		"Contract validation: "+colored(string(s.Result)),
		fmt.Sprintf("Score %d/100  contracts %d  critical %d  warnings %d",
			s.Score, s.ContractsValidated, s.CriticalIssues, s.Warnings),
	))

	if len(r.ContractAnalysis) > 0 {
		tw := newTable(w)
		tw.AppendHeader(table.Row{"#", "Contract", "Kind", "Status", "Confidence", "Class"})
		for i, c := range r.ContractAnalysis {
			tw.AppendRow(table.Row{
				i + 1, shorten(c.Contract, explanationWidth), c.Kind, colored(string(c.Status)),
				fmt.Sprintf("%.2f", c.Confidence), c.Class,
			})
		}
		tw.Render()
	}

	if len(r.CriticalViolations) > 0 {
		heading(w, "Critical violations")
		for _, v := range r.CriticalViolations {
			fmt.Fprintf(w, "  %s %s\n", failColor.Sprint("✗"), v.Violation)
			if v.Contract != "" {
				fmt.Fprintf(w, "    %s\n", v.Contract)
			}
		}
	}

	for _, rec := range r.Recommendations {
		heading(w, fmt.Sprintf("%s: %s", rec.Type, rec.Message))
		bullets(w, rec.Actions)
	}
}

// Session renders a delegation session report.
func Session(w io.Writer, r delegation.SessionReport) {
	s := r.Summary
	lines := []string{
		fmt.Sprintf("Session %s: %s", s.ID, colored(string(s.Status))),
		fmt.Sprintf("@%s  %s", s.AgentName, s.Task),
		fmt.Sprintf("Attempts %d  scores %s  duration %s", s.Attempts, joinInts(s.Scores), s.Duration.Round(time.Millisecond)),
	}
	if s.RetryStrategy != "" {
		lines = append(lines, "Retry strategy: "+s.RetryStrategy)
	}
	if s.FallbackStrategy != "" {
		lines = append(lines, "Fallback strategy: "+s.FallbackStrategy)
	}
	if s.Error != "" {
		lines = append(lines, failColor.Sprint("Error: ")+s.Error)
	}
	fmt.Fprintln(w, panel(lines...))

	if r.Validation != nil {
		heading(w, "Final attempt")
		validationBody(w, *r.Validation)
	}

	if fb := r.Fallback; fb != nil {
		heading(w, fmt.Sprintf("Fallback %s (%s)", fb.Strategy, fb.Mode))
		fmt.Fprintf(w, "  %s\n", fb.Message)
		if fb.TargetAgent != "" {
			fmt.Fprintf(w, "  Target agent: @%s\n", fb.TargetAgent)
		}
		if fb.Urgency != "" {
			fmt.Fprintf(w, "  Urgency: %s\n", fb.Urgency)
		}
		bullets(w, fb.Guidance)
		if len(fb.CommonFailures) > 0 {
			tw := newTable(w)
			tw.AppendHeader(table.Row{"Failure", "Count"})
			for _, f := range fb.CommonFailures {
				tw.AppendRow(table.Row{shorten(f.Reason, explanationWidth), f.Frequency})
			}
			tw.Render()
		}
		if len(fb.Limitations) > 0 {
			heading(w, "Limitations")
			bullets(w, fb.Limitations)
		}
	}

	heading(w, "Next steps")
	bullets(w, r.NextSteps)
}

// Metrics renders a collector snapshot.
func Metrics(w io.Writer, m delegation.Metrics) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Total delegations", m.TotalDelegations},
		{"Success on first try", m.SuccessOnFirstTry},
		{"Success after retry", m.SuccessAfterRetry},
		{"Fallbacks triggered", m.FallbacksTriggered},
		{"Failed", m.Failed},
		{"Success rate", fmt.Sprintf("%.1f%%", m.SuccessRate)},
		{"First-try success rate", fmt.Sprintf("%.1f%%", m.FirstTrySuccessRate)},
		{"Retry success rate", fmt.Sprintf("%.1f%%", m.RetrySuccessRate)},
		{"Fallback rate", fmt.Sprintf("%.1f%%", m.FallbackRate)},
		{"Average attempts", fmt.Sprintf("%.2f", m.AvgAttempts)},
		{"Average duration", m.AvgDuration.Round(time.Millisecond)},
	})
	tw.Render()

	if len(m.FailureReasons) > 0 {
		heading(w, "Top failure reasons")
		tw := newTable(w)
		tw.AppendHeader(table.Row{"Reason", "Count"})
		for _, f := range m.FailureReasons {
			tw.AppendRow(table.Row{shorten(f.Reason, explanationWidth), f.Frequency})
		}
		tw.Render()
	}

	if len(m.RecentHistory) > 0 {
		heading(w, "Recent sessions")
		tw := newTable(w)
		tw.AppendHeader(table.Row{"Session", "Agent", "Status", "Attempts", "Scores"})
		for _, h := range m.RecentHistory {
			tw.AppendRow(table.Row{h.SessionID, "@" + h.AgentName, colored(string(h.Status)), h.Attempts, joinInts(h.Scores)})
		}
		tw.Render()
	}
}

// Context renders an extracted EARS context.
func Context(w io.Writer, c models.EARSContext) {
	fmt.Fprintln(w, panel(
		"Requirement "+c.RequirementID,
		c.Minimal.FeatureSummary,
		"Focus: "+c.Minimal.TaskFocus,
	))

	if len(c.AcceptanceCriteria) > 0 {
		tw := newTable(w)
		tw.AppendHeader(table.Row{"ID", "Kind", "Condition", "Behavior"})
		for _, ac := range c.AcceptanceCriteria {
			tw.AppendRow(table.Row{ac.ID, ac.Kind.Keyword(), ac.Condition, ac.Behavior})
		}
		tw.Render()
	}

	heading(w, "Behavioral contracts")
	bullets(w, c.BehavioralContracts)
	heading(w, "Constraints")
	bullets(w, c.Minimal.Constraints)
	heading(w, "Dependencies")
	bullets(w, c.Minimal.Dependencies)
	if len(c.Minimal.ArchitecturalConstraints) > 0 {
		heading(w, "Architecture")
		bullets(w, c.Minimal.ArchitecturalConstraints)
	}
	if len(c.Minimal.ComponentInterfaces) > 0 {
		heading(w, "Components")
		for _, ci := range c.Minimal.ComponentInterfaces {
			fmt.Fprintf(w, "  - %s: %s\n", ci.Component, ci.Responsibility)
		}
	}
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
