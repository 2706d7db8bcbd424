package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/delegator/internal/delegation"
	"github.com/ShayCichocki/delegator/pkg/models"
)

// maxLogLines bounds the activity log.
const maxLogLines = 50

// EventMsg carries one orchestrator event into the program.
type EventMsg struct {
	Event delegation.Event
}

// StreamClosedMsg is sent once the event channel is drained and closed.
type StreamClosedMsg struct{}

// SessionDoneMsg carries the finished session, or the error that
// prevented it from starting.
type SessionDoneMsg struct {
	Session *models.DelegationSession
	Err     error
}

// AttemptRow is one line of the attempts panel.
type AttemptRow struct {
	Index    int
	Score    int
	Result   models.OverallResult
	Strategy string
	Running  bool
}

// LogEntry represents a line in the activity log.
type LogEntry struct {
	Timestamp time.Time
	Message   string
	Error     bool
}

// SessionView is the bubbletea model for a single delegation session.
type SessionView struct {
	events <-chan delegation.Event

	sessionID string
	agent     string
	task      string
	status    models.SessionStatus
	fallback  string
	retry     string
	attempts  []AttemptRow
	logs      []LogEntry
	session   *models.DelegationSession
	err       error
	done      bool
	quitting  bool
	width     int

	spinner spinner.Model

	titleStyle lipgloss.Style
	labelStyle lipgloss.Style
	passStyle  lipgloss.Style
	warnStyle  lipgloss.Style
	failStyle  lipgloss.Style
	dimStyle   lipgloss.Style
	boxStyle   lipgloss.Style
}

// NewSessionView creates a view that reads events from ch until it closes.
func NewSessionView(agent, task string, ch <-chan delegation.Event) *SessionView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &SessionView{
		events:  ch,
		agent:   agent,
		task:    task,
		status:  models.SessionInProgress,
		spinner: sp,
		width:   80,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")),
		labelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12),
		passStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
		warnStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		failStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		dimStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		boxStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1),
	}
}

// WaitForEvent returns a command that reads the next event from ch.
func WaitForEvent(ch <-chan delegation.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return StreamClosedMsg{}
		}
		return EventMsg{Event: e}
	}
}

// Init implements tea.Model.
func (v *SessionView) Init() tea.Cmd {
	return tea.Batch(v.spinner.Tick, WaitForEvent(v.events))
}

// Update implements tea.Model.
func (v *SessionView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			v.quitting = true
			return v, tea.Quit
		}

	case tea.WindowSizeMsg:
		v.width = msg.Width

	case spinner.TickMsg:
		if v.done {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case EventMsg:
		v.apply(msg.Event)
		return v, WaitForEvent(v.events)

	case StreamClosedMsg:
		return v, nil

	case SessionDoneMsg:
		v.done = true
		v.session = msg.Session
		v.err = msg.Err
		if msg.Session != nil {
			v.status = msg.Session.Status
			v.sessionID = msg.Session.ID
		}
		if msg.Err != nil {
			v.status = models.SessionFailed
			v.log(msg.Err.Error(), true)
		}
	}
	return v, nil
}

// apply folds one event into the view state.
func (v *SessionView) apply(e delegation.Event) {
	if e.SessionID != "" {
		v.sessionID = e.SessionID
	}
	if e.Status != "" {
		v.status = e.Status
	}

	switch e.Type {
	case delegation.EventAttemptStarted:
		v.attempts = append(v.attempts, AttemptRow{Index: e.Attempt, Strategy: v.retry, Running: true})
		v.retry = ""
	case delegation.EventAttemptValidated:
		if row := v.attempt(e.Attempt); row != nil {
			row.Score = e.Score
			row.Result = e.Result
			row.Running = false
		}
	case delegation.EventRetryChosen:
		// Labels the attempt that follows.
		v.retry = e.Strategy
	case delegation.EventFallbackChosen:
		v.fallback = e.Strategy
	case delegation.EventSessionFinished:
		for i := range v.attempts {
			v.attempts[i].Running = false
		}
	}

	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.Error != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Error)
	}
	v.logAt(e.Timestamp, msg, e.Error != nil)
}

// attempt returns the row for a 1-based attempt index.
func (v *SessionView) attempt(index int) *AttemptRow {
	for i := len(v.attempts) - 1; i >= 0; i-- {
		if v.attempts[i].Index == index {
			return &v.attempts[i]
		}
	}
	return nil
}

func (v *SessionView) log(msg string, isErr bool) {
	v.logAt(time.Now(), msg, isErr)
}

func (v *SessionView) logAt(ts time.Time, msg string, isErr bool) {
	v.logs = append(v.logs, LogEntry{Timestamp: ts, Message: msg, Error: isErr})
	if len(v.logs) > maxLogLines {
		v.logs = v.logs[len(v.logs)-maxLogLines:]
	}
}

// View implements tea.Model.
func (v *SessionView) View() string {
	if v.quitting && !v.done {
		return "Cancelled.\n"
	}

	var sb strings.Builder
	sb.WriteString(v.titleStyle.Render("Delegation @" + v.agent))
	sb.WriteString("\n")
	sb.WriteString(v.labelStyle.Render("Session") + v.sessionID + "\n")
	sb.WriteString(v.labelStyle.Render("Task") + v.task + "\n")
	sb.WriteString(v.labelStyle.Render("Status") + v.renderStatus() + "\n")
	if v.fallback != "" {
		sb.WriteString(v.labelStyle.Render("Fallback") + v.warnStyle.Render(v.fallback) + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(v.boxStyle.Render(v.renderAttempts()))
	sb.WriteString("\n\n")
	sb.WriteString(v.renderLogs())
	sb.WriteString("\n")
	if v.done {
		sb.WriteString(v.dimStyle.Render("Press q to exit"))
	} else {
		sb.WriteString(v.dimStyle.Render("q to cancel"))
	}
	sb.WriteString("\n")
	return sb.String()
}

func (v *SessionView) renderStatus() string {
	s := string(v.status)
	switch v.status {
	case models.SessionSuccess, models.SessionSuccessAfterRetry:
		return v.passStyle.Render("✓ " + s)
	case models.SessionFallbackSuccess:
		return v.warnStyle.Render("↪ " + s)
	case models.SessionFailed:
		return v.failStyle.Render("✗ " + s)
	default:
		return v.spinner.View() + " " + s
	}
}

func (v *SessionView) renderAttempts() string {
	if len(v.attempts) == 0 {
		return v.dimStyle.Render("Waiting for first attempt")
	}
	lines := make([]string, 0, len(v.attempts))
	for _, a := range v.attempts {
		line := fmt.Sprintf("Attempt %d", a.Index)
		if a.Strategy != "" {
			line += v.dimStyle.Render(" (" + a.Strategy + ")")
		}
		switch {
		case a.Running && !v.done:
			line += "  " + v.spinner.View()
		case a.Result == "":
			line += "  " + v.failStyle.Render("no output")
		default:
			line += "  " + v.scoreStyle(a.Result).Render(fmt.Sprintf("%3d/100 %s", a.Score, a.Result))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (v *SessionView) scoreStyle(r models.OverallResult) lipgloss.Style {
	switch r {
	case models.ResultPassed:
		return v.passStyle
	case models.ResultConditionalPass:
		return v.warnStyle
	default:
		return v.failStyle
	}
}

func (v *SessionView) renderLogs() string {
	start := 0
	if len(v.logs) > 10 {
		start = len(v.logs) - 10
	}
	var sb strings.Builder
	for _, entry := range v.logs[start:] {
		line := fmt.Sprintf("%s %s", entry.Timestamp.Format("15:04:05"), entry.Message)
		if entry.Error {
			line = v.failStyle.Render(line)
		} else {
			line = v.dimStyle.Render(line)
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

// Session returns the finished session, nil until SessionDoneMsg arrives.
func (v *SessionView) Session() *models.DelegationSession {
	return v.session
}

// Err returns the error reported with SessionDoneMsg.
func (v *SessionView) Err() error {
	return v.err
}

// NewSessionProgram creates a program for the view. The caller runs the
// delegation, then sends SessionDoneMsg.
func NewSessionProgram(agent, task string, ch <-chan delegation.Event) (*tea.Program, *SessionView) {
	view := NewSessionView(agent, task, ch)
	return tea.NewProgram(view), view
}
