package report

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/delegator/internal/delegation"
	"github.com/ShayCichocki/delegator/internal/ears"
	"github.com/ShayCichocki/delegator/internal/transport"
	"github.com/ShayCichocki/delegator/internal/validation"
	"github.com/ShayCichocki/delegator/pkg/models"
)

var contracts = []string{
	"AC-1: WHEN user submits login SHALL validate credentials within 200ms",
	"AC-2: IF credentials are invalid SHALL display error message",
}

func init() {
	color.NoColor = true
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "text": FormatText, "json": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	agg := validation.NewValidator().ValidateContracts("nothing relevant", contracts)
	r := validation.Report(agg)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, r))
	var fromJSON validation.ValidationReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, models.ResultFailed, fromJSON.ExecutiveSummary.Result)

	buf.Reset()
	require.NoError(t, Encode(&buf, FormatYAML, r))
	assert.Contains(t, buf.String(), "executive_summary:")
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))

	assert.Error(t, Encode(&buf, FormatText, r))
}

func TestValidation(t *testing.T) {
	agg := validation.NewValidator().ValidateContracts("The system shows a welcome banner.", contracts)

	var buf bytes.Buffer
	Validation(&buf, validation.Report(agg))
	out := buf.String()

	assert.Contains(t, out, "Contract validation: FAILED")
	assert.Contains(t, out, "Critical violations")
	assert.Contains(t, out, "RETRY REQUIRED")
	assert.Contains(t, out, "EVENT_TRIGGERED")
}

func TestSession(t *testing.T) {
	o := delegation.NewOrchestrator(transport.NewScripted("The system shows a welcome banner."))
	s, err := o.Delegate(context.Background(), "backend-dev", "implement login",
		ears.ContextFromContracts("REQ-1", contracts), delegation.DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	Session(&buf, delegation.Report(s))
	out := buf.String()

	assert.Contains(t, out, string(models.SessionFallbackSuccess))
	assert.Contains(t, out, "@backend-dev")
	assert.Contains(t, out, "Fallback "+delegation.FallbackDirectImplementation)
	assert.Contains(t, out, "Implement functionality directly without delegation")
}

func TestSession_Failed(t *testing.T) {
	var buf bytes.Buffer
	Session(&buf, delegation.SessionReport{
		Summary:   delegation.SessionSummary{ID: "DEL-1", AgentName: "dev", Status: models.SessionFailed, Error: "boom"},
		NextSteps: []string{"FAILED: boom"},
	})
	out := buf.String()
	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, "Next steps")
	assert.Contains(t, out, "FAILED: boom")
}

func TestMetrics(t *testing.T) {
	c := delegation.NewCollector(5)
	o := delegation.NewOrchestrator(transport.NewScripted("nothing"), delegation.WithCollector(c))
	_, err := o.Delegate(context.Background(), "dev", "task",
		ears.ContextFromContracts("REQ-1", contracts), delegation.DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	Metrics(&buf, c.Snapshot())
	out := buf.String()

	assert.Contains(t, out, "Total delegations")
	assert.Contains(t, out, "Top failure reasons")
	assert.Contains(t, out, "Recent sessions")
	assert.Contains(t, out, "@dev")
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	Context(&buf, ears.ContextFromContracts("REQ-1", contracts))
	out := buf.String()

	assert.Contains(t, out, "Requirement REQ-1")
	assert.Contains(t, out, "AC-2")
	assert.Contains(t, out, "Behavioral contracts")
}

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status string
		want   *color.Color
	}{
		{string(models.VerdictPassed), passColor},
		{string(models.ResultPassed), passColor},
		{string(models.SessionSuccessAfterRetry), passColor},
		{string(models.ResultConditionalPass), warnColor},
		{string(models.SessionFallbackSuccess), warnColor},
		{string(models.VerdictFailed), failColor},
		{string(models.SessionFailed), failColor},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Same(t, tt.want, statusColor(tt.status))
		})
	}
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "abc", shorten("abc", 5))
	assert.Equal(t, "abcd…", shorten("abcdefgh", 5))
}
