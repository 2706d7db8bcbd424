package delegation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/delegator/internal/transport"
	"github.com/ShayCichocki/delegator/pkg/models"
)

func TestReport(t *testing.T) {
	tests := []struct {
		name    string
		outputs []string
		opts    Options
		status  models.SessionStatus
		prefix  string
	}{
		{"success", []string{passingOutput}, DefaultOptions(), models.SessionSuccess, "APPROVED"},
		{"after retry", []string{failingOutput, passingOutput}, DefaultOptions(), models.SessionSuccessAfterRetry, "APPROVED"},
		{"fallback", []string{failingOutput}, DefaultOptions(), models.SessionFallbackSuccess, "RETRY REQUIRED"},
		{"failed", nil, DefaultOptions(), models.SessionFailed, "FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(transport.NewScripted(tt.outputs...))
			s, err := o.Delegate(context.Background(), "dev", "task", loginContext(), tt.opts)
			require.NoError(t, err)
			require.Equal(t, tt.status, s.Status)

			r := Report(s)
			assert.Equal(t, tt.status, r.Summary.Status)
			assert.Equal(t, len(s.Attempts), r.Summary.Attempts)
			require.NotEmpty(t, r.NextSteps)
			assert.True(t, strings.HasPrefix(r.NextSteps[0], tt.prefix), r.NextSteps[0])

			if tt.status == models.SessionFailed {
				assert.Nil(t, r.Validation)
			} else {
				require.NotNil(t, r.Validation)
			}
		})
	}
}

func TestReport_FallbackCarriesNextSteps(t *testing.T) {
	o := newTestOrchestrator(transport.NewScripted(failingOutput))
	s, err := o.Delegate(context.Background(), "dev", "task", loginContext(), DefaultOptions())
	require.NoError(t, err)

	r := Report(s)
	require.NotNil(t, r.Fallback)
	assert.Contains(t, r.NextSteps, "Implement functionality directly without delegation")
	assert.Equal(t, []int{0, 0}, r.Summary.Scores)
}
