package ears

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/delegator/pkg/models"
)

func TestLoadRequirementSet(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"set.yaml": "requirements:\n  - \"WHEN user submits login SHALL validate credentials\"\n  - \"not ears\"\n",
		"set.json": `{"requirements": ["WHEN user submits login SHALL validate credentials", "not ears"]}`,
		"set.toml": "requirements = [\"WHEN user submits login SHALL validate credentials\", \"not ears\"]\n",
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			set, err := LoadRequirementSet(path)
			require.NoError(t, err)
			require.Equal(t, 2, set.Len())
			assert.Equal(t, models.KindEventTriggered, set.Statements[0].Kind)
			assert.Equal(t, models.KindUnknown, set.Statements[1].Kind)
		})
	}
}

func TestLoadRequirementSet_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadRequirementSet(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	txt := filepath.Join(dir, "set.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0644))
	_, err = LoadRequirementSet(txt)
	assert.ErrorContains(t, err, "unsupported")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = LoadRequirementSet(bad)
	assert.Error(t, err)
}

func TestLoadContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctx.yaml")
	content := `requirement_id: AC-9
acceptance_criteria:
  - id: AC-9
    kind: EVENT_TRIGGERED
    condition: job fails
    behavior: page the on-call engineer
behavioral_contracts:
  - "WHEN job fails, SHALL page the on-call engineer"
minimal_context:
  feature_summary: Alerting
  constraints: [quiet hours respected]
  dependencies: [pager]
  task_focus: general
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := LoadContext(path)
	require.NoError(t, err)
	assert.Equal(t, "AC-9", c.RequirementID)
	require.Len(t, c.AcceptanceCriteria, 1)
	assert.Equal(t, models.KindEventTriggered, c.AcceptanceCriteria[0].Kind)
	assert.Equal(t, "Alerting", c.Minimal.FeatureSummary)
}

func TestContextFromContracts(t *testing.T) {
	c := ContextFromContracts("", []string{
		"free text that is not EARS",
		"IF disk is full SHALL reject writes",
		"AC-7: WHEN user logs out SHALL clear the session",
	})

	require.Len(t, c.AcceptanceCriteria, 2)
	assert.Equal(t, "AC-2", c.AcceptanceCriteria[0].ID)
	assert.Equal(t, "AC-7", c.AcceptanceCriteria[1].ID)
	assert.Equal(t, "AC-2", c.RequirementID)
	assert.Len(t, c.BehavioralContracts, 3)

	named := ContextFromContracts("REQ-1", nil)
	assert.Equal(t, "REQ-1", named.RequirementID)
}
