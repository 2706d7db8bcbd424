package ears

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ShayCichocki/delegator/pkg/models"
)

func TestBuildPrompt(t *testing.T) {
	c := BuildContext(ParseRequirements(requirementsDoc), nil, "")
	prompt := BuildPrompt("code-reviewer", "implement login", c)

	assert.True(t, strings.HasPrefix(prompt, "@code-reviewer:"))
	assert.Contains(t, prompt, "Please implement login following these EARS acceptance criteria:")
	assert.Contains(t, prompt, "- AC-AUTH-001-01: WHEN user submits login, SHALL validate credentials within 200ms")
	assert.Contains(t, prompt, "- Feature: Secure login for returning users")
	assert.Contains(t, prompt, "**Validation Required:**")
	assert.NotContains(t, prompt, "Retry Guidance")

	// Only the first three contracts are listed under Behavioral Contracts.
	section := prompt[strings.Index(prompt, "**Behavioral Contracts:**"):strings.Index(prompt, "**Context:**")]
	assert.Equal(t, 3, strings.Count(section, "\n- "))
}

func TestBuildPrompt_Guidance(t *testing.T) {
	c := ContextFromContracts("", []string{"AC-1: WHEN user submits login SHALL validate credentials"})
	c.Guidance = []models.Guidance{{
		Strategy:    "completeness",
		Failures:    []string{"Required behavior not implemented: validate credentials"},
		Items:       []string{"Address every criterion"},
		Examples:    map[string]string{"b": "second", "a": "first"},
		Checkpoints: []string{"AC-1 verified"},
	}}

	prompt := BuildPrompt("dev", "fix it", c)

	assert.Contains(t, prompt, "**Retry Guidance (completeness):**")
	assert.Contains(t, prompt, "- Required behavior not implemented: validate credentials")
	assert.Contains(t, prompt, "- [ ] AC-1 verified")
	assert.Less(t, strings.Index(prompt, "- a: first"), strings.Index(prompt, "- b: second"))
}
