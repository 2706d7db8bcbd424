package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/delegator/internal/delegation"
	"github.com/ShayCichocki/delegator/pkg/models"
)

const loginContract = "AC-1: WHEN user submits login SHALL validate credentials within 200ms"

// runCLI executes the root command in an isolated config environment.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Chdir(t.TempDir())

	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags clears flag state left by a previous run of the shared commands.
func resetFlags() {
	formatFlag, configFile, logLevel = "text", "", ""
	validateSource, delegateSource = contractSource{}, contractSource{}
	validateWatch, delegateDemo, delegateTUI = false, false, false
	delegateDirect, delegateEscalate = true, false
	configPaths = false
	metricsURL = ""
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "delegator version "+Version()+"\n", out)
}

func TestValidateCmd(t *testing.T) {
	pass := writeFile(t, "pass.md", "When user submits login, system validates credentials within 200ms.")
	out, err := runCLI(t, "validate", pass, "-c", loginContract)
	require.NoError(t, err)
	assert.Contains(t, out, "PASSED")

	fail := writeFile(t, "fail.md", "The system shows a welcome banner.")
	_, err = runCLI(t, "validate", fail, "-c", loginContract)
	assert.ErrorIs(t, err, errValidationFailed)
}

func TestValidateCmd_JSONAndSetFile(t *testing.T) {
	pass := writeFile(t, "pass.md", "When user submits login, system validates credentials within 200ms.")
	set := writeFile(t, "set.toml", "requirements = [\""+loginContract+"\"]\n")

	out, err := runCLI(t, "validate", pass, "--set", set, "-o", "json")
	require.NoError(t, err)

	var payload struct {
		Aggregate models.AggregateValidation `json:"aggregate"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, 100, payload.Aggregate.Score)
}

func TestValidateCmd_NoContracts(t *testing.T) {
	pass := writeFile(t, "pass.md", "anything")
	_, err := runCLI(t, "validate", pass)
	assert.ErrorContains(t, err, "no contracts")
}

func TestDelegateCmd_Demo(t *testing.T) {
	out, err := runCLI(t, "delegate", "backend-dev", "implement login", "-c", loginContract, "--demo", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "status: "+string(models.SessionSuccessAfterRetry))
}

func TestDelegateCmd_Requirements(t *testing.T) {
	reqs := writeFile(t, "requirements.md", "# Login\n\n"+loginContract+"\n")
	out, err := runCLI(t, "delegate", "backend-dev", "implement login", "--requirements", reqs, "--demo")
	require.NoError(t, err)
	assert.Contains(t, out, "@backend-dev")
}

func TestDelegateCmd_NoAPIKey(t *testing.T) {
	_, err := runCLI(t, "delegate", "dev", "task", "-c", loginContract)
	assert.ErrorContains(t, err, "--demo")
}

func TestExtractCmd(t *testing.T) {
	reqs := writeFile(t, "requirements.md", "# Login feature\n\n"+loginContract+"\n")
	out, err := runCLI(t, "extract", "--requirements", reqs, "-o", "json")
	require.NoError(t, err)

	var c models.EARSContext
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	require.Len(t, c.AcceptanceCriteria, 1)
	assert.Equal(t, "AC-1", c.AcceptanceCriteria[0].ID)
}

func TestConfigCmd(t *testing.T) {
	out, err := runCLI(t, "config", "delegation.history_size")
	require.NoError(t, err)
	assert.Equal(t, "20\n", out)

	out, err = runCLI(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "api_key: (not set)")

	_, err = runCLI(t, "config", "nope.key")
	assert.Error(t, err)
}

func TestMetricsCmd(t *testing.T) {
	c := delegation.NewCollector(5)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/metrics/delegation", r.URL.Path)
		_ = json.NewEncoder(w).Encode(c.Snapshot())
	}))
	defer srv.Close()

	out, err := runCLI(t, "metrics", "--url", srv.URL)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Total delegations"), out)
}
