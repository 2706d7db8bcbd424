package ears

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/delegator/pkg/models"
)

// requirementsFile is the on-disk shape of a requirement set.
type requirementsFile struct {
	Requirements []string `json:"requirements" yaml:"requirements" toml:"requirements"`
}

// LoadRequirementSet reads a YAML, JSON or TOML file holding a
// "requirements" list of statement strings and parses each entry.
func LoadRequirementSet(path string) (models.RequirementSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.RequirementSet{}, fmt.Errorf("read requirement set: %w", err)
	}

	var f requirementsFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".json":
		err = json.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		return models.RequirementSet{}, fmt.Errorf("unsupported requirement set format %q", ext)
	}
	if err != nil {
		return models.RequirementSet{}, fmt.Errorf("parse requirement set %s: %w", path, err)
	}
	return ParseAll(f.Requirements), nil
}

// LoadContext reads an EARSContext serialized as YAML or JSON.
func LoadContext(path string) (models.EARSContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.EARSContext{}, fmt.Errorf("read context: %w", err)
	}

	var c models.EARSContext
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	case ".json":
		err = json.Unmarshal(data, &c)
	default:
		return models.EARSContext{}, fmt.Errorf("unsupported context format %q", ext)
	}
	if err != nil {
		return models.EARSContext{}, fmt.Errorf("parse context %s: %w", path, err)
	}
	return c, nil
}

// ContextFromContracts builds a bare context whose criteria are derived
// from parsable contract strings.
func ContextFromContracts(requirementID string, contracts []string) models.EARSContext {
	c := models.EARSContext{
		RequirementID:       requirementID,
		BehavioralContracts: append([]string(nil), contracts...),
		Minimal: models.MinimalContext{
			FeatureSummary: defaultFeatureSummary,
			Constraints:    append([]string(nil), defaultConstraints...),
			Dependencies:   append([]string(nil), defaultDependencies...),
			TaskFocus:      GeneralFocus,
		},
	}
	for i, raw := range contracts {
		stmt := Parse(raw)
		if !stmt.Parsable() {
			continue
		}
		id := stmt.ID
		if id == "" {
			id = fmt.Sprintf("AC-%d", i+1)
		}
		c.AcceptanceCriteria = append(c.AcceptanceCriteria, models.AcceptanceCriterion{
			ID:        id,
			Kind:      stmt.Kind,
			Condition: stmt.Trigger,
			Behavior:  stmt.Behavior,
			FullText:  raw,
		})
	}
	if c.RequirementID == "" {
		c.RequirementID = defaultRequirementID
		if len(c.AcceptanceCriteria) > 0 {
			c.RequirementID = c.AcceptanceCriteria[0].ID
		}
	}
	return c
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
