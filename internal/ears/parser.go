// Package ears parses EARS requirement statements and extracts delegation
// contexts from requirements and design documents.
package ears

import (
	"regexp"
	"strings"

	"github.com/ShayCichocki/delegator/pkg/models"
)

// statementPattern matches "[ID:] <WHEN|WHILE|IF|WHERE> <condition> SHALL <behavior>".
// A trailing "{...}" annotation block is ignored.
var statementPattern = regexp.MustCompile(
	`(?is)^\s*(?:([A-Za-z0-9][A-Za-z0-9_.\-]*)\s*:\s*)?(WHEN|WHILE|IF|WHERE)\s+(.+?)\s+SHALL\s+(.+?)\s*(?:\{.*)?$`,
)

// Parse turns one requirement statement into a typed record.
// Text that does not follow the grammar yields a KindUnknown statement;
// Parse never fails.
func Parse(raw string) models.RequirementStatement {
	stmt := models.RequirementStatement{Kind: models.KindUnknown, Raw: raw}

	m := statementPattern.FindStringSubmatch(raw)
	if m == nil {
		return stmt
	}

	trigger := strings.TrimRight(strings.TrimSpace(m[3]), ",;")
	behavior := strings.TrimRight(strings.TrimSpace(m[4]), ".;")
	stmt.ID = m[1]
	if trigger == "" || behavior == "" {
		return stmt
	}

	stmt.Kind = models.KindForKeyword(m[2])
	stmt.Trigger = trigger
	stmt.Behavior = behavior
	return stmt
}

// ParseAll parses each contract string in order and keeps the sources.
func ParseAll(contracts []string) models.RequirementSet {
	set := models.RequirementSet{
		Statements: make([]models.RequirementStatement, 0, len(contracts)),
		Contracts:  append([]string(nil), contracts...),
	}
	for _, c := range contracts {
		set.Statements = append(set.Statements, Parse(c))
	}
	return set
}
