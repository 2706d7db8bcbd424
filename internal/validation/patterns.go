package validation

import (
	"math"
	"strings"

	"github.com/ShayCichocki/delegator/pkg/models"
)

// domainPattern is a keyword set describing one implementation domain.
type domainPattern struct {
	name        string
	description string
	keywords    []string
}

// domainPatterns is ordered so tagging output is stable.
var domainPatterns = []domainPattern{
	{"security", "Security-related behavioral contracts", []string{"authenticate", "authorize", "validate", "secure", "encrypt", "permission"}},
	{"performance", "Performance-related behavioral contracts", []string{"within", "milliseconds", "seconds", "optimize", "performance", "speed"}},
	{"ui_ux", "User interface behavioral contracts", []string{"display", "show", "interface", "user", "click", "submit"}},
	{"api", "API-related behavioral contracts", []string{"endpoint", "api", "request", "response", "http", "return"}},
	{"data", "Data persistence behavioral contracts", []string{"save", "store", "persist", "database", "data", "record"}},
}

// tagDomains returns the domains whose keywords occur in the text.
func tagDomains(lowerText string) []models.DomainMatch {
	var out []models.DomainMatch
	for _, p := range domainPatterns {
		var matched []string
		for _, kw := range p.keywords {
			if strings.Contains(lowerText, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		relevance := float64(len(matched)) / float64(len(p.keywords))
		out = append(out, models.DomainMatch{
			Domain:          p.name,
			Description:     p.description,
			MatchedKeywords: matched,
			Relevance:       relevance,
			Score:           int(math.Round(relevance * 100)),
		})
	}
	return out
}
