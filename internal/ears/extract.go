package ears

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/delegator/internal/cache"
	"github.com/ShayCichocki/delegator/pkg/models"
)

// GeneralFocus is the task focus used when no task ID filters the criteria.
const GeneralFocus = "general"

// Limits applied when building a minimal context.
const (
	maxGeneralCriteria      = 5
	maxFallbackCriteria     = 3
	maxConstraints          = 3
	maxDependencies         = 3
	maxArchitectural        = 2
	maxComponentInterfaces  = 3
	defaultFeatureSummary   = "Feature implementation with EARS compliance"
	defaultRequirementID    = "GENERAL"
	featureSummaryMinLength = 50
)

var (
	defaultConstraints  = []string{"EARS compliance required", "Performance within acceptable limits"}
	defaultDependencies = []string{"None specified"}
)

var (
	criterionPattern   = regexp.MustCompile(`(?m)(AC-[A-Za-z0-9\-]+):\s+(WHEN|WHILE|IF|WHERE)\s+(.+?)\s+SHALL\s+(.+?)\s*(?:\{.*)?$`)
	intentPattern      = regexp.MustCompile(`(?m)Intent Vector:\s*(.+?)\s*$`)
	nfrPattern         = regexp.MustCompile(`(?m)NFR-[A-Za-z0-9\-]+-[A-Z]+-\d+:\s*(.+?)\s*$`)
	adrRefPattern      = regexp.MustCompile(`ADR-\d+`)
	bulletPattern      = regexp.MustCompile(`(?m)^\s*[-*]\s+(.+?)\s*$`)
	interfacePattern   = regexp.MustCompile(`(?s)interface\s+\w+\s*\{.*?\}`)
	earsCommentPattern = regexp.MustCompile(`//\s*((?:WHEN|WHILE|IF|WHERE).+?SHALL.+)`)
	adrDecisionPattern = regexp.MustCompile(`(?m)### ADR-\d+:(.+?)\n(?s:.*?)Decision:\s*(.+?)\s*$`)
	componentPattern   = regexp.MustCompile(`(?m)### (?:New|Modified):\s+(.+?)\s+→\s+Responsibility:\s+(.+?)\s*$`)
	headingPattern     = regexp.MustCompile(`^#+\s*`)
)

var (
	contractsSection    = sectionPattern(`Behavioral Contracts?`)
	constraintsSection  = sectionPattern(`Constraints`)
	dependenciesSection = sectionPattern(`Dependencies`)
)

// RequirementsDoc is what a requirements.md file contributes to a context.
type RequirementsDoc struct {
	Path               string
	FeatureSummary     string
	AcceptanceCriteria []models.AcceptanceCriterion
	Constraints        []string
	Dependencies       []string
}

// DesignDoc is what a design.md file contributes to a context.
type DesignDoc struct {
	Path                     string
	BehavioralContracts      []string
	ArchitecturalConstraints []string
	ComponentInterfaces      []models.ComponentInterface
}

// ExtractorStats reports extraction counts and cache efficiency.
type ExtractorStats struct {
	Extractions       int           `json:"extractions"`
	AvgExtractionTime time.Duration `json:"avg_extraction_time"`
	CacheHits         int           `json:"cache_hits"`
	CacheMisses       int           `json:"cache_misses"`
}

// CacheEfficiency returns the hit ratio in [0,1], 0 when nothing was looked up.
func (s ExtractorStats) CacheEfficiency() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// Extractor builds minimal EARS contexts from requirements and design
// documents, memoizing results in a cache.
type Extractor struct {
	cache  cache.Cache
	logger *zap.Logger

	mu    sync.Mutex
	stats ExtractorStats
	total time.Duration
}

// NewExtractor creates an extractor. A nil cache uses an in-memory cache;
// a nil logger discards output.
func NewExtractor(c cache.Cache, logger *zap.Logger) *Extractor {
	if c == nil {
		c = cache.NewMemory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{cache: c, logger: logger}
}

// CacheKey returns the memoization key for an extraction.
func CacheKey(requirementsPath, designPath, taskID string) string {
	return requirementsPath + ":" + designPath + ":" + taskID
}

// Extract reads the documents and returns the minimal context for taskID.
// designPath and taskID may be empty.
func (e *Extractor) Extract(ctx context.Context, requirementsPath, designPath, taskID string) (models.EARSContext, error) {
	start := time.Now()
	key := CacheKey(requirementsPath, designPath, taskID)

	cached, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("context cache lookup failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		e.mu.Lock()
		e.stats.CacheHits++
		e.mu.Unlock()
		e.logger.Debug("using cached context extraction", zap.String("key", key))
		return cached, nil
	}

	e.mu.Lock()
	e.stats.CacheMisses++
	e.mu.Unlock()

	reqs, err := ParseRequirementsFile(requirementsPath)
	if err != nil {
		return models.EARSContext{}, fmt.Errorf("extract context: %w", err)
	}

	var design *DesignDoc
	if designPath != "" {
		d, err := ParseDesignFile(designPath)
		if err != nil {
			return models.EARSContext{}, fmt.Errorf("extract context: %w", err)
		}
		design = &d
	}

	out := BuildContext(reqs, design, taskID)

	if err := e.cache.Put(ctx, key, out); err != nil {
		e.logger.Warn("context cache store failed", zap.String("key", key), zap.Error(err))
	}

	elapsed := time.Since(start)
	e.mu.Lock()
	e.stats.Extractions++
	e.total += elapsed
	e.stats.AvgExtractionTime = e.total / time.Duration(e.stats.Extractions)
	e.mu.Unlock()

	e.logger.Info("extracted EARS context",
		zap.String("requirement_id", out.RequirementID),
		zap.Int("criteria", len(out.AcceptanceCriteria)),
		zap.Duration("elapsed", elapsed),
	)
	return out, nil
}

// ClearCache drops every memoized extraction.
func (e *Extractor) ClearCache(ctx context.Context) error {
	if err := e.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear context cache: %w", err)
	}
	e.logger.Debug("context cache cleared")
	return nil
}

// Stats returns a copy of the extraction counters.
func (e *Extractor) Stats() ExtractorStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// ParseRequirementsFile reads and parses a requirements document.
func ParseRequirementsFile(path string) (RequirementsDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RequirementsDoc{}, fmt.Errorf("read requirements file %s: %w", path, err)
	}
	doc := ParseRequirements(string(data))
	doc.Path = path
	return doc, nil
}

// ParseRequirements parses requirements document content.
func ParseRequirements(content string) RequirementsDoc {
	var criteria []models.AcceptanceCriterion
	for _, m := range criterionPattern.FindAllStringSubmatch(content, -1) {
		criteria = append(criteria, models.AcceptanceCriterion{
			ID:        m[1],
			Kind:      models.KindForKeyword(m[2]),
			Condition: strings.TrimRight(strings.TrimSpace(m[3]), ","),
			Behavior:  strings.TrimSpace(m[4]),
			FullText:  strings.TrimSpace(m[0]),
		})
	}

	return RequirementsDoc{
		FeatureSummary:     featureSummary(content),
		AcceptanceCriteria: criteria,
		Constraints:        constraints(content),
		Dependencies:       dependencies(content),
	}
}

// ParseDesignFile reads and parses a design document.
func ParseDesignFile(path string) (DesignDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DesignDoc{}, fmt.Errorf("read design file %s: %w", path, err)
	}
	doc := ParseDesign(string(data))
	doc.Path = path
	return doc, nil
}

// ParseDesign parses design document content.
func ParseDesign(content string) DesignDoc {
	var contracts []string
	for _, iface := range interfacePattern.FindAllString(content, -1) {
		for _, m := range earsCommentPattern.FindAllStringSubmatch(iface, -1) {
			contracts = append(contracts, strings.TrimSpace(m[1]))
		}
	}
	contracts = append(contracts, sectionBullets(content, contractsSection)...)

	var arch []string
	for _, m := range adrDecisionPattern.FindAllStringSubmatch(content, -1) {
		arch = append(arch, strings.TrimSpace(m[1])+": "+strings.TrimSpace(m[2]))
	}

	var components []models.ComponentInterface
	for _, m := range componentPattern.FindAllStringSubmatch(content, -1) {
		components = append(components, models.ComponentInterface{
			Component:      strings.TrimSpace(m[1]),
			Responsibility: strings.TrimSpace(m[2]),
		})
	}

	return DesignDoc{
		BehavioralContracts:      contracts,
		ArchitecturalConstraints: arch,
		ComponentInterfaces:      components,
	}
}

// BuildContext filters the parsed documents down to a minimal context.
// With a task ID, criteria whose ID contains it or whose behavior mentions
// it are kept (falling back to the first three); without one the first
// five are kept.
func BuildContext(reqs RequirementsDoc, design *DesignDoc, taskID string) models.EARSContext {
	criteria := filterCriteria(reqs.AcceptanceCriteria, taskID)
	focus := taskID
	if focus == "" {
		focus = GeneralFocus
	}

	out := models.EARSContext{
		RequirementID:      defaultRequirementID,
		AcceptanceCriteria: criteria,
		Minimal: models.MinimalContext{
			FeatureSummary: reqs.FeatureSummary,
			Constraints:    head(reqs.Constraints, maxConstraints),
			Dependencies:   head(reqs.Dependencies, maxDependencies),
			TaskFocus:      focus,
		},
		SourceFiles: []string{reqs.Path},
	}
	if len(criteria) > 0 {
		out.RequirementID = criteria[0].ID
	}
	for _, ac := range criteria {
		out.BehavioralContracts = append(out.BehavioralContracts, ac.Contract())
	}

	if design != nil {
		out.BehavioralContracts = append(out.BehavioralContracts, design.BehavioralContracts...)
		out.Minimal.ArchitecturalConstraints = head(design.ArchitecturalConstraints, maxArchitectural)
		out.Minimal.ComponentInterfaces = append([]models.ComponentInterface(nil),
			design.ComponentInterfaces[:min(len(design.ComponentInterfaces), maxComponentInterfaces)]...)
		out.SourceFiles = append(out.SourceFiles, design.Path)
	}
	return out
}

func filterCriteria(all []models.AcceptanceCriterion, taskID string) []models.AcceptanceCriterion {
	if taskID == "" {
		return append([]models.AcceptanceCriterion(nil), all[:min(len(all), maxGeneralCriteria)]...)
	}

	lower := strings.ToLower(taskID)
	var relevant []models.AcceptanceCriterion
	for _, ac := range all {
		if strings.Contains(ac.ID, taskID) || strings.Contains(strings.ToLower(ac.Behavior), lower) {
			relevant = append(relevant, ac)
		}
	}
	if len(relevant) > 0 {
		return relevant
	}
	return append([]models.AcceptanceCriterion(nil), all[:min(len(all), maxFallbackCriteria)]...)
}

func featureSummary(content string) string {
	if m := intentPattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "#") && len(line) > 5 {
			return strings.TrimSpace(headingPattern.ReplaceAllString(line, ""))
		}
		if len(line) > featureSummaryMinLength && !strings.HasPrefix(line, "##") && !strings.Contains(line, ":") {
			return strings.TrimSpace(line)
		}
	}
	return defaultFeatureSummary
}

func constraints(content string) []string {
	var out []string
	for _, m := range nfrPattern.FindAllStringSubmatch(content, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	out = append(out, sectionBullets(content, constraintsSection)...)
	if len(out) == 0 {
		return append([]string(nil), defaultConstraints...)
	}
	return out
}

func dependencies(content string) []string {
	out := sectionBullets(content, dependenciesSection)
	for _, adr := range adrRefPattern.FindAllString(content, -1) {
		out = append(out, "Architecture decision: "+adr)
	}
	if len(out) == 0 {
		return append([]string(nil), defaultDependencies...)
	}
	return out
}

// sectionPattern matches the body under a "## <title>" heading, up to the
// next "##" heading. title is a regexp fragment.
func sectionPattern(title string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)## ` + title + `[ \t]*\n(.*?)(?:\n##|\z)`)
}

// sectionBullets returns the bullet items of the first section re matches.
func sectionBullets(content string, re *regexp.Regexp) []string {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	var out []string
	for _, b := range bulletPattern.FindAllStringSubmatch(m[1], -1) {
		out = append(out, b[1])
	}
	return out
}

func head(s []string, n int) []string {
	return append([]string(nil), s[:min(len(s), n)]...)
}
