package engine

import (
	"sort"

	"go.uber.org/zap"

	"github.com/auditlens/auditlens/api/schemas"
	"github.com/auditlens/auditlens/internal/engine/sarif"
)

// sarifLevelTable is the exact SARIF level mapping. Unlike NormalizeSeverity
// this is not a substring match: an unknown literal such as "fatal" falls to
// the default (info) even though it would never substring-match anyway. The
// strictness is load-bearing for SARIF consumers.
var sarifLevelTable = map[sarif.Level]schemas.Severity{
	sarif.LevelError:   schemas.SeverityHigh,
	sarif.LevelWarning: schemas.SeverityMedium,
	sarif.LevelNote:    schemas.SeverityLow,
}

// SARIFAdapter parses SARIF 2.1.0 documents into canonical findings. It is
// used standalone for SARIF uploads and embedded by the static adapter when a
// tool payload carries a document under its "sarif" key.
type SARIFAdapter struct {
	doc *sarif.Log
	log *zap.Logger
}

// NewSARIFAdapter wraps an already-decoded SARIF document. A nil document is
// tolerated and yields zero findings.
func NewSARIFAdapter(doc *sarif.Log, logger *zap.Logger) *SARIFAdapter {
	return &SARIFAdapter{doc: doc, log: logger.Named("sarif_adapter")}
}

// decodeSARIF round-trips a loose payload subtree into a typed SARIF log.
// The bool reports whether the subtree looks like SARIF at all.
func decodeSARIF(v interface{}) (*sarif.Log, bool) {
	m, ok := asMap(v)
	if !ok {
		return nil, false
	}
	if _, hasRuns := getList(m, "runs"); !hasRuns {
		return nil, false
	}
	var doc sarif.Log
	if err := remarshal(m, &doc); err != nil {
		return nil, false
	}
	return &doc, true
}

// Parse emits one finding per SARIF result, in document order.
func (a *SARIFAdapter) Parse() []schemas.Finding {
	findings := []schemas.Finding{}
	if a.doc == nil {
		return findings
	}

	// Ids must stay unique across runs; a document often carries one run per
	// language under the same driver name.
	idx := 0
	for _, run := range a.doc.Runs {
		if run == nil {
			continue
		}
		toolName := "sarif"
		rules := map[string]*sarif.ReportingDescriptor{}
		if run.Tool != nil && run.Tool.Driver != nil {
			if run.Tool.Driver.Name != "" {
				toolName = run.Tool.Driver.Name
			}
			for _, rule := range run.Tool.Driver.Rules {
				if rule != nil {
					rules[rule.ID] = rule
				}
			}
		}

		for _, result := range run.Results {
			if result == nil {
				continue
			}
			rule := rules[result.RuleID]
			findings = append(findings, schemas.Finding{
				ID:       findingID(toolName, idx),
				Tool:     toolName,
				Severity: sarifSeverity(result, rule),
				Message:  sarifMessage(result, rule),
				File:     sarifFile(result),
				Line:     sarifLine(result),
				RuleID:   result.RuleID,
				Raw:      result,
			})
			idx++
		}
	}

	a.log.Debug("Parsed SARIF document", zap.Int("findings", len(findings)))
	return findings
}

// ToolData groups findings under the SARIF driver name.
func (a *SARIFAdapter) ToolData(tool string) schemas.ToolData {
	issues := findingsForTool(a.Parse(), tool)
	status := "not_run"
	for _, name := range a.ToolNames() {
		if name == tool {
			status = "completed"
		}
	}
	return schemas.ToolData{
		Summary: schemas.ToolSummary{
			Name:        tool,
			Status:      status,
			TotalIssues: len(issues),
		},
		Issues:  issues,
		Metrics: []schemas.Metric{},
	}
}

func (a *SARIFAdapter) Detail(id string) *schemas.DetailView {
	return detailFor(a.Parse(), id)
}

func (a *SARIFAdapter) ToolNames() []string {
	seen := map[string]bool{}
	names := []string{}
	if a.doc == nil {
		return names
	}
	for _, run := range a.doc.Runs {
		if run == nil || run.Tool == nil || run.Tool.Driver == nil || run.Tool.Driver.Name == "" {
			continue
		}
		if !seen[run.Tool.Driver.Name] {
			seen[run.Tool.Driver.Name] = true
			names = append(names, run.Tool.Driver.Name)
		}
	}
	sort.Strings(names)
	return names
}

// sarifSeverity applies the exact level table, falling back to the matched
// rule's default configuration when the result omits its level.
func sarifSeverity(result *sarif.Result, rule *sarif.ReportingDescriptor) schemas.Severity {
	level := result.Level
	if level == "" && rule != nil && rule.DefaultConfiguration != nil {
		level = rule.DefaultConfiguration.Level
	}
	if sev, ok := sarifLevelTable[level]; ok {
		return sev
	}
	return schemas.SeverityInfo
}

func sarifMessage(result *sarif.Result, rule *sarif.ReportingDescriptor) string {
	if result.Message != nil && result.Message.Text != nil && *result.Message.Text != "" {
		return *result.Message.Text
	}
	if rule != nil && rule.ShortDescription != nil && rule.ShortDescription.Text != nil && *rule.ShortDescription.Text != "" {
		return *rule.ShortDescription.Text
	}
	return DefaultMessage
}

func sarifFile(result *sarif.Result) string {
	if loc := firstLocation(result); loc != nil && loc.ArtifactLocation != nil && loc.ArtifactLocation.URI != nil && *loc.ArtifactLocation.URI != "" {
		return *loc.ArtifactLocation.URI
	}
	return UnknownFile
}

func sarifLine(result *sarif.Result) int {
	if loc := firstLocation(result); loc != nil && loc.Region != nil {
		return loc.Region.StartLine
	}
	return 0
}

func firstLocation(result *sarif.Result) *sarif.PhysicalLocation {
	if len(result.Locations) == 0 || result.Locations[0] == nil {
		return nil
	}
	return result.Locations[0].PhysicalLocation
}
