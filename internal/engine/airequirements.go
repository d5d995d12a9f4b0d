package engine

import (
	"sort"

	"go.uber.org/zap"

	"github.com/auditlens/auditlens/api/schemas"
)

// failingScoreThreshold splits unpassed quality metrics between high (below)
// and medium (at or above).
const failingScoreThreshold = 40

// requirementLists maps the checklist keys a requirements payload may carry
// to the category label their findings get tagged with.
var requirementLists = []struct {
	key      string
	category string
}{
	{"requirements", "requirements"},
	{"backend_requirements", "backend"},
	{"frontend_requirements", "frontend"},
	{"admin_requirements", "admin"},
	{"control_endpoint_requirements", "control_endpoint"},
}

// AIRequirementAdapter converts checklist and quality-metric results into
// findings. Passing is a first-class outcome here: met requirements and
// passed metrics produce success findings rather than disappearing.
type AIRequirementAdapter struct {
	analysis Payload
	log      *zap.Logger
}

func NewAIRequirementAdapter(analysis Payload, logger *zap.Logger) *AIRequirementAdapter {
	return &AIRequirementAdapter{analysis: analysis, log: logger.Named("ai_adapter")}
}

func (a *AIRequirementAdapter) Parse() []schemas.Finding {
	findings := []schemas.Finding{}
	for _, name := range a.ToolNames() {
		findings = append(findings, a.parseSubTool(name)...)
	}
	return findings
}

// parseSubTool recognizes the two sub-tool kinds by shape. Unrecognized
// sub-tools contribute nothing.
func (a *AIRequirementAdapter) parseSubTool(name string) []schemas.Finding {
	payload, ok := asMap(a.analysis[name])
	if !ok {
		return nil
	}
	if findings := a.parseChecklist(name, payload); len(findings) > 0 {
		return findings
	}
	return a.parseQualityMetrics(name, payload)
}

// parseChecklist reads boolean met/confidence requirement items across the
// recognized checklist keys, tagging each list with its category label.
func (a *AIRequirementAdapter) parseChecklist(name string, payload Payload) []schemas.Finding {
	findings := []schemas.Finding{}
	i := 0
	for _, list := range requirementLists {
		items, ok := asList(payload[list.key])
		if !ok {
			continue
		}
		for _, entry := range items {
			item, _ := asMap(entry)
			met := getBool(item, false, "met", "passed")
			severity := schemas.SeverityHigh
			status := "not_met"
			if met {
				severity = schemas.SeveritySuccess
				status = "met"
			}
			findings = append(findings, schemas.Finding{
				ID:         findingID(name, i),
				Tool:       name,
				Category:   list.category,
				Severity:   severity,
				Message:    getString(item, DefaultMessage, "requirement", "description", "name"),
				Status:     status,
				Confidence: item["confidence"],
				Raw:        entry,
			})
			i++
		}
	}
	return findings
}

// parseQualityMetrics reads scored items: passed is a success; a failure is
// high below the score threshold, medium at or above it.
func (a *AIRequirementAdapter) parseQualityMetrics(name string, payload Payload) []schemas.Finding {
	items, ok := getList(payload, "metrics", "quality_metrics", "checks")
	if !ok {
		return nil
	}
	findings := []schemas.Finding{}
	for i, entry := range items {
		item, _ := asMap(entry)
		score, _ := getFloat(item, "score")
		passed := getBool(item, false, "passed")

		severity := schemas.SeverityMedium
		status := "failed"
		if passed {
			severity = schemas.SeveritySuccess
			status = "passed"
		} else if score < failingScoreThreshold {
			severity = schemas.SeverityHigh
		}

		findings = append(findings, schemas.Finding{
			ID:         findingID(name, i),
			Tool:       name,
			Category:   "quality",
			Severity:   severity,
			Message:    getString(item, DefaultMessage, "metric", "name", "description"),
			Status:     status,
			Value:      score,
			Confidence: item["confidence"],
			Raw:        entry,
		})
	}
	return findings
}

func (a *AIRequirementAdapter) ToolData(tool string) schemas.ToolData {
	payload, present := a.analysis[tool]
	issues := findingsForTool(a.Parse(), tool)

	failures := 0
	for _, f := range issues {
		if f.Severity != schemas.SeveritySuccess {
			failures++
		}
	}

	data := schemas.ToolData{
		Summary: schemas.ToolSummary{
			Name:        tool,
			Status:      "not_run",
			TotalIssues: failures,
		},
		Issues:  issues,
		Metrics: []schemas.Metric{},
	}
	if !present {
		return data
	}
	data.Summary.Status = "completed"
	data.Raw = payload
	if m, ok := asMap(payload); ok {
		data.Summary.Status = getString(m, "completed", "status")
		data.Summary.ExecutionTime = getString(m, "", "execution_time", "duration")
	}
	return data
}

func (a *AIRequirementAdapter) Detail(id string) *schemas.DetailView {
	return detailFor(a.Parse(), id)
}

func (a *AIRequirementAdapter) ToolNames() []string {
	names := []string{}
	for name, v := range a.analysis {
		if _, ok := asMap(v); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
