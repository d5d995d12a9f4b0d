package engine

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/auditlens/auditlens/api/schemas"
)

// Tool is an enumerated static-analysis tool identifier. Dispatch happens
// against these constants rather than free-form strings so an unsupported
// identifier is a typed miss that routes to the generic path.
type Tool string

const (
	ToolBandit        Tool = "bandit"
	ToolRuff          Tool = "ruff"
	ToolPylint        Tool = "pylint"
	ToolMypy          Tool = "mypy"
	ToolVulture       Tool = "vulture"
	ToolRadon         Tool = "radon"
	ToolSafety        Tool = "safety"
	ToolPipAudit      Tool = "pip-audit"
	ToolDetectSecrets Tool = "detect-secrets"
	ToolESLint        Tool = "eslint"
	ToolStylelint     Tool = "stylelint"
	ToolNpmAudit      Tool = "npm-audit"
	ToolSemgrep       Tool = "semgrep"
)

// extractFunc maps one tool's raw payload shape onto canonical findings.
type extractFunc func(tool string, payload interface{}) []schemas.Finding

// toolLanguages tags findings with the source language where the tool
// implies one.
var toolLanguages = map[Tool]string{
	ToolBandit:    "python",
	ToolRuff:      "python",
	ToolPylint:    "python",
	ToolMypy:      "python",
	ToolVulture:   "python",
	ToolRadon:     "python",
	ToolSafety:    "python",
	ToolPipAudit:  "python",
	ToolESLint:    "javascript",
	ToolStylelint: "css",
	ToolNpmAudit:  "javascript",
}

// StaticAdapter converts the static-analysis category payload, a map of tool
// name to that tool's raw output, into canonical findings. Each supported
// tool has its own extraction rule; anything else falls through the generic
// path (direct array, ".issues" array, or an embedded SARIF document).
type StaticAdapter struct {
	analysis Payload
	log      *zap.Logger
}

// NewStaticAdapter wraps a static category payload. A nil payload is
// tolerated and yields zero findings.
func NewStaticAdapter(analysis Payload, logger *zap.Logger) *StaticAdapter {
	return &StaticAdapter{analysis: analysis, log: logger.Named("static_adapter")}
}

func (a *StaticAdapter) Parse() []schemas.Finding {
	findings := []schemas.Finding{}
	for _, tool := range a.ToolNames() {
		findings = append(findings, a.parseTool(tool)...)
	}
	return findings
}

// parseTool dispatches on the lowercased tool identifier.
func (a *StaticAdapter) parseTool(name string) []schemas.Finding {
	payload := a.analysis[name]
	if rule, ok := staticRules[Tool(strings.ToLower(name))]; ok {
		return rule(name, payload)
	}
	return a.extractGeneric(name, payload)
}

// extractGeneric handles tools with no named rule: the payload is either the
// issue array itself, an object with an "issues" array, or, failing both, an
// embedded SARIF document handed to the SARIF adapter.
func (a *StaticAdapter) extractGeneric(name string, payload interface{}) []schemas.Finding {
	if issues := issueList(payload, "issues"); len(issues) > 0 {
		findings := make([]schemas.Finding, 0, len(issues))
		for i, entry := range issues {
			issue, _ := asMap(entry)
			findings = append(findings, schemas.Finding{
				ID:       findingID(name, i),
				Tool:     name,
				Severity: NormalizeSeverity(issue["severity"]),
				Message:  getString(issue, DefaultMessage, "message", "description", "text"),
				File:     getString(issue, UnknownFile, "file", "filename", "path"),
				Line:     getInt(issue, 0, "line", "line_number"),
				RuleID:   getString(issue, "", "rule_id", "rule", "code", "id"),
				Raw:      entry,
			})
		}
		return findings
	}

	// No recognizable issue list; try embedded SARIF.
	if m, ok := asMap(payload); ok {
		for _, candidate := range []interface{}{m["sarif"], payload} {
			if doc, ok := decodeSARIF(candidate); ok {
				a.log.Debug("Delegating to embedded SARIF document", zap.String("tool", name))
				return retag(NewSARIFAdapter(doc, a.log).Parse(), name)
			}
		}
	}
	return []schemas.Finding{}
}

// retag rebrands delegated findings under the declared tool name so per-tool
// views group them correctly.
func retag(findings []schemas.Finding, tool string) []schemas.Finding {
	for i := range findings {
		findings[i].ID = findingID(tool, i)
		findings[i].Tool = tool
	}
	return findings
}

func (a *StaticAdapter) ToolData(tool string) schemas.ToolData {
	payload, present := a.analysis[tool]
	issues := []schemas.Finding{}
	if present {
		issues = a.parseTool(tool)
	}

	summary := schemas.ToolSummary{
		Name:        tool,
		Status:      "not_run",
		TotalIssues: len(issues),
	}
	data := schemas.ToolData{
		Summary: summary,
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
		data.SARIFFile = getString(m, "", "sarif_file")
	}
	return data
}

func (a *StaticAdapter) Detail(id string) *schemas.DetailView {
	return detailFor(a.Parse(), id)
}

// ToolNames returns the tool keys of the analysis payload, sorted. Only keys
// holding structured values count; scalar envelope metadata is skipped.
func (a *StaticAdapter) ToolNames() []string {
	names := []string{}
	for name, v := range a.analysis {
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// issueList probes the two container shapes tool outputs use: the collection
// itself, or an object wrapping it under one of the given keys.
func issueList(v interface{}, keys ...string) []interface{} {
	if l, ok := asList(v); ok {
		return l
	}
	if m, ok := asMap(v); ok {
		if l, ok := getList(m, keys...); ok {
			return l
		}
	}
	return nil
}
