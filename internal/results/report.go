// File: internal/results/report.go
package results

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auditlens/auditlens/api/schemas"
	"github.com/auditlens/auditlens/internal/engine"
)

// severityOrder drives report prioritization (critical first). Success
// findings sort last; they are confirmations, not problems.
var severityOrder = map[schemas.Severity]int{
	schemas.SeverityCritical: 1,
	schemas.SeverityHigh:     2,
	schemas.SeverityMedium:   3,
	schemas.SeverityLow:      4,
	schemas.SeverityInfo:     5,
	schemas.SeveritySuccess:  6,
}

// Report is the aggregated output for one category payload: prioritized
// findings, per-tool views, and per-severity counts.
type Report struct {
	ID          string                     `json:"id"`
	Category    string                     `json:"category"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Findings    []schemas.Finding          `json:"findings"`
	Tools       map[string]schemas.ToolData `json:"tools"`
	Summary     map[string]int             `json:"summary"`
}

// Build runs the adapter and aggregates its output. The engine's source
// ordering carries no guarantee to callers, so the report is free to reorder
// by severity.
func Build(category engine.Category, adapter engine.Adapter, logger *zap.Logger) *Report {
	log := logger.Named("results")

	findings := adapter.Parse()
	prioritize(findings)

	tools := map[string]schemas.ToolData{}
	for _, name := range adapter.ToolNames() {
		tools[name] = adapter.ToolData(name)
	}

	report := &Report{
		ID:          uuid.NewString(),
		Category:    string(category),
		GeneratedAt: time.Now().UTC(),
		Findings:    findings,
		Tools:       tools,
		Summary:     summarize(findings),
	}

	log.Info("Built normalized report",
		zap.String("report_id", report.ID),
		zap.String("category", report.Category),
		zap.Int("findings", len(findings)),
		zap.Int("tools", len(tools)),
	)
	return report
}

// ToJSON serializes the report for output.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// prioritize sorts findings by severity, then tool, then id, keeping the
// order stable for identical keys.
func prioritize(findings []schemas.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		oi, ok := severityOrder[findings[i].Severity]
		if !ok {
			oi = 99
		}
		oj, ok := severityOrder[findings[j].Severity]
		if !ok {
			oj = 99
		}
		if oi != oj {
			return oi < oj
		}
		if findings[i].Tool != findings[j].Tool {
			return findings[i].Tool < findings[j].Tool
		}
		return findings[i].ID < findings[j].ID
	})
}

func summarize(findings []schemas.Finding) map[string]int {
	summary := map[string]int{"total": len(findings)}
	for _, f := range findings {
		summary[string(f.Severity)]++
	}
	return summary
}
