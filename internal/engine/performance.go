package engine

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/auditlens/auditlens/api/schemas"
)

// latencyThresholdMs is the average response time above which a load-test run
// escalates from info to medium.
const latencyThresholdMs = 1000

// PerformanceAdapter converts named load-test runs into discrete findings.
// A failed or errored run yields exactly one high-severity finding; a
// successful run yields zero-to-two informational metric findings.
type PerformanceAdapter struct {
	analysis Payload
	log      *zap.Logger
}

func NewPerformanceAdapter(analysis Payload, logger *zap.Logger) *PerformanceAdapter {
	return &PerformanceAdapter{analysis: analysis, log: logger.Named("performance_adapter")}
}

func (a *PerformanceAdapter) Parse() []schemas.Finding {
	findings := []schemas.Finding{}
	for _, run := range a.ToolNames() {
		findings = append(findings, a.parseRun(run)...)
	}
	return findings
}

func (a *PerformanceAdapter) parseRun(name string) []schemas.Finding {
	run, ok := asMap(a.analysis[name])
	if !ok {
		return nil
	}

	status := getString(run, "", "status")
	if status == "failed" || status == "error" {
		return []schemas.Finding{{
			ID:       findingID(name, 0),
			Tool:     name,
			Category: "performance",
			Severity: schemas.SeverityHigh,
			Message:  fmt.Sprintf("Execution failed: %s", getString(run, "unknown error", "error", "message")),
			URL:      getString(run, "", "url", "target"),
			Raw:      a.analysis[name],
		}}
	}

	findings := []schemas.Finding{}
	url := getString(run, "", "url", "target")

	if rps, ok := getFloat(run, "requests_per_second"); ok {
		findings = append(findings, schemas.Finding{
			ID:       findingID(name, len(findings)),
			Tool:     name,
			Category: "performance",
			Severity: schemas.SeverityInfo,
			Message:  fmt.Sprintf("Requests per second: %.2f", rps),
			URL:      url,
			Metric:   "requests_per_second",
			Value:    rps,
			Raw:      a.analysis[name],
		})
	}

	if avg, ok := avgResponseTime(run); ok {
		severity := schemas.SeverityInfo
		if avg > latencyThresholdMs {
			severity = schemas.SeverityMedium
		}
		findings = append(findings, schemas.Finding{
			ID:       findingID(name, len(findings)),
			Tool:     name,
			Category: "performance",
			Severity: severity,
			Message:  fmt.Sprintf("Average response time: %.2f ms", avg),
			URL:      url,
			Metric:   "avg_response_time",
			Value:    avg,
			Raw:      a.analysis[name],
		})
	}
	return findings
}

func avgResponseTime(run Payload) (float64, bool) {
	for _, key := range []string{"avg_response_time", "average_response_time", "avg_latency"} {
		if v, ok := getFloat(run, key); ok {
			return v, true
		}
	}
	return 0, false
}

// ToolData flattens every numeric field of the run into the metrics list for
// display. TotalIssues counts only high-severity findings, i.e. execution
// failures, not informational metrics.
func (a *PerformanceAdapter) ToolData(tool string) schemas.ToolData {
	run, present := asMap(a.analysis[tool])
	issues := findingsForTool(a.Parse(), tool)

	failures := 0
	for _, f := range issues {
		if f.Severity == schemas.SeverityHigh {
			failures++
		}
	}

	summary := schemas.ToolSummary{
		Name:        tool,
		Status:      "not_run",
		TotalIssues: failures,
	}
	data := schemas.ToolData{
		Summary: summary,
		Issues:  issues,
		Metrics: []schemas.Metric{},
	}
	if !present {
		return data
	}

	data.Summary.Status = getString(run, "completed", "status")
	data.Summary.ExecutionTime = getString(run, "", "execution_time", "duration")
	data.Raw = a.analysis[tool]

	keys := make([]string, 0, len(run))
	for key := range run {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if v, ok := getFloat(run, key); ok {
			data.Metrics = append(data.Metrics, schemas.Metric{Name: key, Value: v})
		}
	}
	return data
}

func (a *PerformanceAdapter) Detail(id string) *schemas.DetailView {
	return detailFor(a.Parse(), id)
}

// ToolNames returns the run identifiers, sorted. Run keys are arbitrary
// ("locust", "load_test_1", ...); anything holding an object counts.
func (a *PerformanceAdapter) ToolNames() []string {
	names := []string{}
	for name, v := range a.analysis {
		if _, ok := asMap(v); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
