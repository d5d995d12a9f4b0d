package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auditlens/auditlens/api/schemas"
)

func aiAdapterFromJSON(t *testing.T, raw string) *AIRequirementAdapter {
	t.Helper()
	return NewAIRequirementAdapter(analysisFromJSON(t, raw), zap.NewNop())
}

func TestAIRequirementAdapterChecklist(t *testing.T) {
	adapter := aiAdapterFromJSON(t, `{"requirement_check": {
		"requirements": [
			{"requirement": "User can register", "met": true, "confidence": 0.96},
			{"requirement": "Rate limiting enforced", "met": false, "confidence": 0.81}
		],
		"backend_requirements": [
			{"requirement": "API returns JSON errors", "met": true}
		]
	}}`)

	findings := adapter.Parse()
	require.Len(t, findings, 3)

	met := findings[0]
	assert.Equal(t, schemas.SeveritySuccess, met.Severity)
	assert.Equal(t, "met", met.Status)
	assert.Equal(t, "User can register", met.Message)
	assert.Equal(t, "requirements", met.Category)
	assert.Equal(t, 0.96, met.Confidence)

	unmet := findings[1]
	assert.Equal(t, schemas.SeverityHigh, unmet.Severity)
	assert.Equal(t, "not_met", unmet.Status)

	backend := findings[2]
	assert.Equal(t, "backend", backend.Category)
	assert.Nil(t, backend.Confidence)
}

func TestAIRequirementAdapterQualityMetrics(t *testing.T) {
	adapter := aiAdapterFromJSON(t, `{"code_quality": {"metrics": [
		{"metric": "maintainability", "score": 35, "passed": false},
		{"metric": "readability", "score": 70, "passed": false},
		{"metric": "test coverage", "score": 92, "passed": true}
	]}}`)

	findings := adapter.Parse()
	require.Len(t, findings, 3)

	failing := findings[0]
	assert.Equal(t, schemas.SeverityHigh, failing.Severity, "score below 40 is a hard failure")
	assert.Equal(t, "failed", failing.Status)
	assert.Equal(t, 35.0, failing.Value)

	weak := findings[1]
	assert.Equal(t, schemas.SeverityMedium, weak.Severity, "failed but scored 40 or above")

	passed := findings[2]
	assert.Equal(t, schemas.SeveritySuccess, passed.Severity)
	assert.Equal(t, "passed", passed.Status)
	assert.Equal(t, "quality", passed.Category)
}

func TestAIRequirementAdapterToolData(t *testing.T) {
	adapter := aiAdapterFromJSON(t, `{"requirement_check": {
		"requirements": [
			{"requirement": "a", "met": true},
			{"requirement": "b", "met": false},
			{"requirement": "c", "met": false}
		]
	}}`)

	data := adapter.ToolData("requirement_check")
	assert.Equal(t, "completed", data.Summary.Status)
	// Success findings are not issues; only the unmet requirements count.
	assert.Equal(t, 2, data.Summary.TotalIssues)
	assert.Len(t, data.Issues, 3)

	missing := adapter.ToolData("nonexistent-tool")
	assert.Equal(t, "not_run", missing.Summary.Status)
	assert.Equal(t, 0, missing.Summary.TotalIssues)
}

func TestAIRequirementAdapterUnrecognizedShape(t *testing.T) {
	adapter := aiAdapterFromJSON(t, `{"oracle": {"verdict": "fine"}}`)
	assert.Empty(t, adapter.Parse())
	assert.Equal(t, []string{"oracle"}, adapter.ToolNames())
}

func TestAIRequirementAdapterDetail(t *testing.T) {
	adapter := aiAdapterFromJSON(t, `{"requirement_check": {"requirements": [
		{"requirement": "Sessions expire", "met": false, "confidence": 0.7}
	]}}`)

	detail := adapter.Detail("requirement_check-0")
	require.NotNil(t, detail)
	assert.Equal(t, schemas.SeverityHigh, detail.Severity)
	assert.Equal(t, "Sessions expire", detail.Description)
	assert.Contains(t, detail.Subtitle, "requirements")

	assert.Nil(t, adapter.Detail("nonexistent-id"))
}
