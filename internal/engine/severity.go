package engine

import (
	"strings"

	"github.com/auditlens/auditlens/api/schemas"
)

// NormalizeSeverity maps an arbitrary raw severity token to the canonical
// 5-level taxonomy. It is a substring heuristic, tested in fixed priority
// order, and intentionally distinct from the exact SARIF level table in
// sarifadapter.go: the two conventions coexist and must not be unified.
//
// It never fails: nil, unknown, and empty tokens map to info. Already
// canonical values map to themselves.
func NormalizeSeverity(raw interface{}) schemas.Severity {
	token := strings.ToLower(stringify(raw))

	switch {
	case strings.Contains(token, "critical"):
		return schemas.SeverityCritical
	case strings.Contains(token, "high"), strings.Contains(token, "error"):
		return schemas.SeverityHigh
	case strings.Contains(token, "medium"), strings.Contains(token, "warn"):
		return schemas.SeverityMedium
	case strings.Contains(token, "low"), strings.Contains(token, "note"):
		return schemas.SeverityLow
	default:
		return schemas.SeverityInfo
	}
}
