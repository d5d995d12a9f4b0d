// Package engine normalizes the mutually incompatible JSON outputs of
// third-party analysis tools into one canonical finding record. It is
// stateless and synchronous: every operation is a pure function of the
// caller-supplied payload, so adapters are safe to use from concurrent
// requests without coordination.
package engine

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/auditlens/auditlens/api/schemas"
)

// Payload is a decoded JSON object of unknown semantic shape.
type Payload = map[string]interface{}

// DefaultMessage is substituted when a source issue carries no description.
const DefaultMessage = "No description provided"

// UnknownFile is substituted when a source issue carries no location.
const UnknownFile = "unknown"

// Adapter converts one category's raw tool payload into canonical findings.
// Implementations never return errors and never panic on syntactically valid
// JSON of any shape; missing fields degrade to documented defaults.
type Adapter interface {
	// Parse returns the flat finding list in source order.
	Parse() []schemas.Finding

	// ToolData returns the UI-shaped view for one tool. An unknown tool name
	// yields an empty summary with zero issues, not an error.
	ToolData(tool string) schemas.ToolData

	// Detail returns the detail-modal view for a finding id, or nil when the
	// id matches nothing.
	Detail(id string) *schemas.DetailView

	// ToolNames lists the tool identifiers present in the payload, sorted.
	ToolNames() []string
}

// findingID synthesizes a per-parse identifier. Not globally stable.
func findingID(tool string, index int) string {
	return fmt.Sprintf("%s-%d", tool, index)
}

// -- loose map accessors --
//
// Upstream payloads rename and drop fields across tool versions, so every
// access point defaults instead of failing. These helpers centralize that.

func asMap(v interface{}) (Payload, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func asList(v interface{}) ([]interface{}, bool) {
	l, ok := v.([]interface{})
	return l, ok
}

// getMap returns the first present object value among keys.
func getMap(m Payload, keys ...string) (Payload, bool) {
	for _, k := range keys {
		if sub, ok := asMap(m[k]); ok {
			return sub, true
		}
	}
	return nil, false
}

// getList returns the first present array value among keys.
func getList(m Payload, keys ...string) ([]interface{}, bool) {
	for _, k := range keys {
		if l, ok := asList(m[k]); ok {
			return l, true
		}
	}
	return nil, false
}

// getString returns the first present key rendered as a string, or def.
// Numbers are formatted rather than rejected; upstream sources disagree about
// whether ids and severities are strings.
func getString(m Payload, def string, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return def
}

// getInt returns the first present key as an int, or def. Accepts float64
// (the default JSON number decoding) and numeric strings.
func getInt(m Payload, def int, keys ...string) int {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return int(v)
		case int:
			return v
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return int(n)
			}
		}
	}
	return def
}

// getFloat returns the key as a float64 when present and numeric.
func getFloat(m Payload, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// getBool returns the first present key as a bool, or def.
func getBool(m Payload, def bool, keys ...string) bool {
	for _, k := range keys {
		if b, ok := m[k].(bool); ok {
			return b
		}
	}
	return def
}

// stringify renders a scalar JSON value for display. Objects and arrays
// collapse to "" so callers fall through to their default.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// remarshal round-trips a decoded subtree into a typed structure. Used to
// hand embedded SARIF documents to the typed SARIF adapter.
func remarshal(v interface{}, out interface{}) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("remarshal: %w", err)
	}
	return json.Unmarshal(buf, out)
}

// buildDetail shapes one finding for the detail modal. Evidence is the raw
// source payload by reference.
func buildDetail(f schemas.Finding) *schemas.DetailView {
	title := f.RuleID
	if title == "" {
		title = f.Metric
	}
	if title == "" {
		title = f.Tool
	}

	location := f.URL
	if location == "" {
		location = f.File
		if f.Line > 0 {
			location = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
	}

	detail := &schemas.DetailView{
		Title:       title,
		Subtitle:    f.Tool,
		Severity:    f.Severity,
		Description: f.Message,
		Location:    location,
		Evidence:    f.Raw,
	}
	if f.Category != "" {
		detail.Subtitle = fmt.Sprintf("%s (%s)", f.Tool, f.Category)
	}

	if raw, ok := asMap(f.Raw); ok {
		detail.Code = getString(raw, "", "code", "snippet", "code_snippet", "line_content")
		detail.Remediation = getString(raw, "", "remediation", "fix", "recommendation", "more_info")
	}
	return detail
}

// detailFor searches a parsed finding list for an id. Nil means not found;
// this is the engine's only error-like signal.
func detailFor(findings []schemas.Finding, id string) *schemas.DetailView {
	for _, f := range findings {
		if f.ID == id {
			return buildDetail(f)
		}
	}
	return nil
}

// findingsForTool filters a parsed list down to one tool.
func findingsForTool(findings []schemas.Finding, tool string) []schemas.Finding {
	out := []schemas.Finding{}
	for _, f := range findings {
		if f.Tool == tool {
			out = append(out, f)
		}
	}
	return out
}
