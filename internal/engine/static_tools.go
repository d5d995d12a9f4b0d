package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/auditlens/auditlens/api/schemas"
)

// staticRules is the compile-time dispatch table: tool identifier to
// extraction rule. Every rule tolerates any expected field being absent by
// substituting a default rather than failing.
var staticRules = map[Tool]extractFunc{
	ToolBandit:        extractBandit,
	ToolRuff:          extractRuff,
	ToolPylint:        extractPylint,
	ToolMypy:          extractMypy,
	ToolVulture:       extractVulture,
	ToolRadon:         extractRadon,
	ToolSafety:        extractDependencyAudit,
	ToolPipAudit:      extractDependencyAudit,
	ToolDetectSecrets: extractDetectSecrets,
	ToolESLint:        extractESLint,
	ToolStylelint:     extractStylelint,
	ToolNpmAudit:      extractNpmAudit,
	ToolSemgrep:       extractSemgrep,
}

func staticFinding(tool string, index int, issue interface{}) schemas.Finding {
	return schemas.Finding{
		ID:       findingID(tool, index),
		Tool:     tool,
		Language: toolLanguages[Tool(strings.ToLower(tool))],
		Raw:      issue,
	}
}

func extractBandit(tool string, payload interface{}) []schemas.Finding {
	findings := []schemas.Finding{}
	for i, entry := range issueList(payload, "issues", "results") {
		issue, _ := asMap(entry)
		f := staticFinding(tool, i, entry)
		f.Severity = NormalizeSeverity(issue["issue_severity"])
		f.Message = getString(issue, DefaultMessage, "issue_text", "message")
		f.File = getString(issue, UnknownFile, "filename", "file")
		f.Line = getInt(issue, 0, "line_number", "line")
		f.RuleID = getString(issue, "", "test_id", "test_name")
		findings = append(findings, f)
	}
	return findings
}

func extractRuff(tool string, payload interface{}) []schemas.Finding {
	findings := []schemas.Finding{}
	for i, entry := range issueList(payload, "issues", "results") {
		issue, _ := asMap(entry)
		f := staticFinding(tool, i, entry)
		f.Severity = NormalizeSeverity(getString(issue, "warning", "severity"))
		f.Message = getString(issue, DefaultMessage, "message")
		f.File = getString(issue, UnknownFile, "filename", "file")
		f.Line = getInt(issue, 0, "line", "row")
		if loc, ok := getMap(issue, "location"); ok {
			f.Line = getInt(loc, f.Line, "row", "line")
		}
		f.RuleID = getString(issue, "", "code", "rule")
		findings = append(findings, f)
	}
	return findings
}

func extractPylint(tool string, payload interface{}) []schemas.Finding {
	findings := []schemas.Finding{}
	for i, entry := range issueList(payload, "issues", "results") {
		issue, _ := asMap(entry)
		f := staticFinding(tool, i, entry)
		f.Severity = NormalizeSeverity(issue["type"])
		f.Message = getString(issue, DefaultMessage, "message")
		f.File = getString(issue, UnknownFile, "path", "file")
		f.Line = getInt(issue, 0, "line")
		f.RuleID = getString(issue, "", "message-id", "symbol")
		findings = append(findings, f)
	}
	return findings
}

func extractMypy(tool string, payload interface{}) []schemas.Finding {
	findings := []schemas.Finding{}
	for i, entry := range issueList(payload, "issues", "errors") {
		issue, _ := asMap(entry)
		f := staticFinding(tool, i, entry)
		f.Severity = NormalizeSeverity(getString(issue, "error", "severity"))
		f.Message = getString(issue, DefaultMessage, "message")
		f.File = getString(issue, UnknownFile, "file", "filename")
		f.Line = getInt(issue, 0, "line")
		f.RuleID = getString(issue, "type-error", "error_code", "code")
		findings = append(findings, f)
	}
	return findings
}

func extractVulture(tool string, payload interface{}) []schemas.Finding {
	findings := []schemas.Finding{}
	for i, entry := range issueList(payload, "issues", "results") {
		issue, _ := asMap(entry)
		f := staticFinding(tool, i, entry)
		f.Severity = schemas.SeverityLow
		f.Message = getString(issue, "", "message")
		if f.Message == "" {
			typ := getString(issue, "code", "typ", "type")
			name := getString(issue, "unknown", "name")
			f.Message = fmt.Sprintf("Unused %s: %s", typ, name)
		}
		f.File = getString(issue, UnknownFile, "filename", "file")
		f.Line = getInt(issue, 0, "first_lineno", "line")
		f.RuleID = "unused-code"
		findings = append(findings, f)
	}
	return findings
}

// radonRankSeverity maps cyclomatic-complexity letter ranks. A and B carry no
// entry: they are dropped silently, not reported as info.
var radonRankSeverity = map[string]schemas.Severity{
	"f": schemas.SeverityHigh,
	"e": schemas.SeverityHigh,
	"d": schemas.SeverityMedium,
	"c": schemas.SeverityLow,
}

// extractRadon reads the complexity report: a map keyed by file path, each
// value an array of per-function records ranked A-F.
func extractRadon(tool string, payload interface{}) []schemas.Finding {
	findings := []schemas.Finding{}
	files, ok := asMap(payload)
	if !ok {
		return findings
	}
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	i := 0
	for _, path := range paths {
		records, ok := asList(files[path])
		if !ok {
			continue
		}
		for _, entry := range records {
			record, _ := asMap(entry)
			rank := strings.ToLower(getString(record, "", "rank"))
			severity, reportable := radonRankSeverity[rank]
			if !reportable {
				continue
			}
			f := staticFinding(tool, i, entry)
			f.Severity = severity
			f.Message = fmt.Sprintf("Function '%s' has a complexity of %d (rank %s)",
				getString(record, "unknown", "name"),
				getInt(record, 0, "complexity"),
				strings.ToUpper(rank))
			f.File = path
			f.Line = getInt(record, 0, "lineno", "line")
			f.RuleID = "complexity"
			findings = append(findings, f)
			i++
		}
	}
	return findings
}

// extractDependencyAudit covers safety and pip-audit, which both report
// vulnerable requirement pins rather than source locations.
func extractDependencyAudit(tool string, payload interface{}) []schemas.Finding {
	findings := []schemas.Finding{}
	for i, entry := range issueList(payload, "issues", "vulnerabilities", "dependencies") {
		issue, _ := asMap(entry)
		f := staticFinding(tool, i, entry)
		f.Severity = NormalizeSeverity(getString(issue, "medium", "severity"))
		pkg := getString(issue, "unknown", "package_name", "name", "package")
		spec := getString(issue, "*", "vulnerable_spec", "spec", "vulnerable_versions")
		f.Message = getString(issue, "", "advisory", "description")
		if f.Message == "" {
			f.Message = fmt.Sprintf("Vulnerable package %s (%s)", pkg, spec)
		} else {
			f.Message = fmt.Sprintf("%s (%s): %s", pkg, spec, f.Message)
		}
		f.File = "requirements.txt"
		f.Line = 0 // The source renders "-" for dependency findings; line is unknown by nature.
		f.RuleID = getString(issue, "", "vulnerability_id", "id", "cve")
		findings = append(findings, f)
	}
	return findings
}

// extractDetectSecrets accepts both shapes the tool emits: a map of file path
// to secret arrays (native ".secrets.baseline" layout) or a flat array.
func extractDetectSecrets(tool string, payload interface{}) []schemas.Finding {
	findings := []schemas.Finding{}
	i := 0

	emit := func(file string, entry interface{}) {
		secret, _ := asMap(entry)
		f := staticFinding(tool, i, entry)
		f.Severity = NormalizeSeverity(getString(secret, "high", "severity"))
		f.Message = getString(secret, "Potential secret detected", "message")
		f.File = file
		if f.File == "" {
			f.File = getString(secret, UnknownFile, "filename", "file")
		}
		f.Line = getInt(secret, 0, "line_number", "line")
		f.RuleID = getString(secret, "", "type")
		findings = append(findings, f)
		i++
	}

	if flat, ok := asList(payload); ok {
		for _, entry := range flat {
			emit("", entry)
		}
		return findings
	}

	container, ok := asMap(payload)
	if !ok {
		return findings
	}
	if results, ok := getMap(container, "results"); ok {
		container = results
	}
	files := make([]string, 0, len(container))
	for file := range container {
		files = append(files, file)
	}
	sort.Strings(files)
	for _, file := range files {
		secrets, ok := asList(container[file])
		if !ok {
			continue
		}
		for _, entry := range secrets {
			emit(file, entry)
		}
	}
	return findings
}

// extractESLint walks the per-file result array, one finding per message.
// ESLint severity is numeric: 2 is an error, everything else a warning.
func extractESLint(tool string, payload interface{}) []schemas.Finding {
	findings := []schemas.Finding{}
	i := 0
	for _, entry := range issueList(payload, "issues", "results") {
		fileResult, ok := asMap(entry)
		if !ok {
			continue
		}
		file := getString(fileResult, UnknownFile, "filePath", "file")
		messages, _ := getList(fileResult, "messages")
		for _, msgEntry := range messages {
			msg, _ := asMap(msgEntry)
			f := staticFinding(tool, i, msgEntry)
			if getInt(msg, 1, "severity") == 2 {
				f.Severity = schemas.SeverityHigh
			} else {
				f.Severity = schemas.SeverityMedium
			}
			f.Message = getString(msg, DefaultMessage, "message")
			f.File = file
			f.Line = getInt(msg, 0, "line")
			f.RuleID = getString(msg, "", "ruleId")
			findings = append(findings, f)
			i++
		}
	}
	return findings
}

func extractStylelint(tool string, payload interface{}) []schemas.Finding {
	findings := []schemas.Finding{}
	i := 0
	for _, entry := range issueList(payload, "issues", "results") {
		fileResult, ok := asMap(entry)
		if !ok {
			continue
		}
		file := getString(fileResult, UnknownFile, "source", "file")
		warnings, _ := getList(fileResult, "warnings")
		for _, warnEntry := range warnings {
			warning, _ := asMap(warnEntry)
			f := staticFinding(tool, i, warnEntry)
			f.Severity = NormalizeSeverity(getString(warning, "warning", "severity"))
			f.Message = getString(warning, DefaultMessage, "text", "message")
			f.File = file
			f.Line = getInt(warning, 0, "line")
			f.RuleID = getString(warning, "", "rule")
			findings = append(findings, f)
			i++
		}
	}
	return findings
}

// extractNpmAudit accepts the advisory map keyed by id (npm audit v6) or a
// flat vulnerability array.
func extractNpmAudit(tool string, payload interface{}) []schemas.Finding {
	findings := []schemas.Finding{}

	emit := func(i int, entry interface{}) {
		advisory, _ := asMap(entry)
		f := staticFinding(tool, i, entry)
		f.Severity = NormalizeSeverity(getString(advisory, "moderate", "severity"))
		f.Message = getString(advisory, DefaultMessage, "title", "overview")
		f.File = "package.json"
		f.RuleID = getString(advisory, "", "module_name", "name", "id")
		findings = append(findings, f)
	}

	if flat, ok := asList(payload); ok {
		for i, entry := range flat {
			emit(i, entry)
		}
		return findings
	}

	container, ok := asMap(payload)
	if !ok {
		return findings
	}
	if advisories, ok := getMap(container, "advisories", "vulnerabilities"); ok {
		container = advisories
	}
	ids := make([]string, 0, len(container))
	for id := range container {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	i := 0
	for _, id := range ids {
		if advisory, ok := asMap(container[id]); ok {
			emit(i, advisory)
			i++
		}
	}
	return findings
}

func extractSemgrep(tool string, payload interface{}) []schemas.Finding {
	findings := []schemas.Finding{}
	for i, entry := range issueList(payload, "results", "issues") {
		issue, _ := asMap(entry)
		f := staticFinding(tool, i, entry)
		extra, _ := getMap(issue, "extra")
		f.Severity = NormalizeSeverity(getString(extra, "warning", "severity"))
		f.Message = getString(extra, "", "message")
		if f.Message == "" {
			f.Message = getString(issue, DefaultMessage, "message")
		}
		f.File = getString(issue, UnknownFile, "path", "file")
		f.Line = getInt(issue, 0, "line")
		if start, ok := getMap(issue, "start"); ok {
			f.Line = getInt(start, f.Line, "line")
		}
		f.RuleID = getString(issue, "", "check_id")
		findings = append(findings, f)
	}
	return findings
}
