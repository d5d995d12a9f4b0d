package engine

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/auditlens/auditlens/api/schemas"
)

// Sub-type discriminators for dynamic findings. The UI separates network
// findings by these tags since all three kinds can co-occur in one payload.
const (
	DynamicSecurityScan  = "security_scan"
	DynamicVulnerability = "vulnerability"
	DynamicPortScan      = "port_scan"
)

// DynamicAdapter merges the sub-categories a network scan payload can carry:
// a security scan with named risk buckets, a flat vulnerability list, and a
// port scan. A missing sub-category contributes zero findings, not an error.
type DynamicAdapter struct {
	analysis Payload
	log      *zap.Logger
}

func NewDynamicAdapter(analysis Payload, logger *zap.Logger) *DynamicAdapter {
	return &DynamicAdapter{analysis: analysis, log: logger.Named("dynamic_adapter")}
}

func (a *DynamicAdapter) Parse() []schemas.Finding {
	findings := a.parseSecurityScan()
	findings = append(findings, a.parseVulnerabilities()...)
	findings = append(findings, a.parsePortScan()...)
	return findings
}

// parseSecurityScan walks the named risk buckets. The bucket name is the
// severity token ("high_risk", "medium_risk", ...) and is fed through the
// substring normalizer.
func (a *DynamicAdapter) parseSecurityScan() []schemas.Finding {
	findings := []schemas.Finding{}
	scan, ok := getMap(a.analysis, "security_scan", "security")
	if !ok {
		return findings
	}

	buckets := make([]string, 0, len(scan))
	for bucket := range scan {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)

	i := 0
	for _, bucket := range buckets {
		items, ok := asList(scan[bucket])
		if !ok {
			continue
		}
		severity := NormalizeSeverity(bucket)
		for _, entry := range items {
			item, _ := asMap(entry)
			findings = append(findings, schemas.Finding{
				ID:       findingID(DynamicSecurityScan, i),
				Tool:     DynamicSecurityScan,
				Category: DynamicSecurityScan,
				Severity: severity,
				Message:  getString(item, DefaultMessage, "description", "message", "name"),
				URL:      getString(item, "", "url", "uri", "endpoint"),
				RuleID:   getString(item, "", "rule_id", "alert", "id"),
				Raw:      entry,
			})
			i++
		}
	}
	return findings
}

// parseVulnerabilities reads the generic vulnerability list, each record
// carrying its own severity token.
func (a *DynamicAdapter) parseVulnerabilities() []schemas.Finding {
	findings := []schemas.Finding{}
	vulns, ok := getList(a.analysis, "vulnerabilities", "vulns")
	if !ok {
		return findings
	}
	for i, entry := range vulns {
		vuln, _ := asMap(entry)
		findings = append(findings, schemas.Finding{
			ID:       findingID(DynamicVulnerability, i),
			Tool:     DynamicVulnerability,
			Category: DynamicVulnerability,
			Severity: NormalizeSeverity(vuln["severity"]),
			Message:  getString(vuln, DefaultMessage, "description", "message", "title", "name"),
			URL:      getString(vuln, "", "url", "uri", "endpoint"),
			RuleID:   getString(vuln, "", "id", "cve", "rule_id"),
			Raw:      entry,
		})
	}
	return findings
}

// parsePortScan accepts either a bare array of open ports or an object with
// an "open_ports" array plus host metadata. Open ports always normalize to
// severity info.
func (a *DynamicAdapter) parsePortScan() []schemas.Finding {
	findings := []schemas.Finding{}
	raw, present := a.analysis[DynamicPortScan]
	if !present {
		raw, present = a.analysis["ports"]
	}
	if !present {
		return findings
	}

	host := ""
	ports, isList := asList(raw)
	if !isList {
		scan, ok := asMap(raw)
		if !ok {
			return findings
		}
		host = getString(scan, "", "host", "target")
		ports, _ = getList(scan, "open_ports", "ports")
	}

	for i, entry := range ports {
		f := schemas.Finding{
			ID:       findingID(DynamicPortScan, i),
			Tool:     DynamicPortScan,
			Category: DynamicPortScan,
			Severity: schemas.SeverityInfo,
			Raw:      entry,
		}
		switch port := entry.(type) {
		case map[string]interface{}:
			number := getInt(port, 0, "port", "number")
			service := getString(port, "unknown", "service", "name")
			f.Message = fmt.Sprintf("Open port %d (%s)", number, service)
			f.URL = getString(port, hostPort(host, number), "url")
		default:
			f.Message = fmt.Sprintf("Open port %s", stringify(entry))
			f.URL = host
		}
		findings = append(findings, f)
	}
	return findings
}

func hostPort(host string, port int) string {
	if host == "" || port == 0 {
		return host
	}
	return fmt.Sprintf("%s:%d", host, port)
}

func (a *DynamicAdapter) ToolData(tool string) schemas.ToolData {
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
		Raw:     a.analysis[tool],
	}
}

func (a *DynamicAdapter) Detail(id string) *schemas.DetailView {
	return detailFor(a.Parse(), id)
}

// ToolNames lists the sub-categories actually present in the payload.
func (a *DynamicAdapter) ToolNames() []string {
	names := []string{}
	if _, ok := getMap(a.analysis, "security_scan", "security"); ok {
		names = append(names, DynamicSecurityScan)
	}
	if _, ok := getList(a.analysis, "vulnerabilities", "vulns"); ok {
		names = append(names, DynamicVulnerability)
	}
	if _, ok := a.analysis[DynamicPortScan]; ok {
		names = append(names, DynamicPortScan)
	} else if _, ok := a.analysis["ports"]; ok {
		names = append(names, DynamicPortScan)
	}
	return names
}
