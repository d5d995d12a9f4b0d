package schemas

// -- Finding Schemas --

// Severity represents the canonical severity level of a normalized finding.
// The values are lowercase to align with what the detail view renders.
type Severity string

// Constants defining the standard severity levels for findings.
const (
	SeverityCritical Severity = "critical" // Represents a critical issue.
	SeverityHigh     Severity = "high"     // Represents a high-severity issue.
	SeverityMedium   Severity = "medium"   // Represents a medium-severity issue.
	SeverityLow      Severity = "low"      // Represents a low-severity issue.
	SeverityInfo     Severity = "info"     // Represents an informational finding.

	// SeveritySuccess marks a passed requirement or quality check. It is only
	// produced by the AI-requirement adapter, where "passed" is a first-class
	// outcome rather than the absence of a finding.
	SeveritySuccess Severity = "success"
)

// Finding is the canonical record every adapter produces. Upstream tools
// disagree about everything (shape, field names, severity conventions), so
// this is the one structure the detail view can rely on. Optional fields are
// zero-valued rather than absent; Raw always carries the untouched source
// payload for the evidence pane.
type Finding struct {
	ID       string   `json:"id"`   // Unique within one parse invocation, not globally stable.
	Tool     string   `json:"tool"` // Originating tool identifier.
	Category string   `json:"category,omitempty"`
	Language string   `json:"language,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`

	// Location for file-based findings. File defaults to "unknown", Line to 0.
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`

	RuleID string `json:"rule_id,omitempty"` // Tool-specific rule/check identifier.

	// URL replaces File/Line for network-target findings (dynamic and
	// performance categories).
	URL string `json:"url,omitempty"`

	// Metric and Value are set for performance findings.
	Metric string  `json:"metric,omitempty"`
	Value  float64 `json:"value,omitempty"`

	// Status and Confidence are set for AI-requirement findings.
	Status     string      `json:"status,omitempty"`
	Confidence interface{} `json:"confidence,omitempty"`

	// Raw is the unmodified per-issue source payload, copied by reference and
	// never mutated.
	Raw interface{} `json:"raw,omitempty"`
}

// ToolSummary describes one tool's run at the aggregate level.
type ToolSummary struct {
	Name          string `json:"name"`
	Status        string `json:"status"`
	TotalIssues   int    `json:"total_issues"`
	ExecutionTime string `json:"execution_time"`
}

// Metric is a single named measurement extracted from a performance run,
// flattened for display.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ToolData is the per-tool view handed to the UI: the summary header, the
// normalized issues table, and any extracted metrics.
type ToolData struct {
	Summary   ToolSummary `json:"summary"`
	Issues    []Finding   `json:"issues"`
	Metrics   []Metric    `json:"metrics"`
	SARIFFile string      `json:"sarif_file,omitempty"`
	Raw       interface{} `json:"raw,omitempty"`
}

// DetailView is the shape the finding detail modal renders. Evidence carries
// the finding's raw payload verbatim.
type DetailView struct {
	Title       string      `json:"title"`
	Subtitle    string      `json:"subtitle"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	Code        string      `json:"code,omitempty"`
	Remediation string      `json:"remediation,omitempty"`
	Evidence    interface{} `json:"evidence"`
}
