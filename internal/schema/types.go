package schema

// Report is the top-level output structure for one diagnostic run.
type Report struct {
	Tool          string        `json:"tool"`
	Version       string        `json:"version"`
	OverallStatus OverallStatus `json:"overall_status"`
	Summary       Summary       `json:"summary"`
	KeyFacts      KeyFacts      `json:"key_facts"`
	Risks         Risks         `json:"risks"`
	NoIssues      []Finding     `json:"no_issues"`
	DeepAnalysis  []Finding     `json:"deep_analysis,omitempty"`
	FailedChecks  []CheckError  `json:"failed_checks,omitempty"`
	Meta          Meta          `json:"meta"`
}

// Risks partitions the non-SAFE findings by severity.
type Risks struct {
	Critical []Finding `json:"critical"`
	Warning  []Finding `json:"warning"`
}

// Summary holds the test count breakdown.
// Counts always reflect the full Layer-1 finding set; deep-analysis findings
// are reported separately and never feed the counts or the verdict.
type Summary struct {
	TotalTests int `json:"total_tests"`
	Critical   int `json:"critical"`
	Warning    int `json:"warning"`
	Safe       int `json:"safe"`
}

// Meta holds runtime metadata about the run.
type Meta struct {
	RunID        string `json:"run_id"`
	Source       string `json:"source,omitempty"`
	TargetColumn string `json:"target_column,omitempty"`
}

// CheckError records a check that raised during evaluation. The check
// contributes no finding; the suite continues without it.
type CheckError struct {
	CheckID string `json:"check_id"`
	Error   string `json:"error"`
}

// KeyFacts describes the dataset at a glance.
type KeyFacts struct {
	Size       SizeFacts   `json:"size"`
	Memory     MemoryFacts `json:"memory"`
	FeatureMix MixFacts    `json:"feature_mix"`
}

// SizeFacts reports dataset dimensions with a coarse scale class.
type SizeFacts struct {
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Shape   string `json:"shape"`
	Scale   string `json:"scale"`
}

// MemoryFacts reports the in-memory footprint with a coarse weight class.
type MemoryFacts struct {
	UsageMB float64 `json:"usage_mb"`
	Class   string  `json:"class"`
}

// MixFacts classifies the numeric/categorical feature balance.
type MixFacts struct {
	Type             string  `json:"type"`
	NumericRatio     float64 `json:"numeric_ratio"`
	CategoricalRatio float64 `json:"categorical_ratio"`
}

// Status is the per-finding severity classification.
type Status string

const (
	StatusSafe    Status = "SAFE"
	StatusWarning Status = "WARNING"
	StatusDanger  Status = "DANGER"
)

// StatusOrdinal returns the numeric ordering for a status:
// SAFE(0) < WARNING(1) < DANGER(2). Returns -1 for an unrecognised status.
func StatusOrdinal(s Status) int {
	switch s {
	case StatusSafe:
		return 0
	case StatusWarning:
		return 1
	case StatusDanger:
		return 2
	default:
		return -1
	}
}

// OverallStatus is the dataset-level aggregation of all finding statuses.
type OverallStatus string

const (
	OverallHealthy  OverallStatus = "HEALTHY"
	OverallWarning  OverallStatus = "WARNING"
	OverallCritical OverallStatus = "CRITICAL"
)

// Verdict is the permission state gating downstream modeling.
type Verdict string

const (
	VerdictUnknown     Verdict = "UNKNOWN"
	VerdictAllowed     Verdict = "ALLOWED"
	VerdictConstrained Verdict = "CONSTRAINED"
	VerdictBlocked     Verdict = "BLOCKED"
)

// VerdictOrdinal returns the numeric ordering for a verdict:
// UNKNOWN(0) < ALLOWED(1) < CONSTRAINED(2) < BLOCKED(3). Returns -1 for an
// unrecognised verdict.
func VerdictOrdinal(v Verdict) int {
	switch v {
	case VerdictUnknown:
		return 0
	case VerdictAllowed:
		return 1
	case VerdictConstrained:
		return 2
	case VerdictBlocked:
		return 3
	default:
		return -1
	}
}

// Scope identifies what a finding is about.
type Scope string

const (
	ScopeDataset Scope = "DATASET"
	ScopeColumn  Scope = "COLUMN"
)

// Finding is a structured, evidence-backed report that one assumption about
// the dataset was or was not violated. Immutable once produced.
//
// Evidence values are restricted to float64, string, and bool so a finding
// survives a JSON round trip unchanged; see Validate.
type Finding struct {
	ID                   string         `json:"id"`
	Title                string         `json:"title"`
	CheckName            string         `json:"check_name"`
	Metric               float64        `json:"metric"`
	Status               Status         `json:"status"`
	RiskCode             string         `json:"risk_code"`
	Scope                Scope          `json:"scope"`
	Columns              []string       `json:"columns,omitempty"`
	Evidence             map[string]any `json:"evidence,omitempty"`
	Info                 string         `json:"info,omitempty"`
	DetectedPlaceholders []string       `json:"detected_placeholders,omitempty"`
}
