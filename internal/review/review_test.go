package review

import (
	"testing"

	"github.com/dshills/datatriage/internal/schema"
	"github.com/dshills/datatriage/internal/signal"
)

func finding(id string, status schema.Status) schema.Finding {
	return schema.Finding{ID: id, Status: status, Scope: schema.ScopeDataset}
}

func TestOverallStatusPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		findings []schema.Finding
		want     schema.OverallStatus
	}{
		{"empty", nil, schema.OverallHealthy},
		{"all safe", []schema.Finding{finding("a", schema.StatusSafe)}, schema.OverallHealthy},
		{"one warning", []schema.Finding{finding("a", schema.StatusSafe), finding("b", schema.StatusWarning)}, schema.OverallWarning},
		{"danger outranks warnings", []schema.Finding{finding("a", schema.StatusWarning), finding("b", schema.StatusDanger)}, schema.OverallCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallStatusOf(tt.findings); got != tt.want {
				t.Errorf("OverallStatusOf = %v, want %v", got, tt.want)
			}
		})
	}
}

// One DANGER among any number of SAFE findings still blocks.
func TestVerdictStrictPrecedence(t *testing.T) {
	findings := make([]schema.Finding, 0, 101)
	for i := 0; i < 100; i++ {
		findings = append(findings, finding("safe", schema.StatusSafe))
	}
	findings = append(findings, finding("bad", schema.StatusDanger))
	if got := VerdictOf(findings); got != schema.VerdictBlocked {
		t.Errorf("VerdictOf = %v, want BLOCKED", got)
	}
}

func TestVerdictMapping(t *testing.T) {
	tests := []struct {
		name     string
		findings []schema.Finding
		want     schema.Verdict
	}{
		{"healthy allows", []schema.Finding{finding("a", schema.StatusSafe)}, schema.VerdictAllowed},
		{"warning constrains", []schema.Finding{finding("a", schema.StatusWarning)}, schema.VerdictConstrained},
		{"danger blocks", []schema.Finding{finding("a", schema.StatusDanger)}, schema.VerdictBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerdictOf(tt.findings); got != tt.want {
				t.Errorf("VerdictOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountsAndPartition(t *testing.T) {
	findings := []schema.Finding{
		finding("a", schema.StatusSafe),
		finding("b", schema.StatusDanger),
		finding("c", schema.StatusWarning),
		finding("d", schema.StatusSafe),
	}
	s := Counts(findings)
	if s.TotalTests != 4 || s.Critical != 1 || s.Warning != 1 || s.Safe != 2 {
		t.Errorf("Counts = %+v", s)
	}

	risks, noIssues := Partition(findings)
	if len(risks.Critical) != 1 || risks.Critical[0].ID != "b" {
		t.Errorf("critical bucket = %+v", risks.Critical)
	}
	if len(risks.Warning) != 1 || risks.Warning[0].ID != "c" {
		t.Errorf("warning bucket = %+v", risks.Warning)
	}
	if len(noIssues) != 2 {
		t.Errorf("no_issues bucket = %+v", noIssues)
	}
}

func TestScaleClass(t *testing.T) {
	tests := []struct {
		rows int
		want string
	}{
		{10, "small"},
		{999, "small"},
		{1000, "medium"},
		{99999, "medium"},
		{100000, "large"},
	}
	for _, tt := range tests {
		if got := scaleClass(tt.rows); got != tt.want {
			t.Errorf("scaleClass(%d) = %q, want %q", tt.rows, got, tt.want)
		}
	}
}

func TestMemoryClass(t *testing.T) {
	tests := []struct {
		mb   float64
		want string
	}{
		{0.5, "light"},
		{9.99, "light"},
		{10, "moderate"},
		{499, "moderate"},
		{500, "heavy"},
	}
	for _, tt := range tests {
		if got := memoryClass(tt.mb); got != tt.want {
			t.Errorf("memoryClass(%v) = %q, want %q", tt.mb, got, tt.want)
		}
	}
}

func TestMixType(t *testing.T) {
	tests := []struct {
		num, cat float64
		want     string
	}{
		{0.3, 0.6, "Categorical Dominant (High Complexity)"},
		{0.5, 0.45, "Moderate Mix (Leaning Categorical)"},
		{0.35, 0.3, "Balanced Mix"},
		{0.8, 0.1, "Numerical Dominant (Low Complexity)"},
		{0.65, 0.2, "Moderate Mix (Leaning Numerical)"},
		{0.4, 0.2, "Unclear Mix"},
	}
	for _, tt := range tests {
		if got := mixType(tt.num, tt.cat); got != tt.want {
			t.Errorf("mixType(%v, %v) = %q, want %q", tt.num, tt.cat, got, tt.want)
		}
	}
}

func TestBuildReport(t *testing.T) {
	in := Input{
		Signals: signal.Bundle{
			Metadata: signal.Metadata{Rows: 500, Columns: 4, NumericRatio: 0.75, CategoricalRatio: 0.25, MemoryMB: 1.2},
		},
		Findings: []schema.Finding{
			finding("ok", schema.StatusSafe),
			finding("bad", schema.StatusDanger),
		},
		DeepFindings: []schema.Finding{{
			ID: "deep:x", Status: schema.StatusWarning, Scope: schema.ScopeColumn, Columns: []string{"x"},
		}},
		Failures: []schema.CheckError{{CheckID: "broken", Error: "no data"}},
		Meta:     schema.Meta{RunID: "run-1", Source: "data.csv"},
	}
	r := BuildReport(in)

	if r.Tool != Tool || r.OverallStatus != schema.OverallCritical {
		t.Errorf("header wrong: tool=%q status=%v", r.Tool, r.OverallStatus)
	}
	if r.Summary.TotalTests != 2 || r.Summary.Critical != 1 {
		t.Errorf("summary = %+v", r.Summary)
	}
	if r.KeyFacts.Size.Shape != "500 x 4" || r.KeyFacts.Size.Scale != "small" {
		t.Errorf("size facts = %+v", r.KeyFacts.Size)
	}
	if r.KeyFacts.FeatureMix.Type != "Numerical Dominant (Low Complexity)" {
		t.Errorf("mix type = %q", r.KeyFacts.FeatureMix.Type)
	}
	// Deep findings stay out of the summary and the overall status.
	if len(r.DeepAnalysis) != 1 || r.Summary.TotalTests != 2 {
		t.Errorf("deep tier leaked into summary: %+v", r.Summary)
	}
	if len(r.FailedChecks) != 1 || r.FailedChecks[0].CheckID != "broken" {
		t.Errorf("failed checks = %+v", r.FailedChecks)
	}
	if r.Meta.RunID != "run-1" {
		t.Errorf("meta = %+v", r.Meta)
	}
}
