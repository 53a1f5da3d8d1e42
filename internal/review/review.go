// Package review synthesizes a verdict and a frontend-ready report from a
// finding set. The synthesis is a pure function of its inputs: the same
// findings always produce the same overall status, counts, and verdict.
package review

import (
	"fmt"

	"github.com/dshills/datatriage/internal/schema"
	"github.com/dshills/datatriage/internal/signal"
)

const (
	// Tool and Version identify the producer in serialized reports.
	Tool    = "datatriage"
	Version = "0.3.0"
)

// OverallStatusOf aggregates finding statuses by strict severity precedence:
// any DANGER makes the dataset CRITICAL, otherwise any WARNING makes it
// WARNING, otherwise HEALTHY.
func OverallStatusOf(findings []schema.Finding) schema.OverallStatus {
	worst := 0
	for _, f := range findings {
		if o := schema.StatusOrdinal(f.Status); o > worst {
			worst = o
		}
	}
	switch worst {
	case 2:
		return schema.OverallCritical
	case 1:
		return schema.OverallWarning
	default:
		return schema.OverallHealthy
	}
}

// VerdictOf maps a finding set to the modeling permission it grants. One
// DANGER among any number of SAFE findings still blocks.
func VerdictOf(findings []schema.Finding) schema.Verdict {
	switch OverallStatusOf(findings) {
	case schema.OverallCritical:
		return schema.VerdictBlocked
	case schema.OverallWarning:
		return schema.VerdictConstrained
	default:
		return schema.VerdictAllowed
	}
}

// Counts tallies the finding set into a summary breakdown.
func Counts(findings []schema.Finding) schema.Summary {
	s := schema.Summary{TotalTests: len(findings)}
	for _, f := range findings {
		switch f.Status {
		case schema.StatusDanger:
			s.Critical++
		case schema.StatusWarning:
			s.Warning++
		default:
			s.Safe++
		}
	}
	return s
}

// Partition splits a finding set into ranked risks and a no-issues list,
// preserving the input order within each bucket.
func Partition(findings []schema.Finding) (risks schema.Risks, noIssues []schema.Finding) {
	for _, f := range findings {
		switch f.Status {
		case schema.StatusDanger:
			risks.Critical = append(risks.Critical, f)
		case schema.StatusWarning:
			risks.Warning = append(risks.Warning, f)
		default:
			noIssues = append(noIssues, f)
		}
	}
	return risks, noIssues
}

// Facts derives the at-a-glance dataset description from the signal bundle.
func Facts(b signal.Bundle) schema.KeyFacts {
	return schema.KeyFacts{
		Size: schema.SizeFacts{
			Rows:    b.Metadata.Rows,
			Columns: b.Metadata.Columns,
			Shape:   fmt.Sprintf("%d x %d", b.Metadata.Rows, b.Metadata.Columns),
			Scale:   scaleClass(b.Metadata.Rows),
		},
		Memory: schema.MemoryFacts{
			UsageMB: b.Metadata.MemoryMB,
			Class:   memoryClass(b.Metadata.MemoryMB),
		},
		FeatureMix: schema.MixFacts{
			Type:             mixType(b.Metadata.NumericRatio, b.Metadata.CategoricalRatio),
			NumericRatio:     b.Metadata.NumericRatio,
			CategoricalRatio: b.Metadata.CategoricalRatio,
		},
	}
}

func scaleClass(rows int) string {
	switch {
	case rows < 1_000:
		return "small"
	case rows < 100_000:
		return "medium"
	default:
		return "large"
	}
}

func memoryClass(mb float64) string {
	switch {
	case mb < 10:
		return "light"
	case mb < 500:
		return "moderate"
	default:
		return "heavy"
	}
}

// mixType classifies the numeric/categorical balance. The boundaries are
// checked in order; the first match wins.
func mixType(numRatio, catRatio float64) string {
	switch {
	case catRatio >= 0.55:
		return "Categorical Dominant (High Complexity)"
	case catRatio >= 0.40:
		return "Moderate Mix (Leaning Categorical)"
	case numRatio-catRatio <= 0.10 && catRatio-numRatio <= 0.10:
		return "Balanced Mix"
	case numRatio >= 0.70:
		return "Numerical Dominant (Low Complexity)"
	case numRatio >= 0.60:
		return "Moderate Mix (Leaning Numerical)"
	default:
		return "Unclear Mix"
	}
}

// Input carries everything one report is built from.
type Input struct {
	Signals      signal.Bundle
	Findings     []schema.Finding
	DeepFindings []schema.Finding
	Failures     []schema.CheckError
	Meta         schema.Meta
}

// BuildReport assembles the serializable report. Only the Layer-1 findings
// determine the overall status and summary counts; deep findings go to their
// own section.
func BuildReport(in Input) schema.Report {
	risks, noIssues := Partition(in.Findings)
	return schema.Report{
		Tool:          Tool,
		Version:       Version,
		OverallStatus: OverallStatusOf(in.Findings),
		Summary:       Counts(in.Findings),
		KeyFacts:      Facts(in.Signals),
		Risks:         risks,
		NoIssues:      noIssues,
		DeepAnalysis:  in.DeepFindings,
		FailedChecks:  in.Failures,
		Meta:          in.Meta,
	}
}
