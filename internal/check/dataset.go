package check

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/datatriage/internal/dataset"
	"github.com/dshills/datatriage/internal/schema"
)

// semanticPlaceholders are tokens that encode missingness without being a
// true null. Matched exactly against cell values of non-numeric columns.
var semanticPlaceholders = []string{"?", "NA", "na", "null", "NULL", "None", "none", "", " "}

// ladderExclusive maps v to SAFE (v<safe), WARNING (v<warn), else DANGER.
func ladderExclusive(v, safe, warn float64) schema.Status {
	switch {
	case v < safe:
		return schema.StatusSafe
	case v < warn:
		return schema.StatusWarning
	default:
		return schema.StatusDanger
	}
}

// ladderInclusive maps v to SAFE (v<=safe), WARNING (v<=warn), else DANGER.
func ladderInclusive(v, safe, warn float64) schema.Status {
	switch {
	case v <= safe:
		return schema.StatusSafe
	case v <= warn:
		return schema.StatusWarning
	default:
		return schema.StatusDanger
	}
}

func one(f schema.Finding) []schema.Finding { return []schema.Finding{f} }

func missingRatioCheck() Check {
	return Check{
		ID:   "dataset_missing_ratio",
		Name: "Missing Values",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			ratio := ctx.Signals.Health.MissingRatio
			return one(schema.Finding{
				ID:       "dataset_missing_ratio",
				Title:    "Data is mostly complete",
				Metric:   ratio,
				Status:   ladderExclusive(ratio, ctx.Cfg.MissingSafe, ctx.Cfg.MissingWarning),
				RiskCode: "MISSING_VOLUME",
				Scope:    schema.ScopeDataset,
				Evidence: map[string]any{"missing_ratio": ratio},
			}), nil
		},
	}
}

func structuralMissingnessCheck() Check {
	return Check{
		ID:   "dataset_structural_missingness",
		Name: "Structural Missingness",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			var critical []string
			for name, ratio := range ctx.Signals.Health.PerColumnMissing {
				if ratio > ctx.Cfg.StructuralMissingColumn {
					critical = append(critical, name)
				}
			}
			sort.Strings(critical)

			status := schema.StatusSafe
			info := ""
			if len(critical) > 0 {
				status = schema.StatusDanger
				info = "Row-wise deletion unsafe; high missingness in: " + strings.Join(critical, ", ")
			}
			return one(schema.Finding{
				ID:       "dataset_structural_missingness",
				Title:    "Missingness is not structural",
				Metric:   float64(len(critical)),
				Status:   status,
				RiskCode: "STRUCTURAL_MISSINGNESS",
				Scope:    schema.ScopeDataset,
				Evidence: map[string]any{"critical_columns_found": float64(len(critical))},
				Info:     info,
			}), nil
		},
	}
}

func hiddenMissingCheck() Check {
	return Check{
		ID:   "dataset_hidden_missing_values",
		Name: "Hidden Missing Values",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			tokens := make(map[string]bool, len(semanticPlaceholders))
			for _, t := range semanticPlaceholders {
				tokens[t] = true
			}

			total := 0
			found := make(map[string]bool)
			for _, col := range ctx.Dataset.Columns() {
				if col.Domain() == dataset.DomainNumeric {
					continue
				}
				for i := 0; i < col.Len(); i++ {
					if col.IsNull(i) {
						continue
					}
					if tokens[col.Value(i)] {
						total++
						found[col.Value(i)] = true
					}
				}
			}

			detected := make([]string, 0, len(found))
			for t := range found {
				detected = append(detected, t)
			}
			sort.Strings(detected)

			status := schema.StatusSafe
			info := ""
			if total > 0 {
				status = schema.StatusDanger
				info = fmt.Sprintf("Found %d hidden missing values", total)
			}
			return one(schema.Finding{
				ID:                   "dataset_hidden_missing_values",
				Title:                "No hidden missing values",
				Metric:               float64(total),
				Status:               status,
				RiskCode:             "HIDDEN_MISSING",
				Scope:                schema.ScopeDataset,
				Evidence:             map[string]any{"semantic_missing_detected": total > 0},
				Info:                 info,
				DetectedPlaceholders: detected,
			}), nil
		},
	}
}

func duplicatesCheck() Check {
	return Check{
		ID:   "dataset_duplicates_ratio",
		Name: "Duplicate Rows",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			ratio := ctx.Signals.Health.DuplicatedRatio
			return one(schema.Finding{
				ID:       "dataset_duplicates_ratio",
				Title:    "Duplicate rows are negligible",
				Metric:   ratio,
				Status:   ladderExclusive(ratio, ctx.Cfg.DuplicateSafe, ctx.Cfg.DuplicateWarning),
				RiskCode: "DUPLICATE_ROWS",
				Scope:    schema.ScopeDataset,
				Evidence: map[string]any{"duplicated_ratio": ratio},
			}), nil
		},
	}
}

func constantMeanCheck() Check {
	return Check{
		ID:   "dataset_constant_mean_ratio",
		Name: "Feature Information Density",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			mean := ctx.Signals.Health.MeanConstantRatio
			return one(schema.Finding{
				ID:       "dataset_constant_mean_ratio",
				Title:    "Most features carry information",
				Metric:   mean,
				Status:   ladderInclusive(mean, ctx.Cfg.ConstantMeanSafe, ctx.Cfg.ConstantMeanWarning),
				RiskCode: "LOW_INFORMATION_DENSITY",
				Scope:    schema.ScopeDataset,
				Evidence: map[string]any{"mean_constant_ratio": mean},
			}), nil
		},
	}
}

// constantColumnsCheck flags near-constant and degenerate columns. All
// offending columns land in one finding; a clean dataset yields a SAFE
// dataset-scoped finding carrying the global maximum.
func constantColumnsCheck() Check {
	return Check{
		ID:   "column_max_constant_ratio",
		Name: "Near-Constant Features",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			var offenders []string
			worst := 0.0
			status := schema.StatusSafe
			for name, ratio := range ctx.Signals.Health.ConstantRatios {
				if ratio > worst {
					worst = ratio
				}
				if ratio >= ctx.Cfg.ConstantColumnWarning {
					offenders = append(offenders, name)
					if ratio >= ctx.Cfg.ConstantColumnDanger {
						status = schema.StatusDanger
					} else if status == schema.StatusSafe {
						status = schema.StatusWarning
					}
				}
			}
			sort.Strings(offenders)

			f := schema.Finding{
				ID:       "column_max_constant_ratio",
				Title:    "No degenerate features exist",
				Metric:   worst,
				Status:   status,
				RiskCode: "DEGENERATE_FEATURES",
				Scope:    schema.ScopeDataset,
				Evidence: map[string]any{"max_constant_ratio": worst},
			}
			if len(offenders) > 0 {
				f.Scope = schema.ScopeColumn
				f.Columns = offenders
				f.Evidence["offending_columns"] = strings.Join(offenders, ", ")
			}
			return one(f), nil
		},
	}
}

func cardinalityCheck() Check {
	return Check{
		ID:   "dataset_cardinality_ratio",
		Name: "Cardinality Explosion",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			ratio := ctx.Signals.Complexity.Cardinality
			return one(schema.Finding{
				ID:       "dataset_cardinality_ratio",
				Title:    "Cardinality is manageable",
				Metric:   ratio,
				Status:   ladderInclusive(ratio, ctx.Cfg.CardinalitySafe, ctx.Cfg.CardinalityWarning),
				RiskCode: "CARDINALITY_EXPLOSION",
				Scope:    schema.ScopeDataset,
				Evidence: map[string]any{"cardinality_ratio": ratio},
			}), nil
		},
	}
}

func multicollinearityCheck() Check {
	return Check{
		ID:   "dataset_multicollinearity_density",
		Name: "Multicollinearity",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			density := ctx.Signals.Complexity.Multicollinearity
			return one(schema.Finding{
				ID:       "dataset_multicollinearity_density",
				Title:    "Strong multicollinearity is limited",
				Metric:   density,
				Status:   ladderInclusive(density, ctx.Cfg.MulticollinearitySafe, ctx.Cfg.MulticollinearityWarning),
				RiskCode: "MULTICOLLINEARITY",
				Scope:    schema.ScopeDataset,
				Evidence: map[string]any{"multicollinearity_density": density},
			}), nil
		},
	}
}

func outlierCheck() Check {
	return Check{
		ID:   "dataset_outlier_ratio",
		Name: "Outlier Sensitivity",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			ratio := ctx.Signals.Complexity.Outliers
			return one(schema.Finding{
				ID:       "dataset_outlier_ratio",
				Title:    "Extreme outliers are rare",
				Metric:   ratio,
				Status:   ladderInclusive(ratio, ctx.Cfg.OutlierSafe, ctx.Cfg.OutlierWarning),
				RiskCode: "OUTLIER_SENSITIVITY",
				Scope:    schema.ScopeDataset,
				Evidence: map[string]any{"outlier_ratio": ratio},
			}), nil
		},
	}
}

func mixedTypeCheck() Check {
	return Check{
		ID:   "dataset_mixed_type_ratio",
		Name: "Mixed Data Types",
		Run: func(ctx *Context) ([]schema.Finding, error) {
			ratio := ctx.Signals.Complexity.MixedType
			status := schema.StatusSafe
			if ratio > 0 {
				status = schema.StatusDanger
			}
			return one(schema.Finding{
				ID:       "dataset_mixed_type_ratio",
				Title:    "Mixed columns are rare",
				Metric:   ratio,
				Status:   status,
				RiskCode: "MIXED_TYPES",
				Scope:    schema.ScopeDataset,
				Evidence: map[string]any{"mixed_ratio": ratio},
			}), nil
		},
	}
}
