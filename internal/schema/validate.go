package schema

import (
	"encoding/json"
	"fmt"
)

// Validate reports whether the finding is structurally sound. A check that
// produces an invalid finding is a programming error, not a data condition.
func (f *Finding) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("finding id is required")
	}
	if StatusOrdinal(f.Status) < 0 {
		return fmt.Errorf("finding %s: invalid status %q", f.ID, f.Status)
	}
	switch f.Scope {
	case ScopeDataset:
		if len(f.Columns) > 0 {
			return fmt.Errorf("finding %s: dataset-scoped finding must not name columns", f.ID)
		}
	case ScopeColumn:
		if len(f.Columns) == 0 {
			return fmt.Errorf("finding %s: column-scoped finding must name at least one column", f.ID)
		}
	default:
		return fmt.Errorf("finding %s: invalid scope %q", f.ID, f.Scope)
	}
	for k, v := range f.Evidence {
		switch v.(type) {
		case float64, string, bool:
		default:
			return fmt.Errorf("finding %s: evidence %q has non-serializable type %T", f.ID, k, v)
		}
	}
	return nil
}

// ParseReport decodes serialized report bytes back into a Report, verifying
// every embedded finding. Used by consumers that persist or relay runs.
func ParseReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("JSON parse failed: %w", err)
	}
	all := make([]Finding, 0, len(r.Risks.Critical)+len(r.Risks.Warning)+len(r.NoIssues)+len(r.DeepAnalysis))
	all = append(all, r.Risks.Critical...)
	all = append(all, r.Risks.Warning...)
	all = append(all, r.NoIssues...)
	all = append(all, r.DeepAnalysis...)
	for i := range all {
		if err := all[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &r, nil
}
