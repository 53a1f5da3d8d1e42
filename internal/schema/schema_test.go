package schema

import (
	"encoding/json"
	"reflect"
	"testing"
)

func validFinding() Finding {
	return Finding{
		ID:        "dataset_missing_ratio",
		Title:     "Data is mostly complete",
		CheckName: "Missing Values",
		Metric:    0.02,
		Status:    StatusSafe,
		RiskCode:  "MISSING_VOLUME",
		Scope:     ScopeDataset,
		Evidence:  map[string]any{"missing_ratio": 0.02, "note": "ok", "flag": true},
	}
}

func TestFindingValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Finding)
		wantErr bool
	}{
		{"valid", func(*Finding) {}, false},
		{"missing id", func(f *Finding) { f.ID = "" }, true},
		{"bad status", func(f *Finding) { f.Status = "MEH" }, true},
		{"bad scope", func(f *Finding) { f.Scope = "GLOBAL" }, true},
		{"dataset scope with columns", func(f *Finding) { f.Columns = []string{"a"} }, true},
		{"column scope without columns", func(f *Finding) { f.Scope = ScopeColumn }, true},
		{"column scope with columns", func(f *Finding) {
			f.Scope = ScopeColumn
			f.Columns = []string{"a"}
		}, false},
		{"non-serializable evidence", func(f *Finding) {
			f.Evidence = map[string]any{"bad": []int{1, 2}}
		}, true},
		{"integer evidence rejected", func(f *Finding) {
			f.Evidence = map[string]any{"n": 3}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFinding()
			tt.mutate(&f)
			err := f.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// Every finding shape a check can produce survives serialization unchanged.
func TestFindingRoundTrip(t *testing.T) {
	shapes := []Finding{
		validFinding(),
		{
			ID:       "column_max_constant_ratio",
			Title:    "No degenerate features exist",
			Metric:   0.96,
			Status:   StatusDanger,
			RiskCode: "DEGENERATE_FEATURES",
			Scope:    ScopeColumn,
			Columns:  []string{"stuck", "frozen"},
			Evidence: map[string]any{"max_constant_ratio": 0.96},
			Info:     "two degenerate columns",
		},
		{
			ID:                   "dataset_hidden_missing_values",
			Title:                "No hidden missing values",
			Metric:               3,
			Status:               StatusDanger,
			RiskCode:             "HIDDEN_MISSING",
			Scope:                ScopeDataset,
			DetectedPlaceholders: []string{"?", "NA"},
		},
	}
	for _, f := range shapes {
		data, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("marshal %s: %v", f.ID, err)
		}
		var back Finding
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", f.ID, err)
		}
		if !reflect.DeepEqual(f, back) {
			t.Errorf("round trip changed %s:\nbefore %+v\nafter  %+v", f.ID, f, back)
		}
	}
}

func TestParseReport(t *testing.T) {
	r := Report{
		Tool:          "datatriage",
		OverallStatus: OverallCritical,
		Summary:       Summary{TotalTests: 1, Critical: 1},
		Risks:         Risks{Critical: []Finding{validFinding()}},
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := ParseReport(data)
	if err != nil {
		t.Fatalf("ParseReport: %v", err)
	}
	if back.OverallStatus != OverallCritical || len(back.Risks.Critical) != 1 {
		t.Errorf("parsed report = %+v", back)
	}
}

func TestParseReportRejectsInvalidFindings(t *testing.T) {
	data := []byte(`{"overall_status":"HEALTHY","no_issues":[{"id":"","status":"SAFE","scope":"DATASET"}]}`)
	if _, err := ParseReport(data); err == nil {
		t.Fatal("report with invalid finding accepted")
	}
}

func TestStatusOrdinal(t *testing.T) {
	if StatusOrdinal(StatusSafe) >= StatusOrdinal(StatusWarning) ||
		StatusOrdinal(StatusWarning) >= StatusOrdinal(StatusDanger) {
		t.Error("status ordering violated")
	}
	if StatusOrdinal("bogus") != -1 {
		t.Error("unknown status should map to -1")
	}
}

func TestVerdictOrdinal(t *testing.T) {
	order := []Verdict{VerdictUnknown, VerdictAllowed, VerdictConstrained, VerdictBlocked}
	for i := 1; i < len(order); i++ {
		if VerdictOrdinal(order[i-1]) >= VerdictOrdinal(order[i]) {
			t.Errorf("%v should rank below %v", order[i-1], order[i])
		}
	}
	if VerdictOrdinal("bogus") != -1 {
		t.Error("unknown verdict should map to -1")
	}
}
