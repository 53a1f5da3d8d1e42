package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/datatriage/internal/schema"
)

// writeCleanCSV writes a small dataset that passes every assumption check.
func writeCleanCSV(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("x,c\n")
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&sb, "%d,g%d\n", (i*13)%29, i%4)
	}
	path := filepath.Join(t.TempDir(), "clean.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

// writeDirtyCSV writes a dataset with enough empty cells to trip the missing
// data check at the DANGER level.
func writeDirtyCSV(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("a,b\n")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&sb, "%d,v%d\n", i, i)
	}
	sb.WriteString(",\n,\n")
	path := filepath.Join(t.TempDir(), "dirty.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func defaultFlags() checkFlags {
	return checkFlags{format: "json"}
}

func readReport(t *testing.T, path string) schema.Report {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var report schema.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, data)
	}
	return report
}

func asExitErr(err error, out **exitErr) bool {
	e, ok := err.(*exitErr)
	if ok {
		*out = e
	}
	return ok
}

func TestRunCheck_CleanDataset(t *testing.T) {
	flags := defaultFlags()
	flags.out = filepath.Join(t.TempDir(), "out.json")

	if err := runCheck(writeCleanCSV(t), flags); err != nil {
		t.Fatalf("runCheck: %v", err)
	}

	report := readReport(t, flags.out)
	if report.Tool != "datatriage" {
		t.Errorf("tool = %q", report.Tool)
	}
	if report.OverallStatus != schema.OverallHealthy {
		t.Errorf("overall_status = %s, want HEALTHY", report.OverallStatus)
	}
	if report.Summary.TotalTests == 0 {
		t.Error("summary reports zero tests")
	}
	if report.Summary.Critical != 0 || report.Summary.Warning != 0 {
		t.Errorf("clean dataset raised risks: %+v", report.Summary)
	}
}

func TestRunCheck_DirtyDataset(t *testing.T) {
	flags := defaultFlags()
	flags.out = filepath.Join(t.TempDir(), "out.json")

	if err := runCheck(writeDirtyCSV(t), flags); err != nil {
		t.Fatalf("runCheck: %v", err)
	}

	report := readReport(t, flags.out)
	if report.OverallStatus != schema.OverallCritical {
		t.Errorf("overall_status = %s, want CRITICAL", report.OverallStatus)
	}
	if len(report.Risks.Critical) == 0 {
		t.Error("no critical risks reported")
	}
}

func TestRunCheck_MarkdownFormat(t *testing.T) {
	flags := defaultFlags()
	flags.format = "md"
	flags.out = filepath.Join(t.TempDir(), "out.md")

	if err := runCheck(writeCleanCSV(t), flags); err != nil {
		t.Fatalf("runCheck: %v", err)
	}

	data, err := os.ReadFile(flags.out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "# Dataset Triage Report") {
		t.Error("markdown missing header")
	}
	if !strings.Contains(s, "HEALTHY") {
		t.Error("markdown missing overall status")
	}
}

func TestRunCheck_Deep(t *testing.T) {
	flags := defaultFlags()
	flags.deep = true
	flags.target = "x"
	flags.out = filepath.Join(t.TempDir(), "out.json")

	if err := runCheck(writeCleanCSV(t), flags); err != nil {
		t.Fatalf("runCheck: %v", err)
	}

	report := readReport(t, flags.out)
	if report.Meta.TargetColumn != "x" {
		t.Errorf("target_column = %q, want x", report.Meta.TargetColumn)
	}
}

func TestRunCheck_FailOn_Blocked(t *testing.T) {
	flags := defaultFlags()
	flags.failOn = "BLOCKED"
	flags.out = filepath.Join(t.TempDir(), "out.json")

	err := runCheck(writeDirtyCSV(t), flags)
	if err == nil {
		t.Fatal("expected non-nil error for --fail-on BLOCKED with a BLOCKED verdict")
	}
	var ee *exitErr
	if asExitErr(err, &ee) {
		if ee.code != 2 {
			t.Errorf("exit code = %d, want 2", ee.code)
		}
	} else {
		t.Errorf("expected exitErr, got %T: %v", err, err)
	}
}

func TestRunCheck_FailOn_DoesNotTriggerOnClean(t *testing.T) {
	flags := defaultFlags()
	flags.failOn = "CONSTRAINED"
	flags.out = filepath.Join(t.TempDir(), "out.json")

	if err := runCheck(writeCleanCSV(t), flags); err != nil {
		t.Errorf("clean dataset tripped --fail-on CONSTRAINED: %v", err)
	}
}

func TestRunCheck_FailOn_InvalidValue(t *testing.T) {
	flags := defaultFlags()
	flags.failOn = "SEVERE"

	err := runCheck(writeCleanCSV(t), flags)
	if err == nil {
		t.Fatal("expected error for invalid --fail-on value")
	}
	var ee *exitErr
	if asExitErr(err, &ee) && ee.code != 3 {
		t.Errorf("exit code = %d, want 3", ee.code)
	}
}

func TestRunCheck_InvalidFormat(t *testing.T) {
	flags := defaultFlags()
	flags.format = "xml"

	err := runCheck(writeCleanCSV(t), flags)
	if err == nil {
		t.Fatal("expected error for --format xml")
	}
	var ee *exitErr
	if asExitErr(err, &ee) && ee.code != 3 {
		t.Errorf("exit code = %d, want 3", ee.code)
	}
}

func TestRunCheck_MissingFile(t *testing.T) {
	err := runCheck("/nonexistent/data.csv", defaultFlags())
	if err == nil {
		t.Fatal("expected error for missing data file")
	}
	var ee *exitErr
	if asExitErr(err, &ee) && ee.code != 3 {
		t.Errorf("exit code = %d, want 3", ee.code)
	}
}

func TestRunCheck_UnknownTarget(t *testing.T) {
	flags := defaultFlags()
	flags.target = "absent"

	err := runCheck(writeCleanCSV(t), flags)
	if err == nil {
		t.Fatal("expected error for unknown target column")
	}
	var ee *exitErr
	if asExitErr(err, &ee) && ee.code != 3 {
		t.Errorf("exit code = %d, want 3", ee.code)
	}
}
