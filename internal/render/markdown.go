package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/dshills/datatriage/internal/schema"
)

type markdownRenderer struct{}

var mdTemplate = template.Must(template.New("report").Parse(`# Dataset Triage Report

**Overall Status:** {{ .OverallStatus }}
**Tests:** {{ .Summary.TotalTests }} | **Critical:** {{ .Summary.Critical }} | **Warning:** {{ .Summary.Warning }} | **Safe:** {{ .Summary.Safe }}

**Shape:** {{ .KeyFacts.Size.Shape }} ({{ .KeyFacts.Size.Scale }})
**Memory:** {{ .KeyFacts.Memory.UsageMB }} MB ({{ .KeyFacts.Memory.Class }})
**Feature Mix:** {{ .KeyFacts.FeatureMix.Type }}
{{ if .Risks.Critical }}
---

## Critical Risks
{{ range .Risks.Critical }}
### {{ .ID }} · {{ .Status }} · {{ .RiskCode }}
**{{ .CheckName }}** — metric {{ .Metric }}
{{ if .Columns }}Columns: {{ range .Columns }}{{ . }} {{ end }}{{ end }}{{ if .Info }}
{{ .Info }}{{ end }}
{{ end }}{{ end }}{{ if .Risks.Warning }}
---

## Warnings
{{ range .Risks.Warning }}
### {{ .ID }} · {{ .Status }} · {{ .RiskCode }}
**{{ .CheckName }}** — metric {{ .Metric }}
{{ if .Columns }}Columns: {{ range .Columns }}{{ . }} {{ end }}{{ end }}{{ if .Info }}
{{ .Info }}{{ end }}
{{ end }}{{ end }}{{ if .NoIssues }}
---

## No Issues
{{ range .NoIssues }}
- {{ .CheckName }}: {{ .Title }}
{{ end }}{{ end }}{{ if .DeepAnalysis }}
---

## Deep Analysis
{{ range .DeepAnalysis }}
### {{ .ID }} · {{ .Status }} · {{ .RiskCode }}
**{{ .CheckName }}** — metric {{ .Metric }}
{{ if .Columns }}Columns: {{ range .Columns }}{{ . }} {{ end }}{{ end }}{{ if .Info }}
{{ .Info }}{{ end }}
{{ end }}{{ end }}{{ if .FailedChecks }}
---

## Failed Checks
{{ range .FailedChecks }}
- {{ .CheckID }}: {{ .Error }}
{{ end }}{{ end }}
---
*Run: {{ .Meta.RunID }}{{ if .Meta.Source }} | Source: {{ .Meta.Source }}{{ end }}{{ if .Meta.TargetColumn }} | Target: {{ .Meta.TargetColumn }}{{ end }}*
`))

func (r *markdownRenderer) Render(report *schema.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := mdTemplate.Execute(&buf, report); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}
