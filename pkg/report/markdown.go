package report

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/mattn/go-runewidth"
)

var markdownTemplate = template.Must(template.New("markdown").Funcs(template.FuncMap{
	"overview": overviewTable,
}).Parse(`# Knowledge Base Analysis Report
## Summary {{ .Timestamp }}
Total Articles Analyzed: {{ .TotalArticles }}
Articles with Issues: {{ .ArticlesWithIssues }}
Average Quality Score: {{ .AverageScore }}

{{ overview .Articles }}
## Detailed Analysis
{{ range .Articles }}
### {{ .Path }}
**Type**: {{ .Type }}
**Quality Score**: {{ .Score }}
{{- if .Error }}
**Error**: {{ .Error }}
{{- end }}

#### Issues Found:
{{ range .Issues }}
* **{{ .Type }}** (Severity: {{ .Severity }})
  - {{ .Description }}
  - Suggestion: {{ .Suggestion }}
{{ end }}
#### Summary:
{{ .Summary }}

#### Suggested Updates:
` + "```" + `
{{ .SuggestedUpdates }}
` + "```" + `

---
{{ end }}`))

func renderMarkdown(data reportData) (string, error) {
	var buf bytes.Buffer
	if err := markdownTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

func writeMarkdown(path string, data reportData) error {
	out, err := renderMarkdown(data)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out), 0o644)
}

// overviewTable renders one row per article with columns padded to their
// display width, so wide characters in titles stay aligned.
func overviewTable(articles []articleView) string {
	if len(articles) == 0 {
		return ""
	}

	rows := [][]string{{"Article", "Type", "Score", "Issues"}}
	for _, a := range articles {
		score := a.Score
		if !a.Analyzed {
			score = "n/a"
		}
		rows = append(rows, []string{escapeCell(a.Title), a.Type, score, strconv.Itoa(len(a.Issues))})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	var sb strings.Builder
	for r, row := range rows {
		sb.WriteString("|")
		for i, cell := range row {
			sb.WriteString(" " + runewidth.FillRight(cell, widths[i]) + " |")
		}
		sb.WriteString("\n")
		if r == 0 {
			sb.WriteString("|")
			for _, w := range widths {
				sb.WriteString(" " + strings.Repeat("-", w) + " |")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
