package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
)

var htmlTemplate = template.Must(template.New("html").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Knowledge Base Analysis Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 2em; }
        .article { margin-bottom: 2em; padding: 1em; border: 1px solid #ddd; }
        .issue { margin: 1em 0; padding: 0.5em; background: #f9f9f9; }
        .error { color: #cc0000; }
        .high { border-left: 4px solid #ff4444; }
        .medium { border-left: 4px solid #ffbb33; }
        .low { border-left: 4px solid #00C851; }
    </style>
</head>
<body>
    <h1>Knowledge Base Analysis Report</h1>
    <p>Generated: {{ .Timestamp }}</p>

    <h2>Summary</h2>
    <ul>
        <li>Total Articles Analyzed: {{ .TotalArticles }}</li>
        <li>Articles with Issues: {{ .ArticlesWithIssues }}</li>
        <li>Average Quality Score: {{ .AverageScore }}</li>
    </ul>

    <h2>Detailed Analysis</h2>
    {{- range .Articles }}
    <div class="article">
        <h3>{{ .Path }}</h3>
        <p><strong>Type:</strong> {{ .Type }}</p>
        <p><strong>Quality Score:</strong> {{ .Score }}</p>
        {{- if .Error }}
        <p class="error"><strong>Error:</strong> {{ .Error }}</p>
        {{- end }}

        <h4>Issues Found:</h4>
        {{- range .Issues }}
        <div class="issue {{ .Severity }}">
            <strong>{{ .Type }}</strong> (Severity: {{ .Severity }})
            <p>{{ .Description }}</p>
            <p><em>Suggestion:</em> {{ .Suggestion }}</p>
        </div>
        {{- end }}

        <h4>Summary:</h4>
        <p>{{ .Summary }}</p>

        <h4>Suggested Updates:</h4>
        <pre>{{ .SuggestedUpdates }}</pre>
    </div>
    {{- end }}
</body>
</html>
`))

func writeHTML(path string, data reportData) error {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
