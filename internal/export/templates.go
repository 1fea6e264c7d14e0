package export

import (
	"bytes"
	"fmt"
	"html/template"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: Georgia, serif; color: #1a1a1a; margin: 0; }
  h1 { font-size: 22pt; margin-bottom: 2pt; }
  h2 { font-size: 14pt; margin-top: 18pt; border-bottom: 1px solid #999; padding-bottom: 3pt; }
  .meta { color: #555; font-size: 9pt; margin-bottom: 14pt; }
  table { width: 100%; border-collapse: collapse; font-size: 10pt; }
  th, td { text-align: left; padding: 4pt 6pt; border-bottom: 1px solid #ddd; vertical-align: top; }
  th { background: #f2f2f2; }
  .protected { color: #8a1f1f; font-weight: bold; }
  .unset { color: #888; font-style: italic; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">Generated {{.GeneratedAt.Format "2 January 2006 15:04 MST"}} by {{.GeneratedBy}}</p>

<h2>Purposes</h2>
<table>
<tr><th>Name</th><th>Description</th><th>Retention</th><th></th></tr>
{{range .Purposes}}
<tr>
  <td>{{.Name}}</td>
  <td>{{.Description}}</td>
  <td>{{.RetentionPeriod}}</td>
  <td>{{if .Protected}}<span class="protected">protected</span>{{end}}</td>
</tr>
{{else}}
<tr><td colspan="4" class="unset">No purposes configured.</td></tr>
{{end}}
</table>

<h2>Data categories</h2>
<table>
<tr><th>Name</th><th>Description</th></tr>
{{range .Categories}}
<tr><td>{{.Name}}</td><td>{{.Description}}</td></tr>
{{else}}
<tr><td colspan="2" class="unset">No data categories configured.</td></tr>
{{end}}
</table>

<h2>Context assignments</h2>
<table>
<tr><th>Context</th><th>Level</th><th>Purpose</th><th>Category</th><th>Updated</th></tr>
{{range .Assignments}}
<tr>
  <td>{{.ContextName}}</td>
  <td>{{.ContextLevel}}</td>
  <td>{{if .Purpose}}{{.Purpose}}{{else}}<span class="unset">not set</span>{{end}}</td>
  <td>{{if .Category}}{{.Category}}{{else}}<span class="unset">not set</span>{{end}}</td>
  <td>{{.UpdatedBy}}, {{.UpdatedAt.Format "2006-01-02"}}</td>
</tr>
{{else}}
<tr><td colspan="5" class="unset">No explicit assignments; everything inherits the site defaults.</td></tr>
{{end}}
</table>
</body>
</html>`))

// renderHTML produces the report HTML fed to the PDF and DOCX backends.
func renderHTML(report Report) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return "", fmt.Errorf("render report template: %w", err)
	}
	return buf.String(), nil
}
