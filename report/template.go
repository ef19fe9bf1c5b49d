package report

import "html/template"

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>EDA Report {{.RunUid}}</title>
<style>
  body { font-family: sans-serif; margin: 2em; }
  table { border-collapse: collapse; margin-bottom: 2em; }
  th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
  th { background: #3174A1; color: white; }
  td:first-child, th:first-child { text-align: left; }
  img { max-width: 100%; margin-bottom: 1em; }
</style>
</head>
<body>
<h1>EDA Report {{.RunUid}}</h1>
<p>{{.Rows}} rows, {{.Columns}} columns.</p>

{{if .Describe}}
<h2>Numeric Summaries</h2>
<table>
<tr><th>Column</th><th>Count</th><th>Missing</th><th>Mean</th><th>Median</th><th>Std Dev</th><th>Min</th><th>Max</th></tr>
{{range .Describe}}
<tr><td>{{.Column}}</td><td>{{.Count}}</td><td>{{.Missing}}</td><td>{{printf "%.3f" .Mean}}</td><td>{{printf "%.3f" .Median}}</td><td>{{printf "%.3f" .StdDev}}</td><td>{{printf "%.3f" .Min}}</td><td>{{printf "%.3f" .Max}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Anova}}
<h2>ANOVA p-values</h2>
<table>
<tr><th>Feature</th><th>p-value</th></tr>
{{range .Anova}}
<tr><td>{{.Feature}}</td><td>{{printf "%.6f" .PValue}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Prevalence}}
<h2>Prevalence Rates (95% Wilson intervals)</h2>
<table>
<tr><th>Condition</th><th>Rate</th><th>Lower</th><th>Upper</th></tr>
{{range .Prevalence}}
<tr><td>{{.Condition}}</td><td>{{printf "%.3f" .Rate}}</td><td>{{printf "%.3f" .Lower}}</td><td>{{printf "%.3f" .Upper}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Artifacts}}
<h2>Charts</h2>
{{range .Artifacts}}
<img src="{{.}}" alt="{{.}}">
{{end}}
{{end}}
</body>
</html>
`))
