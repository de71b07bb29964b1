package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var documentTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower":      strings.ToLower,
		"paragraphs": paragraphs,
	}

	templateContent, err := templateFS.ReadFile("templates/document.html")
	if err != nil {
		// Fallback to built-in template if file not found
		documentTemplate = template.Must(template.New("document").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	documentTemplate = template.Must(template.New("document").Funcs(funcMap).Parse(string(templateContent)))
}

// paragraphs renders free text as a sequence of <p> elements, one per
// non-empty line, escaping the content.
func paragraphs(text string) template.HTML {
	var buf strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		buf.WriteString("<p>")
		buf.WriteString(template.HTMLEscapeString(line))
		buf.WriteString("</p>")
	}
	if buf.Len() == 0 {
		return template.HTML("<p>Não aplicável.</p>")
	}
	return template.HTML(buf.String())
}

// TemplateData holds data for document template rendering
type TemplateData struct {
	Code             string
	Title            string
	Revision         string
	ApprovedAt       string
	Objective        string
	Responsibilities string
	Concepts         string
	Guidelines       string
	Complementary    string
	References       string
	Attachments      []string
	Revisions        []RevisionRow
}

// RevisionRow is one line of the revision-control table.
type RevisionRow struct {
	Date        string
	Responsible string
	Change      string
}

// RenderDocumentHTML renders the document template with provided data
func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body>
  <header>{{.Code}} | Rev. {{.Revision}} | Aprovação: {{.ApprovedAt}}</header>
  <h1>{{.Title}}</h1>
  <h2>1. OBJETIVO</h2>{{paragraphs .Objective}}
  <h2>2. RESPONSABILIDADES</h2>{{paragraphs .Responsibilities}}
  <h2>3. CONCEITOS E SIGLAS</h2>{{paragraphs .Concepts}}
  <h2>4. DIRETRIZES</h2>{{paragraphs .Guidelines}}
  <h2>5. DOCUMENTOS COMPLEMENTARES</h2>{{paragraphs .Complementary}}
  <h2>6. REFERÊNCIAS</h2>{{paragraphs .References}}
  <h2>7. ANEXOS</h2>
  {{if .Attachments}}<ul>{{range .Attachments}}<li>{{.}}</li>{{end}}</ul>{{else}}<p>Não aplicável.</p>{{end}}
  <h2>8. CONTROLE DE REVISÃO</h2>
  <table>
    <tr><th>Data</th><th>Responsável</th><th>Alteração</th></tr>
    {{range .Revisions}}<tr><td>{{.Date}}</td><td>{{.Responsible}}</td><td>{{.Change}}</td></tr>{{end}}
  </table>
</body>
</html>`
