package render

import (
	"bytes"
	"html/template"
	"io"
)

var fragmentTemplate = template.Must(template.New("elements").Parse(
	`{{range .}}{{if eq .Kind "photo"}}<a href="{{.Href}}" target="{{.Target}}" rel="noopener noreferrer"><img src="{{.Src}}" alt="{{.Alt}}" title="{{.Title}}" loading="lazy"></a>
{{else if eq .Kind "error"}}<p class="gallery-error" style="text-align: {{.Align}}">{{.Text}}</p>
{{end}}{{end}}`))

// WriteHTML writes elements as HTML fragments, in order.
func WriteHTML(w io.Writer, elements []Element) error {
	return fragmentTemplate.Execute(w, elements)
}

// HTML returns elements as an HTML fragment string.
func HTML(elements []Element) (string, error) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, elements); err != nil {
		return "", err
	}
	return buf.String(), nil
}
