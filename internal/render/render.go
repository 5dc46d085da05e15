// Package render turns submitted form data into document HTML and extracts
// plain-text snapshots for persistence.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"
	"lexrelay/internal/registry"
)

// Input is everything a template needs to produce a document.
type Input struct {
	ProductName string
	Title       string
	Fields      map[string]string
	GeneratedAt time.Time
}

// Renderer renders product documents from built-in templates.
type Renderer struct {
	templates map[string]*template.Template
}

// New parses all built-in templates.
func New() (*Renderer, error) {
	sources := map[string]string{
		registry.TemplateDefault:   defaultTemplate,
		registry.TemplateNNN:       nnnTemplate,
		registry.TemplateOEM:       oemTemplate,
		registry.TemplateTrademark: trademarkTemplate,
	}
	templates := make(map[string]*template.Template, len(sources))
	for name, src := range sources {
		tmpl, err := template.New(name).Funcs(template.FuncMap{
			"field":      fieldValue,
			"allFields":  sortedFields,
			"formatDate": formatDate,
		}).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return &Renderer{templates: templates}, nil
}

// Render produces the document HTML for the given template name. Unknown
// names fall back to the default template.
func (r *Renderer) Render(templateName string, in Input) ([]byte, error) {
	tmpl, ok := r.templates[templateName]
	if !ok {
		tmpl = r.templates[registry.TemplateDefault]
	}
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = time.Now().UTC()
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, in); err != nil {
		return nil, fmt.Errorf("render %s: %w", templateName, err)
	}
	return buf.Bytes(), nil
}

// Snapshot extracts the plain text of rendered HTML for the content
// snapshot stored alongside the document record.
func Snapshot(doc []byte) string {
	node, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return ""
	}
	var b strings.Builder
	collectText(node, &b)
	return strings.Join(strings.Fields(b.String()), " ")
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteString(" ")
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, b)
	}
}

type namedField struct {
	Name  string
	Value string
}

func fieldValue(fields map[string]string, name string) string {
	return fields[name]
}

func sortedFields(fields map[string]string) []namedField {
	out := make([]namedField, 0, len(fields))
	for name, value := range fields {
		out = append(out, namedField{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func formatDate(raw string) string {
	if t, err := time.Parse("2006-01-02", strings.TrimSpace(raw)); err == nil {
		return t.Format("January 2, 2006")
	}
	return raw
}
