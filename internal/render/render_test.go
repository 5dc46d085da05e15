package render

import (
	"strings"
	"testing"
	"time"

	"lexrelay/internal/registry"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestRenderNNNAgreement(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Render(registry.TemplateNNN, Input{
		ProductName: "NNN Agreement (China)",
		Title:       "Acme / Shenzhen Widget NNN",
		Fields: map[string]string{
			"disclosing_party": "Acme GmbH",
			"receiving_party":  "Shenzhen Widget Co., Ltd.",
			"product_description": "Evaluation of a product line.",
			"effective_date":   "2026-09-01",
			"term_years":       "3",
			"governing_city":   "Shanghai",
		},
		GeneratedAt: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	doc := string(out)
	for _, want := range []string{"Acme GmbH", "Shenzhen Widget Co., Ltd.", "Shanghai", "NNN"} {
		if !strings.Contains(doc, want) {
			t.Fatalf("rendered document missing %q", want)
		}
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Render(registry.TemplateNNN, Input{
		Title:  "t",
		Fields: map[string]string{"disclosing_party": `<script>alert("x")</script>`},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(string(out), "<script>alert") {
		t.Fatal("field value not escaped")
	}
}

func TestRenderUnknownTemplateFallsBack(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Render("no-such-template", Input{
		ProductName: "Custom Document",
		Title:       "Anything",
		Fields:      map[string]string{"freeform": "value"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(out), "Anything") {
		t.Fatal("fallback render missing title")
	}
}

func TestSnapshotExtractsText(t *testing.T) {
	doc := []byte(`<html><head><style>body{color:red}</style><script>var x=1;</script></head>` +
		`<body><h1>NNN Agreement</h1><p>Between Acme and Widget.</p></body></html>`)
	text := Snapshot(doc)
	if !strings.Contains(text, "NNN Agreement") || !strings.Contains(text, "Between Acme and Widget.") {
		t.Fatalf("Snapshot = %q", text)
	}
	if strings.Contains(text, "color:red") || strings.Contains(text, "var x=1") {
		t.Fatalf("Snapshot leaked style/script content: %q", text)
	}
}

func TestFormatDate(t *testing.T) {
	if got := formatDate("2026-09-01"); got != "September 1, 2026" {
		t.Fatalf("formatDate = %q", got)
	}
	// Unparseable input passes through untouched.
	if got := formatDate("soon"); got != "soon" {
		t.Fatalf("formatDate passthrough = %q", got)
	}
}
