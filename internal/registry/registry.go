// Package registry maps product slugs to the validation schema, form
// descriptor, and preview template responsible for that product type.
// Unknown slugs degrade to a default kit instead of failing.
package registry

import (
	"log/slog"
	"sort"
)

// Kit bundles everything needed to collect and preview one product's form.
type Kit struct {
	Slug     string  `json:"slug"`
	Schema   *Schema `json:"schema,omitempty"`
	Form     Form    `json:"form"`
	Template string  `json:"-"`
	Default  bool    `json:"default,omitempty"`
}

// Form is the client-facing descriptor for rendering the input form.
type Form struct {
	Title  string  `json:"title"`
	Submit string  `json:"submit"`
	Fields []Field `json:"fields"`
}

// Registry resolves product slugs to kits.
type Registry struct {
	kits map[string]Kit
	def  Kit
}

// New builds the registry with all built-in product kits.
func New() *Registry {
	r := &Registry{kits: make(map[string]Kit)}
	for _, kit := range builtinKits() {
		r.kits[kit.Slug] = kit
	}
	r.def = Kit{
		Slug:     "",
		Schema:   nil,
		Form:     Form{Title: "Document details", Submit: "Generate document"},
		Template: TemplateDefault,
		Default:  true,
	}
	return r
}

// Lookup returns the kit for a slug. Missing entries return the default kit
// and emit a diagnostic; no error is surfaced to the caller.
func (r *Registry) Lookup(slug string) Kit {
	if kit, ok := r.kits[slug]; ok {
		return kit
	}
	slog.Warn("no form kit registered for product, using default", "slug", slug)
	def := r.def
	def.Slug = slug
	return def
}

// Known lists registered product slugs, sorted.
func (r *Registry) Known() []string {
	slugs := make([]string, 0, len(r.kits))
	for slug := range r.kits {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// Template names understood by the renderer.
const (
	TemplateDefault   = "default"
	TemplateNNN       = "nnn-agreement"
	TemplateOEM       = "oem-agreement"
	TemplateTrademark = "trademark-application"
)

var governingCities = []string{"Shanghai", "Beijing", "Shenzhen", "Hong Kong"}

func builtinKits() []Kit {
	nnnSchema := &Schema{Fields: []Field{
		{Name: "disclosing_party", Label: "Your company name", Kind: KindText, Required: true, MaxLen: 120},
		{Name: "receiving_party", Label: "Chinese counterparty (English name)", Kind: KindText, Required: true, MaxLen: 120},
		{Name: "receiving_party_cn", Label: "Chinese counterparty (Chinese name)", Kind: KindText, MaxLen: 120},
		{Name: "product_description", Label: "Product or technology covered", Kind: KindTextarea, Required: true, MaxLen: 2000},
		{Name: "governing_city", Label: "Arbitration city", Kind: KindSelect, Required: true, Options: governingCities},
		{Name: "term_years", Label: "Term (years)", Kind: KindSelect, Required: true, Options: []string{"1", "2", "3", "5"}},
		{Name: "effective_date", Label: "Effective date", Kind: KindDate, Required: true},
	}}

	oemSchema := &Schema{Fields: []Field{
		{Name: "buyer", Label: "Buyer company name", Kind: KindText, Required: true, MaxLen: 120},
		{Name: "manufacturer", Label: "Manufacturer name", Kind: KindText, Required: true, MaxLen: 120},
		{Name: "product_spec", Label: "Product specification", Kind: KindTextarea, Required: true, MaxLen: 4000},
		{Name: "quality_standard", Label: "Quality standard", Kind: KindTextarea, MaxLen: 2000},
		{Name: "governing_city", Label: "Arbitration city", Kind: KindSelect, Required: true, Options: governingCities},
		{Name: "effective_date", Label: "Effective date", Kind: KindDate, Required: true},
	}}

	trademarkSchema := &Schema{Fields: []Field{
		{Name: "applicant_name", Label: "Applicant name", Kind: KindText, Required: true, MaxLen: 120},
		{Name: "applicant_address", Label: "Applicant address", Kind: KindText, Required: true, MaxLen: 240},
		{Name: "mark_text", Label: "Mark (word element)", Kind: KindText, Required: true, MaxLen: 60},
		{Name: "nice_class", Label: "Nice classification", Kind: KindSelect, Required: true,
			Options: []string{"9", "18", "25", "28", "35", "42"}},
		{Name: "goods_description", Label: "Goods and services", Kind: KindTextarea, Required: true, MaxLen: 2000},
	}}

	return []Kit{
		{
			Slug:     "nnn-agreement-cn",
			Schema:   nnnSchema,
			Form:     Form{Title: "NNN Agreement (China)", Submit: "Generate NNN agreement", Fields: nnnSchema.Fields},
			Template: TemplateNNN,
		},
		{
			Slug:     "oem-agreement-cn",
			Schema:   oemSchema,
			Form:     Form{Title: "OEM Manufacturing Agreement (China)", Submit: "Generate OEM agreement", Fields: oemSchema.Fields},
			Template: TemplateOEM,
		},
		{
			Slug:     "trademark-application-cn",
			Schema:   trademarkSchema,
			Form:     Form{Title: "China Trademark Application", Submit: "Prepare filing", Fields: trademarkSchema.Fields},
			Template: TemplateTrademark,
		},
	}
}
