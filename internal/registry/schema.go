package registry

import (
	"fmt"
	"sort"
	"strings"
)

type FieldKind string

const (
	KindText     FieldKind = "text"
	KindTextarea FieldKind = "textarea"
	KindSelect   FieldKind = "select"
	KindDate     FieldKind = "date"
)

// Field describes one form input and its constraints.
type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
	MaxLen   int       `json:"maxLen,omitempty"`
	Options  []string  `json:"options,omitempty"`
}

// Schema is the validation schema for a product's document form.
type Schema struct {
	Fields []Field `json:"fields"`
}

// ValidationError carries per-field violations.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid fields: " + strings.Join(names, ", ")
}

// Validate checks submitted form data against the schema. A nil schema
// accepts anything.
func (s *Schema) Validate(data map[string]string) error {
	if s == nil {
		return nil
	}
	violations := make(map[string]string)
	for _, field := range s.Fields {
		value := strings.TrimSpace(data[field.Name])
		if value == "" {
			if field.Required {
				violations[field.Name] = "required"
			}
			continue
		}
		if field.MaxLen > 0 && len([]rune(value)) > field.MaxLen {
			violations[field.Name] = fmt.Sprintf("longer than %d characters", field.MaxLen)
			continue
		}
		if field.Kind == KindSelect && len(field.Options) > 0 && !contains(field.Options, value) {
			violations[field.Name] = "not an allowed option"
		}
	}
	if len(violations) > 0 {
		return &ValidationError{Fields: violations}
	}
	return nil
}

func contains(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}
