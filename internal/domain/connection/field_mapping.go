package connection

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TransformKind names an optional value transform applied by a FieldMapping.
type TransformKind string

const (
	TransformNone   TransformKind = ""
	TransformTrim   TransformKind = "TRIM"
	TransformUpper  TransformKind = "UPPER"
	TransformLower  TransformKind = "LOWER"
	TransformTitle  TransformKind = "TITLE"
	TransformString TransformKind = "STRING"
)

// IsValid returns true if the transform is known
func (k TransformKind) IsValid() bool {
	switch k {
	case TransformNone, TransformTrim, TransformUpper, TransformLower, TransformTitle, TransformString:
		return true
	default:
		return false
	}
}

// Apply transforms a value. String transforms leave non-string values untouched;
// TransformString formats any non-nil value as text.
func (k TransformKind) Apply(v any) any {
	if k == TransformString {
		if v == nil {
			return nil
		}
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}

	s, ok := v.(string)
	if !ok {
		return v
	}
	switch k {
	case TransformTrim:
		return strings.TrimSpace(s)
	case TransformUpper:
		return strings.ToUpper(s)
	case TransformLower:
		return strings.ToLower(s)
	case TransformTitle:
		return cases.Title(language.Und).String(s)
	default:
		return s
	}
}

// FieldMapping copies one storefront product field onto one ERP item field.
// Mappings are ordered; a later mapping overrides an earlier one on conflict.
type FieldMapping struct {
	Source    string        `json:"source"`
	Target    string        `json:"target"`
	Transform TransformKind `json:"transform,omitempty"`
}

// NewFieldMapping creates a normalized field mapping
func NewFieldMapping(source, target string, transform TransformKind) (FieldMapping, error) {
	m := FieldMapping{
		Source:    ParseFieldRef(source),
		Target:    ParseFieldRef(target),
		Transform: transform,
	}
	if err := m.Validate(); err != nil {
		return FieldMapping{}, err
	}
	return m, nil
}

// Validate checks that both references are present and the transform is known
func (m FieldMapping) Validate() error {
	if ParseFieldRef(m.Source) == "" {
		return ErrFieldMappingEmptySource
	}
	if ParseFieldRef(m.Target) == "" {
		return ErrFieldMappingEmptyTarget
	}
	if !m.Transform.IsValid() {
		return ErrInvalidTransform
	}
	return nil
}

// ParseFieldRef strips the human label from a reference of the form
// "fieldname | Label" and returns the bare field name.
func ParseFieldRef(ref string) string {
	name, _, _ := strings.Cut(ref, "|")
	return strings.TrimSpace(name)
}
