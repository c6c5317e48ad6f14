// Package schema holds the field-mapping schema ("MAP") that drives metadata
// validation and export column layout.
//
// The MAP is an ordered JSON array of field definitions fetched from a
// configured URL or read from disk. Once loaded it is treated as an immutable
// lookup table.
package schema

import (
	"strings"
)

// Obligation classifies how strongly a field must be filled.
type Obligation string

const (
	Required              Obligation = "required"
	StronglyRecommended   Obligation = "stronglyRecommended"
	Recommended           Obligation = "recommended"
	Optional              Obligation = "optional"
	RequiredWhenAvailable Obligation = "requiredWhenAvailable"
)

// InputKind is how the editor collects a value.
type InputKind string

const (
	InputSingle   InputKind = "single"
	InputMultiple InputKind = "multiple"
)

// Delimiter separates the values of a repeatable field.
const Delimiter = "; "

// Range names a vocabulary node whose narrower terms are the allowed values.
// Values, when present, is an explicit list that replaces the lookup.
type Range struct {
	Label  string   `json:"label"`
	Values []string `json:"values,omitempty"`
}

// AvalonCrosswalk overrides the column layout for the Avalon batch manifest.
// TypeLabel names an optional companion column that is filled with Type
// whenever the field has a value (e.g. "Note Type" = "general").
type AvalonCrosswalk struct {
	Label     string `json:"label"`
	TypeLabel string `json:"typeLabel,omitempty"`
	Type      string `json:"type,omitempty"`
}

// Crosswalk holds export-target specific overrides.
type Crosswalk struct {
	Avalon *AvalonCrosswalk `json:"avalon,omitempty"`
}

// Field is a single MAP entry.
type Field struct {
	Namespace  string     `json:"namespace"`
	Name       string     `json:"name"`
	Label      string     `json:"label"`
	Definition string     `json:"definition,omitempty"`
	Obligation Obligation `json:"obligation"`
	Repeatable bool       `json:"repeatable"`
	Input      InputKind  `json:"input,omitempty"`
	Visible    bool       `json:"visible"`
	Editable   bool       `json:"editable"`
	Range      []Range    `json:"range,omitempty"`
	Crosswalk  Crosswalk  `json:"crosswalk,omitempty"`
}

// Key returns the metadata key "namespace.name".
func (f Field) Key() string {
	return f.Namespace + "." + f.Name
}

// RangeLabel returns the first declared range label, or "".
func (f Field) RangeLabel() string {
	if len(f.Range) == 0 {
		return ""
	}
	return f.Range[0].Label
}

// IsRequired reports whether the field has the required obligation.
func (f Field) IsRequired() bool {
	return f.Obligation == Required
}

// Map is the ordered list of field definitions.
type Map []Field

// ByKey returns the field addressed by "namespace.name".
func (m Map) ByKey(key string) (Field, bool) {
	for _, f := range m {
		if f.Key() == key {
			return f, true
		}
	}
	return Field{}, false
}

// Visible returns the fields flagged visible, in MAP order.
func (m Map) Visible() Map {
	var out Map
	for _, f := range m {
		if f.Visible {
			out = append(out, f)
		}
	}
	return out
}

// WithAvalon returns the fields carrying an Avalon crosswalk, in MAP order.
func (m Map) WithAvalon() Map {
	var out Map
	for _, f := range m {
		if f.Crosswalk.Avalon != nil {
			out = append(out, f)
		}
	}
	return out
}

// Keys returns every field key in MAP order.
func (m Map) Keys() []string {
	keys := make([]string, len(m))
	for i, f := range m {
		keys[i] = f.Key()
	}
	return keys
}

// SplitValues splits a repeatable value on Delimiter. An empty value yields
// no components.
func SplitValues(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, Delimiter)
}

// JoinValues joins values with Delimiter.
func JoinValues(values []string) string {
	return strings.Join(values, Delimiter)
}
