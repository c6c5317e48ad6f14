package core

// validation.go checks object metadata against the MAP.
//
// For every MAP field the stored value is read from metadata[namespace.name].
// Required fields must be non-empty. Repeatable values are split on the
// field delimiter and each component is checked on its own: dc.date
// components must be EDTF, everything else must be one of the allowed
// labels of the field's range. Fields with an empty range that are not
// required accept any value.
//
// ValidateObject returns every failure for the editor UI. IsValidObject is
// the pass/fail form used for badges and counts.

import (
	"fmt"

	"github.com/sfomuseum/go-edtf/parser"

	"github.com/JonMunkholm/carpenters/internal/model"
	"github.com/JonMunkholm/carpenters/internal/schema"
	"github.com/JonMunkholm/carpenters/internal/vocabulary"
)

// ValidationError represents a single validation failure for a field.
type ValidationError struct {
	Field   string `json:"field"`   // namespace.name
	Label   string `json:"label"`   // MAP display label
	Value   string `json:"value"`   // offending component
	Message string `json:"message"` // human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationResult contains the result of validating an object.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// IsValidObject reports whether obj satisfies every MAP field. A nil MAP
// accepts everything.
func IsValidObject(obj model.Object, m schema.Map, ranges vocabulary.Ranges) bool {
	if m == nil {
		return true
	}
	for _, f := range m {
		if fieldError(f, obj.Value(f.Key()), ranges) != nil {
			return false
		}
	}
	return true
}

// ValidateObject validates obj and returns all failures.
func ValidateObject(obj model.Object, m schema.Map, ranges vocabulary.Ranges) ValidationResult {
	result := ValidationResult{Valid: true}
	for _, f := range m {
		if verr := fieldError(f, obj.Value(f.Key()), ranges); verr != nil {
			result.Valid = false
			result.Errors = append(result.Errors, *verr)
		}
	}
	return result
}

// IsValidField reports whether value is acceptable for f.
func IsValidField(f schema.Field, value string, ranges vocabulary.Ranges) bool {
	return fieldError(f, value, ranges) == nil
}

// IsValidDate reports whether s is empty or a valid EDTF date. Parser
// failures count as invalid.
func IsValidDate(s string) bool {
	if s == "" {
		return true
	}
	_, err := parser.ParseString(s)
	return err == nil
}

func fieldError(f schema.Field, value string, ranges vocabulary.Ranges) *ValidationError {
	key := f.Key()

	if value == "" {
		if f.IsRequired() {
			return &ValidationError{Field: key, Label: f.Label, Message: "required field is empty"}
		}
		return nil
	}

	components := []string{value}
	if f.Repeatable {
		components = schema.SplitValues(value)
	}

	// Dates are checked as EDTF whatever the obligation; other fields
	// only against a non-empty range.
	if key == model.KeyDate {
		for _, v := range components {
			if !IsValidDate(v) {
				return &ValidationError{Field: key, Label: f.Label, Value: v, Message: "invalid date, expected EDTF"}
			}
		}
		return nil
	}

	rangeLabel := f.RangeLabel()
	if len(ranges.Lookup(rangeLabel)) == 0 {
		return nil
	}
	for _, v := range components {
		if v != "" && !ranges.Contains(rangeLabel, v) {
			return &ValidationError{
				Field:   key,
				Label:   f.Label,
				Value:   v,
				Message: fmt.Sprintf("invalid enum, value is not in the %s vocabulary", rangeLabel),
			}
		}
	}
	return nil
}
