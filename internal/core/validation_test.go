package core

import (
	"testing"

	"github.com/JonMunkholm/carpenters/internal/model"
	"github.com/JonMunkholm/carpenters/internal/schema"
	"github.com/JonMunkholm/carpenters/internal/vocabulary"
)

func validationMap() schema.Map {
	return schema.Map{
		{Namespace: "dcterms", Name: "title", Label: "Title", Obligation: schema.Required},
		{Namespace: "dc", Name: "date", Label: "Date", Obligation: schema.Required, Repeatable: true},
		{Namespace: "dcterms", Name: "type", Label: "Genre", Obligation: schema.Recommended, Repeatable: true,
			Range: []schema.Range{{Label: "Genres", Values: []string{"Photographs", "Letters"}}}},
		{Namespace: "dcterms", Name: "description", Label: "Description", Obligation: schema.Optional,
			Range: []schema.Range{{Label: "Unknown Scheme"}}},
	}
}

func validationRanges(m schema.Map) vocabulary.Ranges {
	return vocabulary.BuildRange(m, vocabulary.NewGraph(nil))
}

func TestIsValidDate(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"1950", true},
		{"1972-05-12", true},
		{"1950/1960", true},
		{"yesterday", false},
		{"May 5th", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValidDate(tt.input); got != tt.want {
				t.Errorf("IsValidDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidField(t *testing.T) {
	m := validationMap()
	ranges := validationRanges(m)
	title, _ := m.ByKey("dcterms.title")
	date, _ := m.ByKey("dc.date")
	genre, _ := m.ByKey("dcterms.type")
	desc, _ := m.ByKey("dcterms.description")
	optionalDate := schema.Field{Namespace: "dc", Name: "date", Label: "Date", Obligation: schema.StronglyRecommended, Repeatable: true}

	tests := []struct {
		name  string
		field schema.Field
		value string
		want  bool
	}{
		{"required empty", title, "", false},
		{"required filled", title, "Letters home", true},
		{"optional empty", genre, "", true},
		{"in range", genre, "Photographs", true},
		{"in range ignoring case", genre, "letters", true},
		{"out of range", genre, "Maps", false},
		{"repeatable all in range", genre, "Photographs; Letters", true},
		{"repeatable one out of range", genre, "Photographs; Maps", false},
		{"unresolved range accepts anything", desc, "free text", true},
		{"edtf date", date, "1950", true},
		{"repeatable dates", date, "1950; 1961-04", true},
		{"bad date component", date, "1950; someday", false},
		{"optional date empty", optionalDate, "", true},
		{"optional date edtf", optionalDate, "1950/1960", true},
		{"optional date not edtf", optionalDate, "someday", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidField(tt.field, tt.value, ranges); got != tt.want {
				t.Errorf("IsValidField(%s, %q) = %v, want %v", tt.field.Key(), tt.value, got, tt.want)
			}
		})
	}
}

func TestValidateObject(t *testing.T) {
	m := validationMap()
	ranges := validationRanges(m)

	obj := model.NewObject()
	obj.Metadata["dc.date"] = "someday"
	obj.Metadata["dcterms.type"] = "Maps"

	result := ValidateObject(obj, m, ranges)
	if result.Valid {
		t.Fatal("ValidateObject() Valid = true, want false")
	}
	if len(result.Errors) != 3 {
		t.Fatalf("errors = %d, want 3: %v", len(result.Errors), result.Errors)
	}

	want := []struct{ field, message string }{
		{"dcterms.title", "required field is empty"},
		{"dc.date", "invalid date, expected EDTF"},
		{"dcterms.type", "invalid enum, value is not in the Genres vocabulary"},
	}
	for i, w := range want {
		if result.Errors[i].Field != w.field || result.Errors[i].Message != w.message {
			t.Errorf("error %d = %+v, want %s: %s", i, result.Errors[i], w.field, w.message)
		}
	}

	if IsValidObject(obj, m, ranges) {
		t.Error("IsValidObject() = true, want false")
	}
}

func TestIsValidObject_NoMap(t *testing.T) {
	obj := model.NewObject()
	if !IsValidObject(obj, nil, nil) {
		t.Error("IsValidObject() with nil MAP = false, want true")
	}
}
