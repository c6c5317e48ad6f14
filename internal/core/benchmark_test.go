package core

import (
	"fmt"
	"testing"

	"github.com/JonMunkholm/carpenters/internal/model"
)

// ============================================================================
// CSV Benchmarks
// ============================================================================

func benchmarkObjects(n int) []model.Object {
	objects := make([]model.Object, n)
	for i := range objects {
		obj := model.NewObject(model.Container{Type1: "Box", Indicator1: fmt.Sprint(i/20 + 1)})
		obj.Metadata[model.KeyTitle] = fmt.Sprintf("Letters, folder %d", i)
		obj.Metadata[model.KeyDate] = "1950/1960"
		obj.Metadata["dcterms.type"] = "Photographs; Letters"
		obj.Metadata["dcterms.description"] = `Correspondence with "quoted" remarks`
		objects[i] = obj
	}
	return objects
}

// BenchmarkToCSV benchmarks the metadata export serialization of a
// mid-sized collection.
func BenchmarkToCSV(b *testing.B) {
	fields := MapFields(validationMap(), false)
	objects := benchmarkObjects(1000)
	rows := make([]Row, len(objects))
	for i, obj := range objects {
		rows[i] = MetadataRow(obj, fields)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ToCSV(fields, rows, CSVOptions{LineEnding: LineEndingCRLF}); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Validation Benchmarks
// ============================================================================

// BenchmarkValidateObject runs on every metadata edit and every export.
func BenchmarkValidateObject(b *testing.B) {
	m := validationMap()
	ranges := validationRanges(m)
	obj := benchmarkObjects(1)[0]

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ValidateObject(obj, m, ranges)
	}
}

func BenchmarkIsValidDate(b *testing.B) {
	inputs := []string{"1950", "1972-05-12", "1950/1960", "yesterday"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, s := range inputs {
			IsValidDate(s)
		}
	}
}

// ============================================================================
// Naming Benchmarks
// ============================================================================

func BenchmarkExportFilename(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ExportFilename("ark:/84475/do12345abcd", "My Collection.carp", "0012_photo_pm.tif")
		ExportFilename("", "", "photo_pm.tif")
	}
}
