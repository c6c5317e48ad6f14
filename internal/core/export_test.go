package core

import (
	"testing"

	"github.com/JonMunkholm/carpenters/internal/model"
	"github.com/JonMunkholm/carpenters/internal/schema"
)

func TestExportFilename(t *testing.T) {
	tests := []struct {
		name        string
		ark         string
		projectFile string
		filename    string
		want        string
	}{
		{
			name:        "numeric prefix replaced by collection and ark",
			ark:         "ark:/99999/abc123",
			projectFile: "My Collection.carp",
			filename:    "0012_photo_pm.tif",
			want:        "My_Collection_abc123_photo_pm.tif",
		},
		{
			name:     "purpose suffix stripped",
			filename: "photo_pm.tif",
			want:     "photo.tif",
		},
		{
			name:        "numeric prefix without ark strips suffix",
			projectFile: "My Collection.carp",
			filename:    "0012_photo_ac.mp4",
			want:        "0012_photo.mp4",
		},
		{
			name:     "short numeric prefix is not a prefix",
			ark:      "ark:/99999/abc123",
			filename: "012_photo_mm.tif",
			want:     "012_photo.tif",
		},
		{
			name:     "plain name unchanged",
			filename: "notes.txt",
			want:     "notes.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExportFilename(tt.ark, tt.projectFile, tt.filename)
			if got != tt.want {
				t.Errorf("ExportFilename(%q, %q, %q) = %q, want %q", tt.ark, tt.projectFile, tt.filename, got, tt.want)
			}
		})
	}
}

func TestRightsToURI(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"In Copyright", "http://rightsstatements.org/vocab/InC/1.0/"},
		{"No Copyright - United States", "http://rightsstatements.org/vocab/NoC-US/1.0/"},
		{"Public Domain", "https://creativecommons.org/publicdomain/mark/1.0/"},
		{"in copyright", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := RightsToURI(tt.label); got != tt.want {
			t.Errorf("RightsToURI(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestArkTail(t *testing.T) {
	tests := []struct {
		ark  string
		want string
	}{
		{"ark:/99999/abc123", "abc123"},
		{"https://n2t.net/ark:/99999/abc123/", "abc123"},
		{"abc123", "abc123"},
	}

	for _, tt := range tests {
		if got := ArkTail(tt.ark); got != tt.want {
			t.Errorf("ArkTail(%q) = %q, want %q", tt.ark, got, tt.want)
		}
	}
}

func TestProgressTracker(t *testing.T) {
	var reports []Progress
	req := ExportRequest{Progress: func(p Progress) { reports = append(reports, p) }}

	tracker := NewProgressTracker(req, 1, 2)
	tracker.Indeterminate("Preparing")
	tracker.Object("Exporting", "a")
	tracker.File("Copying", "a.tif")
	tracker.File("Copying", "b.tif")
	tracker.File("Copying", "extra.tif")
	tracker.Finish(ExportSummary{Objects: 1, Files: 2})

	if reports[0].Value != nil {
		t.Errorf("Indeterminate value = %v, want nil", *reports[0].Value)
	}

	want := []float64{1.0 / 3, 2.0 / 3, 1, 1, 1}
	for i, w := range want {
		if got := reports[i+1].Fraction(); got != w {
			t.Errorf("report %d = %v, want %v", i+1, got, w)
		}
	}

	final := reports[len(reports)-1]
	if final.Description != "Exported 1 objects and 2 files" || !final.Done {
		t.Errorf("final = %+v", final)
	}
}

func TestMetadataRow_DoesNotShareState(t *testing.T) {
	obj := model.NewObject()
	obj.Metadata["dcterms.title"] = "Original"

	fields := MapFields(schema.Map{{Namespace: "dcterms", Name: "title", Label: "Title"}}, false)
	row := MetadataRow(obj, fields)
	row["dcterms.title"] = "Changed"

	if obj.Metadata["dcterms.title"] != "Original" {
		t.Errorf("object metadata = %q, want Original", obj.Metadata["dcterms.title"])
	}
}

func TestMapFields_VisibleOnly(t *testing.T) {
	m := schema.Map{
		{Namespace: "dcterms", Name: "title", Label: "Title", Visible: true},
		{Namespace: "uhlib", Name: "internal", Label: "Internal"},
	}

	if got := MapFields(m, true); len(got) != 1 || got[0].Value != "dcterms.title" {
		t.Errorf("MapFields(visible) = %+v", got)
	}
	if got := MapFields(m, false); len(got) != 2 {
		t.Errorf("MapFields(all) = %d fields, want 2", len(got))
	}
}
