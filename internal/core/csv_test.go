package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestToCSV(t *testing.T) {
	fields := FieldList{
		{Label: "Title", Value: "title"},
		{Label: "Notes", Value: "notes"},
	}
	rows := []Row{
		{"title": "Plain", "notes": "none"},
		{"title": `Say "hi"`, "notes": "a, b"},
		{"title": "Missing notes"},
	}

	tests := []struct {
		name string
		opts CSVOptions
		want string
	}{
		{
			name: "lf",
			opts: CSVOptions{LineEnding: LineEndingLF},
			want: "Title,Notes\nPlain,none\n\"Say \"\"hi\"\"\",\"a, b\"\nMissing notes,\n",
		},
		{
			name: "crlf with default value",
			opts: CSVOptions{LineEnding: LineEndingCRLF, DefaultValue: "n/a"},
			want: "Title,Notes\r\nPlain,none\r\n\"Say \"\"hi\"\"\",\"a, b\"\r\nMissing notes,n/a\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToCSV(fields, rows, tt.opts)
			if err != nil {
				t.Fatalf("ToCSV() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ToCSV() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestToCSV_InvalidLineEnding(t *testing.T) {
	if _, err := ToCSV(nil, nil, CSVOptions{LineEnding: "\r"}); err == nil {
		t.Error("ToCSV() with bare CR should fail")
	}
}

func TestParseLineEnding(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"lf", LineEndingLF, false},
		{"CRLF", LineEndingCRLF, false},
		{"windows", LineEndingCRLF, false},
		{"", PlatformLineEnding(), false},
		{"mac", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLineEnding(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLineEnding(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLineEnding(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestWriteCSV_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.csv")
	fields := FieldList{{Label: "a", Value: "a"}}

	if err := WriteCSV(path, fields, []Row{{"a": "1"}}, CSVOptions{LineEnding: LineEndingLF}); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a\n1\n" {
		t.Errorf("file = %q", data)
	}
}
