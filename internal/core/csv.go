package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Line endings accepted by ToCSV.
const (
	LineEndingLF   = "\n"
	LineEndingCRLF = "\r\n"
)

// PlatformLineEnding returns the line ending of the host platform.
func PlatformLineEnding() string {
	if runtime.GOOS == "windows" {
		return LineEndingCRLF
	}
	return LineEndingLF
}

// ParseLineEnding maps the configuration names "lf", "crlf" and "platform"
// to a line ending.
func ParseLineEnding(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", "platform":
		return PlatformLineEnding(), nil
	case "lf", "unix":
		return LineEndingLF, nil
	case "crlf", "windows":
		return LineEndingCRLF, nil
	default:
		return "", fmt.Errorf("unknown line ending %q (use platform, lf or crlf)", name)
	}
}

// CSVOptions controls serialization. An empty LineEnding means the
// platform default.
type CSVOptions struct {
	LineEnding   string
	DefaultValue string
}

// ToCSV renders fields as the header row followed by one line per row. Each
// cell is row[field.Value], or DefaultValue when the key is absent. Cells
// containing commas, quotes or newlines are quoted.
func ToCSV(fields FieldList, rows []Row, opts CSVOptions) (string, error) {
	lineEnding := opts.LineEnding
	if lineEnding == "" {
		lineEnding = PlatformLineEnding()
	}
	if lineEnding != LineEndingLF && lineEnding != LineEndingCRLF {
		return "", fmt.Errorf("invalid csv line ending %q", lineEnding)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = lineEnding == LineEndingCRLF

	if err := w.Write(fields.Labels()); err != nil {
		return "", fmt.Errorf("invalid csv header: %w", err)
	}

	record := make([]string, len(fields))
	for _, row := range rows {
		for i, f := range fields {
			v, ok := row[f.Value]
			if !ok {
				v = opts.DefaultValue
			}
			record[i] = v
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("invalid csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("invalid csv: %w", err)
	}
	return buf.String(), nil
}

// WriteCSV serializes and writes the manifest, creating parent directories.
func WriteCSV(path string, fields FieldList, rows []Row, opts CSVOptions) error {
	text, err := ToCSV(fields, rows, opts)
	if err != nil {
		return err
	}
	return writeText(path, text)
}

func writeText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

// WriteText writes an already serialized manifest.
func WriteText(path, text string) error {
	return writeText(path, text)
}
