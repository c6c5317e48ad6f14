package exports

import (
	"context"
	"encoding/csv"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/carpenters/internal/core"
	"github.com/JonMunkholm/carpenters/internal/model"
	"github.com/JonMunkholm/carpenters/internal/schema"
)

func init() {
	core.RegisterExporter(core.ExporterDefinition{
		Key:         "avalon",
		Label:       "Avalon",
		Description: "Audio, video and PDF access files with an Avalon batch manifest",
		NeedsMap:    true,
		Exporter:    exportAvalon,
	})
}

const relatedItemLabel = "Related Item Label"

var audioVideoExts = map[string]bool{
	".aac": true, ".aif": true, ".aiff": true, ".flac": true, ".m4a": true,
	".mp3": true, ".ogg": true, ".wav": true,
	".avi": true, ".m4v": true, ".mkv": true, ".mov": true, ".mp4": true,
	".mpeg": true, ".mpg": true, ".webm": true,
}

func isAudioVideo(f model.File) bool {
	return audioVideoExts[f.Ext()]
}

func isCaption(f model.File) bool {
	return f.Purpose == model.PurposeSubmissionDocumentation && f.Ext() == ".vtt"
}

func isAvalonAccess(f model.File) bool {
	return f.Purpose == model.PurposeAccess && (isAudioVideo(f) || f.Ext() == ".pdf")
}

func avalonEligible(o model.Object) bool {
	for _, f := range o.Files {
		if isAvalonAccess(f) || isCaption(f) {
			return true
		}
	}
	return false
}

// mediaFiles returns the audio and video access files in path order.
func mediaFiles(o model.Object) []model.File {
	var out []model.File
	for _, f := range model.FilesWithPurpose(o.Files, model.PurposeAccess) {
		if isAudioVideo(f) {
			out = append(out, f)
		}
	}
	return out
}

// avalonFiles returns every file the package carries for o, in path order.
func avalonFiles(o model.Object) []model.File {
	var out []model.File
	for _, f := range model.SortFiles(o.Files) {
		if isAvalonAccess(f) || isCaption(f) {
			out = append(out, f)
		}
	}
	return out
}

// avalonColumn is one crosswalked field and the number of indexed column
// sets it expands to. A width of -1 is a single unindexed set.
type avalonColumn struct {
	field schema.Field
	label string
	width int
}

func (c avalonColumn) suffix(i int) string {
	if c.width < 0 {
		return ""
	}
	return "." + strconv.Itoa(i)
}

func (c avalonColumn) sets() int {
	if c.width < 0 {
		return 1
	}
	return c.width
}

// avalonLayout is the dynamic manifest layout derived from the MAP and the
// project objects.
type avalonLayout struct {
	columns     []avalonColumn
	hasRelation bool
	maxFiles    int
}

// newAvalonLayout sizes every crosswalked field to the largest number of
// values any object holds for it and the file triples to the largest number
// of audio and video access files.
func newAvalonLayout(m schema.Map, objects []model.Object) avalonLayout {
	var layout avalonLayout
	for _, o := range objects {
		if o.Value(model.KeyRelation) != "" {
			layout.hasRelation = true
		}
		if n := len(mediaFiles(o)); n > layout.maxFiles {
			layout.maxFiles = n
		}
	}

	for _, f := range m.WithAvalon() {
		col := avalonColumn{field: f, label: f.Crosswalk.Avalon.Label, width: -1}
		if col.label == "" {
			col.label = f.Label
		}
		if f.Repeatable {
			col.width = 0
			for _, o := range objects {
				if n := len(schema.SplitValues(o.Value(f.Key()))); n > col.width {
					col.width = n
				}
			}
		}
		layout.columns = append(layout.columns, col)
	}
	return layout
}

func (l avalonLayout) fields() core.FieldList {
	var fields core.FieldList
	for _, col := range l.columns {
		key := col.field.Key()
		cw := col.field.Crosswalk.Avalon
		for i := 0; i < col.sets(); i++ {
			sfx := col.suffix(i)
			fields = append(fields, core.Field{Label: col.label, Value: key + sfx})
			if cw.TypeLabel != "" {
				fields = append(fields, core.Field{Label: cw.TypeLabel, Value: key + ".type" + sfx})
			}
			if key == model.KeyRelation && l.hasRelation {
				fields = append(fields, core.Field{Label: relatedItemLabel, Value: key + ".label" + sfx})
			}
		}
	}
	for i := 0; i < l.maxFiles; i++ {
		n := strconv.Itoa(i)
		fields = append(fields,
			core.Field{Label: "File", Value: "file." + n},
			core.Field{Label: "Label", Value: "label." + n},
			core.Field{Label: "Offset", Value: "offset." + n},
		)
	}
	return fields
}

func (l avalonLayout) row(req core.ExportRequest, o model.Object) core.Row {
	row := core.Row{}
	for _, col := range l.columns {
		key := col.field.Key()
		cw := col.field.Crosswalk.Avalon

		values := []string{o.Value(key)}
		if col.width >= 0 {
			values = schema.SplitValues(o.Value(key))
		}
		for i, v := range values {
			if v == "" {
				continue
			}
			sfx := col.suffix(i)
			row[key+sfx] = v
			if cw.TypeLabel != "" {
				row[key+".type"+sfx] = cw.Type
			}
			if key == model.KeyRelation {
				row[key+".label"+sfx] = v
			}
		}
	}
	for i, f := range mediaFiles(o) {
		n := strconv.Itoa(i)
		row["file."+n] = "content/" + exportName(req, o.DOArk, f)
		row["label."+n] = title(o)
	}
	return row
}

// exportAvalon builds an Avalon batch ingest package. Every eligible object
// must carry a dc.date; the check runs before anything is written.
func exportAvalon(ctx context.Context, req core.ExportRequest) (core.ExportSummary, error) {
	objects := core.Eligible(req.Objects, avalonEligible)
	for _, o := range objects {
		if strings.TrimSpace(o.Value(model.KeyDate)) == "" {
			return core.ExportSummary{}, core.ErrMissingDates
		}
	}

	layout := newAvalonLayout(req.Map, req.Objects)
	fields := layout.fields()

	fileCount := 0
	for _, o := range objects {
		fileCount += len(avalonFiles(o))
	}

	tracker := core.NewProgressTracker(req, len(objects), fileCount)
	rows := make([]core.Row, 0, len(objects))
	for _, o := range objects {
		if err := ctx.Err(); err != nil {
			return core.ExportSummary{}, err
		}
		tracker.Object("Exporting Avalon items", title(o))
		rows = append(rows, layout.row(req, o))

		var jobs []copyJob
		for _, f := range avalonFiles(o) {
			dir := "content"
			if f.Ext() == ".pdf" {
				dir = "pdf"
			}
			jobs = append(jobs, copyJob{
				file: f,
				dest: filepath.Join(req.Destination, dir, exportName(req, o.DOArk, f)),
			})
		}
		if err := copyFiles(ctx, req, tracker, jobs); err != nil {
			return core.ExportSummary{}, err
		}
	}

	manifest, err := avalonManifest(fields, rows, req.Username)
	if err != nil {
		return core.ExportSummary{}, err
	}
	if err := core.WriteText(filepath.Join(req.Destination, "batch_manifest.csv"), manifest); err != nil {
		return core.ExportSummary{}, err
	}

	summary := core.ExportSummary{Objects: len(objects), Files: fileCount, Destination: req.Destination}
	tracker.Finish(summary)
	return summary, nil
}

// avalonManifest serializes the rows with "\n" line endings, strips quotes
// from the header line and prepends the "Batch Ingest" line. The username
// cell is CSV-escaped.
func avalonManifest(fields core.FieldList, rows []core.Row, username string) (string, error) {
	text, err := core.ToCSV(fields, rows, core.CSVOptions{LineEnding: core.LineEndingLF})
	if err != nil {
		return "", err
	}

	header, body, _ := strings.Cut(text, core.LineEndingLF)
	header = strings.ReplaceAll(header, `"`, "")

	cells := make([]string, max(len(fields), 2))
	cells[0] = "Batch Ingest"
	cells[1] = username

	// The username is quoted like any body cell so it cannot shift columns.
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(cells); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	b.WriteString(header)
	b.WriteString(core.LineEndingLF)
	b.WriteString(body)
	return b.String(), nil
}
