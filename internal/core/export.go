package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/JonMunkholm/carpenters/internal/model"
	"github.com/JonMunkholm/carpenters/internal/schema"
	"github.com/JonMunkholm/carpenters/internal/vocabulary"
)

// Precondition errors. They are returned before anything is written.
var (
	ErrNoMap           = errors.New("No access/preservation map defined")
	ErrNoProject       = errors.New("no project is open")
	ErrMissingDates    = errors.New("every exported object needs a date (dc.date)")
	ErrUnknownExporter = errors.New("unknown exporter")
)

// ProjectInfo is the project-level data exporters need besides the objects.
type ProjectInfo struct {
	Type            model.ProjectType `json:"type"`
	ResourceURI     string            `json:"resource"`
	CollectionTitle string            `json:"collectionTitle"`
	CollectionARK   string            `json:"collectionArkUrl"`
	AICCode         string            `json:"aic"`
}

// ProjectInfoFrom extracts the project-level fields of p.
func ProjectInfoFrom(p model.Project) ProjectInfo {
	return ProjectInfo{
		Type:            p.Type,
		ResourceURI:     p.ResourceURI,
		CollectionTitle: p.CollectionTitle,
		CollectionARK:   p.CollectionARK,
		AICCode:         p.AICCode,
	}
}

// Progress is a single progress report. A nil Value is indeterminate.
type Progress struct {
	Value          *float64 `json:"value,omitempty"`
	Description    string   `json:"description,omitempty"`
	Subdescription string   `json:"subdescription,omitempty"`
	Error          string   `json:"error,omitempty"`
	Done           bool     `json:"done,omitempty"`
}

// Fraction returns Value, or 0 when indeterminate.
func (p Progress) Fraction() float64 {
	if p.Value == nil {
		return 0
	}
	return *p.Value
}

// ProgressFunc receives progress reports.
type ProgressFunc func(Progress)

// ExportRequest carries everything an exporter reads. Objects are the live
// snapshot and must not be modified.
type ExportRequest struct {
	Objects     []model.Object
	Map         schema.Map
	Ranges      vocabulary.Ranges
	Project     ProjectInfo
	Destination string // CSV file for metadata/shotlist, directory otherwise
	BasePath    string // project root containing Files/
	ProjectFile string // project document name, e.g. "My Collection.carp"
	Username    string
	LineEnding  string
	Progress    ProgressFunc
}

func (r ExportRequest) report(p Progress) {
	if r.Progress != nil {
		r.Progress(p)
	}
}

// ExportSummary reports what an export produced.
type ExportSummary struct {
	Objects     int    `json:"objects"`
	Files       int    `json:"files"`
	Destination string `json:"destination"`
}

// Message is the final progress description.
func (s ExportSummary) Message() string {
	return fmt.Sprintf("Exported %d objects and %d files", s.Objects, s.Files)
}

// Exporter produces one package type.
type Exporter func(ctx context.Context, req ExportRequest) (ExportSummary, error)

// ProgressTracker turns per-item steps into monotonically increasing
// fractions. The total is qualifying objects plus qualifying files.
type ProgressTracker struct {
	req   ExportRequest
	total int
	done  int
}

// NewProgressTracker creates a tracker for objects+files steps.
func NewProgressTracker(req ExportRequest, objects, files int) *ProgressTracker {
	return &ProgressTracker{req: req, total: objects + files}
}

// Indeterminate reports a setup phase with no known fraction.
func (t *ProgressTracker) Indeterminate(description string) {
	t.req.report(Progress{Description: description})
}

// Object counts one object row, before it is processed.
func (t *ProgressTracker) Object(description, subdescription string) {
	t.step(description, subdescription)
}

// File counts one file copy, before it starts.
func (t *ProgressTracker) File(description, subdescription string) {
	t.step(description, subdescription)
}

func (t *ProgressTracker) step(description, subdescription string) {
	if t.done < t.total {
		t.done++
	}
	v := 0.0
	if t.total > 0 {
		v = float64(t.done) / float64(t.total)
	}
	t.req.report(Progress{Value: &v, Description: description, Subdescription: subdescription})
}

// Finish reports the terminal success state.
func (t *ProgressTracker) Finish(s ExportSummary) {
	one := 1.0
	t.req.report(Progress{Value: &one, Description: s.Message(), Done: true})
}

// Field is a CSV column: the header label and the row key it reads.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FieldList is an ordered column list.
type FieldList []Field

// Labels returns the header labels in order.
func (l FieldList) Labels() []string {
	out := make([]string, len(l))
	for i, f := range l {
		out[i] = f.Label
	}
	return out
}

// MapFields builds columns for the MAP fields addressed by namespace.name.
func MapFields(m schema.Map, visibleOnly bool) FieldList {
	var out FieldList
	for _, f := range m {
		if visibleOnly && !f.Visible {
			continue
		}
		out = append(out, Field{Label: f.Label, Value: f.Key()})
	}
	return out
}

// Row is a flat projection of an object. Rows are always freshly built so
// the source object is never touched.
type Row map[string]string

// MetadataRow copies the metadata values for the given fields.
func MetadataRow(obj model.Object, fields FieldList) Row {
	row := make(Row, len(fields))
	for _, f := range fields {
		if v, ok := obj.Metadata[f.Value]; ok {
			row[f.Value] = v
		}
	}
	return row
}

// Eligible returns the objects that satisfy pred, in project order.
func Eligible(objects []model.Object, pred func(model.Object) bool) []model.Object {
	var out []model.Object
	for _, o := range objects {
		if pred(o) {
			out = append(out, o)
		}
	}
	return out
}

var (
	numericPrefixRe = regexp.MustCompile(`^\d{4,}_`)
	purposeSuffixRe = regexp.MustCompile(`_[A-Za-z]{2}(\.[^./]*)$`)
)

// ExportFilename derives the name a file gets in an export package.
//
// With an ARK and a project file, a name starting with a numeric prefix
// ("0012_photo_pm.tif") has the prefix replaced by the collection base name
// and the ARK's last segment ("My_Collection_abc123_photo_pm.tif").
// Otherwise a two-letter suffix before the extension is dropped
// ("photo_pm.tif" becomes "photo.tif"). Names matching neither rule are
// returned unchanged.
func ExportFilename(ark, projectFile, filename string) string {
	if ark != "" && projectFile != "" && numericPrefixRe.MatchString(filename) {
		rest := numericPrefixRe.ReplaceAllString(filename, "")
		return model.BaseName(projectFile) + "_" + ArkTail(ark) + "_" + rest
	}
	if purposeSuffixRe.MatchString(filename) {
		return purposeSuffixRe.ReplaceAllString(filename, "$1")
	}
	return filename
}

// ArkTail returns the last path segment of an ARK ("ark:/99999/abc123"
// gives "abc123").
func ArkTail(ark string) string {
	ark = strings.TrimRight(ark, "/")
	if i := strings.LastIndex(ark, "/"); i >= 0 {
		return ark[i+1:]
	}
	return ark
}

var rightsURIs = map[string]string{
	"Public Domain":                                                 "https://creativecommons.org/publicdomain/mark/1.0/",
	"In Copyright":                                                  "http://rightsstatements.org/vocab/InC/1.0/",
	"In Copyright - Educational Use Permitted":                      "http://rightsstatements.org/vocab/InC-EDU/1.0/",
	"In Copyright - Rights-holder(s) Unlocatable or Unidentifiable": "http://rightsstatements.org/vocab/InC-RUU/1.0/",
	"No Copyright - United States":                                  "http://rightsstatements.org/vocab/NoC-US/1.0/",
	"Copyright Not Evaluated":                                       "http://rightsstatements.org/vocab/CNE/1.0/",
	"No Known Copyright":                                            "http://rightsstatements.org/vocab/NKC/1.0/",
}

// RightsToURI maps a rights statement label to its URI. Unknown labels map
// to "".
func RightsToURI(label string) string {
	return rightsURIs[label]
}

// exportFailed wraps an I/O error with the exporter label.
func exportFailed(label string, err error) error {
	return fmt.Errorf("%s export failed: %w", label, err)
}
