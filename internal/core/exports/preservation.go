package exports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/carpenters/internal/core"
	"github.com/JonMunkholm/carpenters/internal/model"
)

func init() {
	core.RegisterExporter(core.ExporterDefinition{
		Key:         "preservation",
		Label:       "Preservation",
		Description: "One Archivematica SIP per object with preservation files",
		NeedsMap:    true,
		Exporter:    exportPreservation,
	})
}

// SIP layout, relative to the SIP directory.
const (
	sipObjectsDir    = "objects"
	sipMetadataDir   = "metadata"
	sipSubmissionDir = "submissionDocumentation"
	sipLogsDir       = "logs"
)

// sipName is the preservation ARK tail, or the 1-based index among the
// eligible objects padded to three digits.
func sipName(o model.Object, index int) string {
	if o.PMArk != "" {
		return core.ArkTail(o.PMArk)
	}
	return fmt.Sprintf("%03d", index)
}

// preservationFields uses the metadata keys as column labels, which is what
// Archivematica's metadata.csv expects.
func preservationFields(req core.ExportRequest) core.FieldList {
	fields := core.FieldList{{Label: "parts", Value: "parts"}}
	for _, f := range req.Map {
		fields = append(fields, core.Field{Label: f.Key(), Value: f.Key()})
	}
	return append(fields,
		core.Field{Label: "uhlib.doUuid", Value: "uhlib.doUuid"},
		core.Field{Label: "partOfAIC", Value: "partOfAIC"},
	)
}

// exportPreservation writes one SIP directory per eligible object:
//
//	<sip>/objects/<sip>/                         preservation files
//	<sip>/metadata/metadata.csv
//	<sip>/metadata/submissionDocumentation/      submission documents
//	<sip>/logs/
func exportPreservation(ctx context.Context, req core.ExportRequest) (core.ExportSummary, error) {
	objects := core.Eligible(req.Objects, func(o model.Object) bool {
		return o.HasFileWithPurpose(model.PurposePreservation)
	})

	fileCount := 0
	for _, o := range objects {
		fileCount += len(model.FilesWithPurpose(o.Files, model.PurposePreservation))
		fileCount += len(model.FilesWithPurpose(o.Files, model.PurposeSubmissionDocumentation))
	}

	fields := preservationFields(req)
	tracker := core.NewProgressTracker(req, len(objects), fileCount)

	for i, o := range objects {
		if err := ctx.Err(); err != nil {
			return core.ExportSummary{}, err
		}
		sip := sipName(o, i+1)
		tracker.Object("Building SIPs", sip)

		sipDir := filepath.Join(req.Destination, sip)
		if err := os.MkdirAll(filepath.Join(sipDir, sipLogsDir), 0o755); err != nil {
			return core.ExportSummary{}, err
		}

		row := core.MetadataRow(o, fields)
		row["parts"] = sipObjectsDir + "/" + sip
		row["uhlib.doUuid"] = o.UUID
		row["partOfAIC"] = req.Project.AICCode
		rightsAsURIs(row)

		csvPath := filepath.Join(sipDir, sipMetadataDir, "metadata.csv")
		if err := core.WriteCSV(csvPath, fields, []core.Row{row}, csvOptions(req)); err != nil {
			return core.ExportSummary{}, err
		}

		var jobs []copyJob
		for _, f := range model.FilesWithPurpose(o.Files, model.PurposePreservation) {
			jobs = append(jobs, copyJob{
				file: f,
				dest: filepath.Join(sipDir, sipObjectsDir, sip, exportName(req, o.PMArk, f)),
			})
		}
		for _, f := range model.FilesWithPurpose(o.Files, model.PurposeSubmissionDocumentation) {
			jobs = append(jobs, copyJob{
				file: f,
				dest: filepath.Join(sipDir, sipMetadataDir, sipSubmissionDir, exportName(req, o.PMArk, f)),
			})
		}
		if err := copyFiles(ctx, req, tracker, jobs); err != nil {
			return core.ExportSummary{}, err
		}
	}

	summary := core.ExportSummary{Objects: len(objects), Files: fileCount, Destination: req.Destination}
	tracker.Finish(summary)
	return summary, nil
}
