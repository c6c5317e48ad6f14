package exports

import (
	"context"
	"path/filepath"

	"github.com/JonMunkholm/carpenters/internal/core"
	"github.com/JonMunkholm/carpenters/internal/model"
	"github.com/JonMunkholm/carpenters/internal/schema"
)

func init() {
	core.RegisterExporter(core.ExporterDefinition{
		Key:         "armand",
		Label:       "Armand",
		Description: "Access files with an Armand ingest CSV",
		NeedsMap:    true,
		Exporter:    exportArmand,
	})
}

// exportArmand writes one Object row per eligible object followed by one
// File row per access file. Files are copied flat into the destination.
func exportArmand(ctx context.Context, req core.ExportRequest) (core.ExportSummary, error) {
	objects := core.Eligible(req.Objects, func(o model.Object) bool {
		return o.HasFileWithPurpose(model.PurposeAccess)
	})

	fileCount := 0
	for _, obj := range objects {
		fileCount += len(model.FilesWithPurpose(obj.Files, model.PurposeAccess))
	}

	fields := core.FieldList{
		{Label: "object_type", Value: "object_type"},
		{Label: "filename", Value: "filename"},
		{Label: "uuid", Value: "uuid"},
	}
	fields = append(fields, core.MapFields(req.Map, true)...)

	tracker := core.NewProgressTracker(req, len(objects), fileCount)
	var rows []core.Row
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return core.ExportSummary{}, err
		}
		tracker.Object("Exporting Armand objects", title(obj))

		row := core.MetadataRow(obj, fields)
		row["object_type"] = "Object"
		row["uuid"] = obj.UUID
		rightsAsURIs(row)
		rows = append(rows, row)

		var jobs []copyJob
		for _, f := range model.FilesWithPurpose(obj.Files, model.PurposeAccess) {
			name := exportName(req, obj.DOArk, f)
			rows = append(rows, core.Row{"object_type": "File", "filename": name})
			jobs = append(jobs, copyJob{file: f, dest: filepath.Join(req.Destination, name)})
		}
		if err := copyFiles(ctx, req, tracker, jobs); err != nil {
			return core.ExportSummary{}, err
		}
	}

	csvPath := filepath.Join(req.Destination, "armand.csv")
	if err := core.WriteCSV(csvPath, fields, rows, csvOptions(req)); err != nil {
		return core.ExportSummary{}, err
	}

	summary := core.ExportSummary{Objects: len(objects), Files: fileCount, Destination: req.Destination}
	tracker.Finish(summary)
	return summary, nil
}

// rightsAsURIs replaces each rights statement in row with its URI. Unknown
// statements are dropped.
func rightsAsURIs(row core.Row) {
	v, ok := row[model.KeyRights]
	if !ok {
		return
	}
	var uris []string
	for _, label := range schema.SplitValues(v) {
		if uri := core.RightsToURI(label); uri != "" {
			uris = append(uris, uri)
		}
	}
	row[model.KeyRights] = schema.JoinValues(uris)
}
