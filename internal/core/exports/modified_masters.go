package exports

import (
	"context"
	"path/filepath"

	"github.com/JonMunkholm/carpenters/internal/core"
	"github.com/JonMunkholm/carpenters/internal/model"
)

func init() {
	core.RegisterExporter(core.ExporterDefinition{
		Key:         "modified-masters",
		Label:       "Modified Masters",
		Description: "Modified master files in their container folders with a metadata CSV",
		NeedsMap:    true,
		Exporter:    exportModifiedMasters,
	})
}

func exportModifiedMasters(ctx context.Context, req core.ExportRequest) (core.ExportSummary, error) {
	objects := core.Eligible(req.Objects, func(o model.Object) bool {
		return o.HasFileWithPurpose(model.PurposeModifiedMaster)
	})

	fileCount := 0
	for _, obj := range objects {
		fileCount += len(model.FilesWithPurpose(obj.Files, model.PurposeModifiedMaster))
	}

	fields := core.FieldList{{Label: "parts", Value: "parts"}}
	fields = append(fields, core.MapFields(req.Map, true)...)

	tracker := core.NewProgressTracker(req, len(objects), fileCount)
	var rows []core.Row
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return core.ExportSummary{}, err
		}
		tracker.Object("Exporting modified masters", title(obj))

		row := core.MetadataRow(obj, fields)
		row["parts"] = "object"
		rows = append(rows, row)

		containerPath := model.ContainerToPath(obj.Container())
		var jobs []copyJob
		for _, f := range model.FilesWithPurpose(obj.Files, model.PurposeModifiedMaster) {
			name := exportName(req, obj.DOArk, f)
			rows = append(rows, core.Row{"parts": containerPath + name})
			jobs = append(jobs, copyJob{
				file: f,
				dest: filepath.Join(req.Destination, containerDir(obj.Container()), name),
			})
		}
		if err := copyFiles(ctx, req, tracker, jobs); err != nil {
			return core.ExportSummary{}, err
		}
	}

	csvPath := filepath.Join(req.Destination, "metadata.csv")
	if err := core.WriteCSV(csvPath, fields, rows, csvOptions(req)); err != nil {
		return core.ExportSummary{}, err
	}

	summary := core.ExportSummary{Objects: len(objects), Files: fileCount, Destination: req.Destination}
	tracker.Finish(summary)
	return summary, nil
}
