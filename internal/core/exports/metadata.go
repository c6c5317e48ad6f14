package exports

import (
	"context"

	"github.com/JonMunkholm/carpenters/internal/core"
	"github.com/JonMunkholm/carpenters/internal/model"
)

func init() {
	core.RegisterExporter(core.ExporterDefinition{
		Key:         "metadata",
		Label:       "Metadata",
		Description: "CSV of every object's metadata with its location",
		NeedsMap:    true,
		Exporter:    exportMetadata,
	})
	core.RegisterExporter(core.ExporterDefinition{
		Key:         "shotlist",
		Label:       "Shotlist",
		Description: "CSV of titles, containers and production notes",
		Exporter:    exportShotlist,
	})
}

// exportMetadata writes one row per object: uuid, every MAP field, the
// container string and the container path. req.Destination is the CSV file.
func exportMetadata(ctx context.Context, req core.ExportRequest) (core.ExportSummary, error) {
	fields := core.FieldList{{Label: "uuid", Value: "uuid"}}
	fields = append(fields, core.MapFields(req.Map, false)...)
	fields = append(fields,
		core.Field{Label: "location", Value: "location"},
		core.Field{Label: "path", Value: "path"},
	)

	tracker := core.NewProgressTracker(req, len(req.Objects), 0)
	rows := make([]core.Row, 0, len(req.Objects))
	for _, obj := range req.Objects {
		if err := ctx.Err(); err != nil {
			return core.ExportSummary{}, err
		}
		tracker.Object("Exporting metadata", title(obj))

		row := core.MetadataRow(obj, fields)
		row["uuid"] = obj.UUID
		row["location"] = model.ContainerToString(obj.Container())
		row["path"] = model.ContainerToPath(obj.Container())
		rows = append(rows, row)
	}

	if err := core.WriteCSV(req.Destination, fields, rows, csvOptions(req)); err != nil {
		return core.ExportSummary{}, err
	}

	summary := core.ExportSummary{Objects: len(rows), Destination: req.Destination}
	tracker.Finish(summary)
	return summary, nil
}

// exportShotlist writes the title, container path and production notes of
// every object. req.Destination is the CSV file.
func exportShotlist(ctx context.Context, req core.ExportRequest) (core.ExportSummary, error) {
	fields := core.FieldList{
		{Label: "Title", Value: "title"},
		{Label: "Container", Value: "container"},
		{Label: "Production Notes", Value: "productionNotes"},
	}

	tracker := core.NewProgressTracker(req, len(req.Objects), 0)
	rows := make([]core.Row, 0, len(req.Objects))
	for _, obj := range req.Objects {
		if err := ctx.Err(); err != nil {
			return core.ExportSummary{}, err
		}
		tracker.Object("Exporting shotlist", title(obj))
		rows = append(rows, core.Row{
			"title":           title(obj),
			"container":       model.ContainerToPath(obj.Container()),
			"productionNotes": obj.ProductionNotes,
		})
	}

	if err := core.WriteCSV(req.Destination, fields, rows, csvOptions(req)); err != nil {
		return core.ExportSummary{}, err
	}

	summary := core.ExportSummary{Objects: len(rows), Destination: req.Destination}
	tracker.Finish(summary)
	return summary, nil
}
