// Package exports registers the package exporters with the core registry.
// Import this package to ensure all exporters are registered.
//
// Every exporter follows the same sequence: select eligible objects, build
// the column list, project each object into fresh rows, copy its files one
// at a time and finally write the CSV manifest. Objects are visited in
// project order and files in path order.
package exports

import (
	"context"
	"path"
	"path/filepath"

	"github.com/JonMunkholm/carpenters/internal/core"
	"github.com/JonMunkholm/carpenters/internal/logging"
	"github.com/JonMunkholm/carpenters/internal/model"
)

// copyJob is one file copy into the package.
type copyJob struct {
	file model.File
	dest string
}

// copyFiles runs jobs sequentially, counting each one on the tracker before
// it starts.
func copyFiles(ctx context.Context, req core.ExportRequest, tracker *core.ProgressTracker, jobs []copyJob) error {
	logger := logging.FromContext(ctx)
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		tracker.File("Copying files", job.file.Name())
		src := model.AbsPath(req.BasePath, job.file)
		if err := core.CopyFile(ctx, src, job.dest, nil); err != nil {
			return err
		}
		logger.Debug("copied file", "src", job.file.Path, "dest", job.dest)
	}
	return nil
}

// exportName applies the export filename rule to a project file.
func exportName(req core.ExportRequest, ark string, f model.File) string {
	return core.ExportFilename(ark, req.ProjectFile, path.Base(f.Path))
}

func csvOptions(req core.ExportRequest) core.CSVOptions {
	return core.CSVOptions{LineEnding: req.LineEnding}
}

// containerDir converts a container path to a destination-relative
// directory.
func containerDir(c model.Container) string {
	return filepath.FromSlash(model.ContainerToPath(c))
}

// title prefers the dcterms.title metadata over the object title.
func title(obj model.Object) string {
	if v := obj.Value(model.KeyTitle); v != "" {
		return v
	}
	return obj.Title
}
