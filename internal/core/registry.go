package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/carpenters/internal/logging"
)

// ExporterDefinition describes a registered package exporter.
type ExporterDefinition struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	NeedsMap    bool     `json:"needs_map"`
	Exporter    Exporter `json:"-"`
}

var (
	registry   = make(map[string]ExporterDefinition)
	registryMu sync.RWMutex
)

// RegisterExporter adds an exporter to the registry.
// Panics if an exporter with the same key is already registered.
func RegisterExporter(def ExporterDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("exporter already registered: %s", def.Key))
	}
	if def.Label == "" {
		def.Label = def.Key
	}
	registry[def.Key] = def
}

// GetExporter returns an exporter definition by key.
func GetExporter(key string) (ExporterDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// AllExporters returns all registered exporters sorted by key.
func AllExporters() []ExporterDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ExporterDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// ExporterCount returns the number of registered exporters.
func ExporterCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// RunExport looks up an exporter and runs it against req.
func RunExport(ctx context.Context, key string, req ExportRequest) (ExportSummary, error) {
	def, ok := GetExporter(key)
	if !ok {
		return ExportSummary{}, fmt.Errorf("%w: %s", ErrUnknownExporter, key)
	}
	return runExporter(ctx, def, req)
}

// runExporter runs a resolved exporter. A missing MAP fails before the
// exporter is called. Failures are wrapped with the exporter label and
// reported as the terminal progress state.
func runExporter(ctx context.Context, def ExporterDefinition, req ExportRequest) (ExportSummary, error) {
	logger := logging.WithFields(ctx, "exporter", def.Key, "destination", req.Destination)
	logger.Info("export started", "objects", len(req.Objects))

	var (
		summary ExportSummary
		err     error
	)
	if def.NeedsMap && req.Map == nil {
		err = ErrNoMap
	} else {
		summary, err = def.Exporter(ctx, req)
	}
	if err != nil {
		if !isPrecondition(err) {
			err = exportFailed(def.Label, err)
		}
		logger.Error("export failed", "error", err)
		req.report(Progress{
			Description: fmt.Sprintf("%s export failed", def.Label),
			Error:       err.Error(),
			Done:        true,
		})
		return summary, err
	}

	logger.Info("export completed", "objects", summary.Objects, "files", summary.Files)
	return summary, nil
}

func isPrecondition(err error) bool {
	return errors.Is(err, ErrNoMap) || errors.Is(err, ErrMissingDates) || errors.Is(err, ErrNoProject)
}
