// Package core provides the business logic for validating and exporting
// archival projects.
//
// This package holds all domain logic independent of any transport layer.
// It is used by the web handlers, the carp CLI and tests without
// modification.
//
// # Architecture
//
//   - Store: an explicit state container holding immutable project
//     snapshots. Every command builds a new snapshot and notifies
//     subscribers.
//   - Validation: MAP-driven checks of object metadata against the
//     controlled vocabulary ranges. Validation never gates an export.
//   - Exporters: registered at init time with [RegisterExporter]. Each one
//     selects eligible objects, projects them into rows, copies files and
//     writes a CSV manifest.
//   - Service: the entry point that ties the store, the MAP, the ranges, the
//     operation guard and the export history together.
//
// # Exporter Registry
//
// Exporters register themselves from the exports package:
//
//	core.RegisterExporter(core.ExporterDefinition{
//	    Key:      "armand",
//	    Label:    "Armand",
//	    NeedsMap: true,
//	    Exporter: exportArmand,
//	})
//
// # Export Flow
//
//  1. Client calls [Service.StartExport] with an exporter key and destination
//  2. The service takes a snapshot and acquires the [OperationGuard]
//  3. The exporter runs sequentially: objects in project order, files in
//     path order, one copy at a time
//  4. Progress is broadcast to subscribers via [Service.SubscribeProgress]
//  5. The outcome is recorded in the [HistoryStore] and in metrics
//
// # Error Handling
//
// Precondition failures are sentinel errors returned before any file is
// written. I/O failures abort the run and are wrapped as
// "<Label> export failed: ...". Technical errors are mapped to coded user
// messages with [MapError].
package core
