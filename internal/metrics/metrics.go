// Package metrics provides Prometheus metrics for exports, file copies and
// validation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Export metrics
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carp_exports_total",
			Help: "Total number of export runs",
		},
		[]string{"exporter", "status"},
	)

	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carp_export_duration_seconds",
			Help:    "Time taken by an export run",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600, 1800},
		},
		[]string{"exporter"},
	)

	ObjectsExported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carp_objects_exported_total",
			Help: "Total number of objects written to export manifests",
		},
		[]string{"exporter"},
	)

	FilesExported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carp_files_exported_total",
			Help: "Total number of files copied into export packages",
		},
		[]string{"exporter"},
	)

	// File copy metrics
	BytesCopied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carp_bytes_copied_total",
			Help: "Total bytes copied from project storage to export destinations",
		},
	)

	CopyErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carp_copy_errors_total",
			Help: "Total number of failed file copies",
		},
	)

	// Operation guard
	OperationsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "carp_operations_active",
			Help: "Number of export or mint operations in flight (0 or 1)",
		},
	)

	OperationsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carp_operations_rejected_total",
			Help: "Operations rejected because another one was in flight",
		},
		[]string{"operation"},
	)

	// Validation
	InvalidObjects = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "carp_invalid_objects",
			Help: "Number of objects that failed validation in the last check",
		},
	)

	// Store
	Rescans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carp_rescans_total",
			Help: "Total number of Files directory rescans",
		},
		[]string{"trigger"},
	)
)

// RecordExport records the outcome of one export run.
func RecordExport(exporter, status string, duration time.Duration, objects, files int) {
	ExportsTotal.WithLabelValues(exporter, status).Inc()
	ExportDuration.WithLabelValues(exporter).Observe(duration.Seconds())
	if objects > 0 {
		ObjectsExported.WithLabelValues(exporter).Add(float64(objects))
	}
	if files > 0 {
		FilesExported.WithLabelValues(exporter).Add(float64(files))
	}
}

// RecordCopy records a finished file copy.
func RecordCopy(bytes int64, err error) {
	if err != nil {
		CopyErrors.Inc()
		return
	}
	BytesCopied.Add(float64(bytes))
}
