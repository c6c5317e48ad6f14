// Package templates renders the HTML dashboard and htmx fragments.
// Components are written in .templ files; run `templ generate` after editing them.
package templates

// ExporterRow is one exporter on the dashboard.
type ExporterRow struct {
	Key         string
	Label       string
	Description string
	Available   bool
}

// HistoryRow is one recent export on the dashboard.
type HistoryRow struct {
	Label       string
	Status      string
	Destination string
	Objects     int
	Files       int
	StartedAt   string
	Error       string
}

// DashboardData is everything the dashboard shows.
type DashboardData struct {
	ProjectOpen     bool
	ProjectPath     string
	CollectionTitle string
	Objects         int
	Files           int
	Invalid         int
	MapLoaded       bool
	Busy            bool
	Exporters       []ExporterRow
	History         []HistoryRow
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
