package web

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/carpenters/internal/core"
	"github.com/JonMunkholm/carpenters/internal/logging"
	"github.com/JonMunkholm/carpenters/internal/web/templates"
)

// dashboardHistory is the number of recent exports on the dashboard.
const dashboardHistory = 10

// handleDashboard renders the status page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	m, _ := s.service.Schema()
	data := templates.DashboardData{
		MapLoaded: m != nil,
		Busy:      s.service.Guard().Busy(),
	}

	if snap, ok := s.service.Store().Snapshot(); ok {
		resp := toProjectResponse(snap)
		data.ProjectOpen = true
		data.ProjectPath = resp.Path
		data.CollectionTitle = resp.CollectionTitle
		data.Objects = resp.Objects
		data.Files = resp.Files
		if results, err := s.service.ValidateProject(); err == nil {
			data.Invalid = len(invalidOnly(results))
		}
	}

	for _, def := range core.AllExporters() {
		data.Exporters = append(data.Exporters, templates.ExporterRow{
			Key:         def.Key,
			Label:       def.Label,
			Description: def.Description,
			Available:   !def.NeedsMap || m != nil,
		})
	}

	entries, err := s.service.ExportHistory(r.Context(), dashboardHistory)
	if err != nil {
		logging.FromContext(r.Context()).Warn("load export history", "error", err)
	}
	for _, e := range entries {
		data.History = append(data.History, templates.HistoryRow{
			Label:       e.Label,
			Status:      string(e.Status),
			Destination: e.Destination,
			Objects:     e.Objects,
			Files:       e.Files,
			StartedAt:   e.StartedAt.Local().Format(time.DateTime),
			Error:       e.Error,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render dashboard", "error", err)
	}
}
