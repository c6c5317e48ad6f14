package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/carpenters/internal/core"
	"github.com/JonMunkholm/carpenters/internal/logging"
)

// ExportRequest is the body of POST /api/export/{kind}.
type ExportRequest struct {
	Destination string `json:"destination"`
	Username    string `json:"username,omitempty"`
	LineEnding  string `json:"lineEnding,omitempty"`
}

// ExporterInfo describes an exporter and whether it can run right now.
type ExporterInfo struct {
	core.ExporterDefinition
	Available bool `json:"available"`
}

func (s *Server) handleListExporters(w http.ResponseWriter, r *http.Request) {
	m, _ := s.service.Schema()
	defs := core.AllExporters()
	out := make([]ExporterInfo, len(defs))
	for i, def := range defs {
		out[i] = ExporterInfo{ExporterDefinition: def, Available: !def.NeedsMap || m != nil}
	}
	writeJSON(w, out)
}

// handleStartExport starts an export in the background and returns its id.
// Progress is streamed from /api/export/{exportID}/progress.
func (s *Server) handleStartExport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	var req ExportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	opts := core.ExportOptions{Username: req.Username}
	if req.LineEnding != "" {
		le, err := core.ParseLineEnding(req.LineEnding)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("invalid request body: %w", err))
			return
		}
		opts.LineEnding = le
	}

	// RemoteAddr is already rewritten by TrustedRealIP.
	ctx := core.WithRequestInfo(r.Context(), core.RequestInfo{
		Requester: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	id, err := s.service.StartExport(ctx, kind, req.Destination, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(ctx).Info("export started",
		"export_id", id,
		"exporter", kind,
		"destination", req.Destination,
	)
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"export_id": id})
}

// handleExportProgress streams export progress via Server-Sent Events.
// Supports resumption via the lastEventId query parameter or the
// Last-Event-ID header.
func (s *Server) handleExportProgress(w http.ResponseWriter, r *http.Request) {
	exportID := chi.URLParam(r, "exportID")

	// The event ID is the progress percentage, allowing clients to skip
	// already-received events after reconnection
	lastEventIDStr := r.URL.Query().Get("lastEventId")
	if lastEventIDStr == "" {
		lastEventIDStr = r.Header.Get("Last-Event-ID")
	}
	lastEventID := -1
	if lastEventIDStr != "" {
		if n, err := strconv.Atoi(lastEventIDStr); err == nil {
			lastEventID = n
		}
	}

	progressCh, err := s.service.SubscribeProgress(exportID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// The logging middleware wraps w; the controller finds the flusher
	// through Unwrap.
	rc := http.NewResponseController(w)

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				// Channel closed - export finished
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				rc.Flush()
				return
			}

			eventID := int(progress.Fraction() * 100)
			if eventID < lastEventID && !progress.Done && progress.Error == "" {
				continue
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", eventID, data)
			rc.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleExportResult waits for an export to finish and returns its outcome.
func (s *Server) handleExportResult(w http.ResponseWriter, r *http.Request) {
	exportID := chi.URLParam(r, "exportID")

	outcome, err := s.service.ExportResult(r.Context(), exportID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, outcome)
}

// handleHistory returns recent export runs, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)

	entries, err := s.service.ExportHistory(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.HistoryEntry{}
	}
	writeJSON(w, entries)
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
