package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/carpenters/internal/core"
	"github.com/JonMunkholm/carpenters/internal/logging"
	"github.com/JonMunkholm/carpenters/internal/model"
)

// ProjectResponse summarizes the open project.
type ProjectResponse struct {
	Path            string            `json:"path"`
	Version         int64             `json:"version"`
	Type            model.ProjectType `json:"type"`
	CollectionTitle string            `json:"collectionTitle,omitempty"`
	ResourceURI     string            `json:"resource,omitempty"`
	Objects         int               `json:"objects"`
	Files           int               `json:"files"`
}

func toProjectResponse(snap core.Snapshot) ProjectResponse {
	resp := ProjectResponse{
		Path:            snap.Path,
		Version:         snap.Version,
		Type:            snap.Project.Type,
		CollectionTitle: snap.Project.CollectionTitle,
		ResourceURI:     snap.Project.ResourceURI,
		Objects:         len(snap.Project.Objects),
	}
	for _, o := range snap.Project.Objects {
		resp.Files += len(o.Files)
	}
	return resp
}

// rescanTrigger labels API-initiated rescans in metrics.
const rescanTrigger = "api"

// ObjectResponse is one object with its current validation result.
type ObjectResponse struct {
	model.Object
	Validation core.ValidationResult `json:"validation"`
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.service.Store().Snapshot()
	if !ok {
		s.respondError(w, r, core.ErrNoProject)
		return
	}
	writeJSON(w, toProjectResponse(snap))
}

// handleOpenProject opens a project document on the server's filesystem.
func (s *Server) handleOpenProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Path == "" {
		s.respondError(w, r, errors.New("invalid request body: path is required"))
		return
	}

	snap, err := s.service.Store().Open(req.Path)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("project opened",
		"path", snap.Path,
		"objects", len(snap.Project.Objects),
	)
	writeJSON(w, toProjectResponse(snap))
}

// handleSaveProject writes the project to its document, or to path when
// one is given.
func (s *Server) handleSaveProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	store := s.service.Store()
	if req.Path != "" {
		if _, err := store.SaveAs(req.Path); err != nil {
			s.respondError(w, r, err)
			return
		}
	} else if err := store.Save(); err != nil {
		s.respondError(w, r, err)
		return
	}

	snap, _ := store.Snapshot()
	writeJSON(w, toProjectResponse(snap))
}

// handleRescan re-derives file assignments from the Files directory.
func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.service.Store().Snapshot(); !ok {
		s.respondError(w, r, core.ErrNoProject)
		return
	}
	result, err := s.service.Store().Rescan(rescanTrigger)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) findObject(r *http.Request) (model.Object, error) {
	id := chi.URLParam(r, "uuid")
	snap, ok := s.service.Store().Snapshot()
	if !ok {
		return model.Object{}, core.ErrNoProject
	}
	i := snap.Project.IndexOf(id)
	if i < 0 {
		return model.Object{}, fmt.Errorf("%w: %s", core.ErrObjectNotFound, id)
	}
	return snap.Project.Objects[i], nil
}

func (s *Server) objectResponse(obj model.Object) ObjectResponse {
	m, ranges := s.service.Schema()
	return ObjectResponse{Object: obj, Validation: core.ValidateObject(obj, m, ranges)}
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	obj, err := s.findObject(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, s.objectResponse(obj))
}

// handleUpdateMetadata merges the posted key/value pairs into an object's
// metadata. An empty value clears the key.
func (s *Server) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	var values map[string]string
	if err := decodeJSON(w, r, &values); err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(values) == 0 {
		s.respondError(w, r, errors.New("invalid request body: no metadata values"))
		return
	}

	snap, err := s.service.Store().UpdateMetadata(id, values)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Debug("metadata updated", "uuid", id, "fields", len(values))
	writeJSON(w, s.objectResponse(snap.Project.Objects[snap.Project.IndexOf(id)]))
}

// handleRemoveObject drops an object and moves its files into Orphaned/.
func (s *Server) handleRemoveObject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	snap, err := s.service.Store().RemoveObject(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("object removed", "uuid", id)
	writeJSON(w, toProjectResponse(snap))
}

// ValidationResponse lists the validation result of every object.
type ValidationResponse struct {
	Valid   int                     `json:"valid"`
	Invalid int                     `json:"invalid"`
	Objects []core.ObjectValidation `json:"objects"`
}

func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request) {
	results, err := s.service.ValidateProject()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := ValidationResponse{Objects: results}
	for _, res := range results {
		if res.Valid {
			resp.Valid++
		} else {
			resp.Invalid++
		}
	}
	if r.URL.Query().Get("invalid") == "true" {
		resp.Objects = invalidOnly(results)
	}
	writeJSON(w, resp)
}

func invalidOnly(results []core.ObjectValidation) []core.ObjectValidation {
	out := make([]core.ObjectValidation, 0, len(results))
	for _, res := range results {
		if !res.Valid {
			out = append(out, res)
		}
	}
	return out
}
