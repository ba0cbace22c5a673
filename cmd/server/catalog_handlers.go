package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/o.quote/internal/catalog"
)

func (s *server) handleMaterialsList(w http.ResponseWriter, r *http.Request) {
	materials, err := s.catalog.ListMaterials(r.Context())
	if err != nil {
		s.log.Error("list materials", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load materials")
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (s *server) handleMaterialGet(w http.ResponseWriter, r *http.Request) {
	m, err := s.catalog.GetMaterial(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.catalogError(w, err, "failed to load material")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *server) handleMaterialsUpsert(w http.ResponseWriter, r *http.Request) {
	var m catalog.MaterialEntry
	if err := decodeJSON(w, r, &m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.catalog.UpsertMaterial(r.Context(), m); err != nil {
		s.catalogError(w, err, "failed to save material")
		return
	}
	s.log.Info("material saved", zap.String("code", m.Code))
	writeJSON(w, http.StatusOK, m)
}

func (s *server) handleProcessesList(w http.ResponseWriter, r *http.Request) {
	processes, err := s.catalog.ListProcesses(r.Context())
	if err != nil {
		s.log.Error("list processes", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load processes")
		return
	}
	writeJSON(w, http.StatusOK, processes)
}

func (s *server) handleProcessGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.GetProcessDefaults(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.catalogError(w, err, "failed to load process")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleProcessesUpsert(w http.ResponseWriter, r *http.Request) {
	var p catalog.ProcessEntry
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.catalog.UpsertProcess(r.Context(), p); err != nil {
		s.catalogError(w, err, "failed to save process")
		return
	}
	s.log.Info("process saved", zap.String("code", p.Code), zap.String("category", string(p.Category)))
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleDefaultsGet(w http.ResponseWriter, r *http.Request) {
	d, err := s.catalog.GetDefaults(r.Context())
	if err != nil {
		s.log.Error("load defaults", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load defaults")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *server) handleDefaultsUpdate(w http.ResponseWriter, r *http.Request) {
	var d catalog.Defaults
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.catalog.UpdateDefaults(r.Context(), d); err != nil {
		s.catalogError(w, err, "failed to save defaults")
		return
	}
	s.log.Info("defaults updated")
	writeJSON(w, http.StatusOK, d)
}

// catalogError maps catalog errors to responses: unknown codes to 404,
// validation failures to 400, anything else to 500.
func (s *server) catalogError(w http.ResponseWriter, err error, msg string) {
	var verr *catalog.ValidationError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	default:
		s.log.Error(msg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, msg)
	}
}
