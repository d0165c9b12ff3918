package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/textfilter/internal/filters"
	"github.com/hyperjump/textfilter/internal/models"
	"github.com/hyperjump/textfilter/internal/templates"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListFilters(w http.ResponseWriter, r *http.Request) {
	list := models.FilterList{Filters: []models.FilterInfo{}}
	for _, f := range s.filters.Filters() {
		list.Filters = append(list.Filters, models.FilterInfo{Name: f.Name, Description: f.Description})
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleApplyFilter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req models.FilterRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("apply filter request", zap.String("filter", name), zap.Int("args", len(req.Args)))
	out, err := s.filters.Apply(name, req.Input, req.Args...)
	switch {
	case errors.Is(err, filters.ErrUnknownFilter):
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, filters.ErrInvalidArgument):
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("filter failed", zap.String("filter", name), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.FilterResult{
		Filter: name,
		Input:  filters.Text(req.Input),
		Output: out,
	})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.respondError(w, http.StatusNotImplemented, "templates not configured")
		return
	}
	names := s.templates.Names()
	if names == nil {
		names = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"templates": names})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.respondError(w, http.StatusNotImplemented, "templates not configured")
		return
	}
	name := chi.URLParam(r, "name")
	var data map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("render request", zap.String("template", name))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.templates.Render(w, name, data)
	switch {
	case errors.Is(err, templates.ErrTemplateNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case err != nil:
		s.logger.Error("render failed", zap.String("template", name), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
