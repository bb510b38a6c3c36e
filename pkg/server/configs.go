package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/pipeline"
)

func (s *Server) requireRepo(w http.ResponseWriter, r *http.Request) bool {
	if s.repo == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "server has no storage configured"))
		return false
	}
	return true
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	if !s.requireRepo(w, r) {
		return
	}
	configs, err := s.repo.List(r.Context(), r.URL.Query().Get("connection"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if configs == nil {
		configs = []diagram.Config{}
	}
	writeJSON(w, http.StatusOK, configs)
}

// loadConfig loads the config named by the {id} path parameter, writing a
// 404 when it does not exist.
func (s *Server) loadConfig(w http.ResponseWriter, r *http.Request) (diagram.Config, bool) {
	id := chi.URLParam(r, "id")
	cfg, found, err := s.repo.Load(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return cfg, false
	}
	if !found {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "diagram %s not found", id))
		return cfg, false
	}
	return cfg, true
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if !s.requireRepo(w, r) {
		return
	}
	if cfg, ok := s.loadConfig(w, r); ok {
		writeJSON(w, http.StatusOK, cfg)
	}
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	if !s.requireRepo(w, r) {
		return
	}
	var cfg diagram.Config
	if err := decode(w, r, &cfg); err != nil {
		s.writeError(w, r, err)
		return
	}
	cfg.ID = ""
	s.save(w, r, cfg, http.StatusCreated)
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	if !s.requireRepo(w, r) {
		return
	}
	var cfg diagram.Config
	if err := decode(w, r, &cfg); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if cfg.ID != "" && cfg.ID != id {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "body id %q does not match path id %q", cfg.ID, id))
		return
	}
	cfg.ID = id

	// Keep the original creation time on replace.
	if prev, found, err := s.repo.Load(r.Context(), id); err == nil && found {
		cfg.CreatedAt = prev.CreatedAt
	}
	s.save(w, r, cfg, http.StatusOK)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, cfg diagram.Config, status int) {
	if cfg.Name == "" {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "diagram name cannot be empty"))
		return
	}
	saved, err := s.repo.Save(r.Context(), cfg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, saved)
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if !s.requireRepo(w, r) {
		return
	}
	if err := s.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportConfig(w http.ResponseWriter, r *http.Request) {
	if !s.requireRepo(w, r) {
		return
	}
	cfg, ok := s.loadConfig(w, r)
	if !ok {
		return
	}
	display := cfg.Options
	s.export(w, r, pipeline.Options{
		ConnectionID: cfg.ConnectionID,
		Schemas:      cfg.Schemas,
		Include:      cfg.Include,
		Exclude:      cfg.Exclude,
		Display:      &display,
		Algorithm:    cfg.Layout.Algorithm,
		Positions:    cfg.Layout.NodePositions,
	})
}
