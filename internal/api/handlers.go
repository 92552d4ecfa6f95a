package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aerolab/tunnelcore/internal/storage"
)

// handleGetSettings returns the current shared state snapshot.
func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

// handleListModels returns every car model in the catalogue.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.models.List(r.Context())
	if err != nil {
		s.logger.Error("listing car models", "error", err)
		writeInternalError(w, "failed to list car models")
		return
	}
	writeJSON(w, http.StatusOK, models)
}

// handleGetModel returns one car model by ID.
func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	model, err := s.models.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrModelNotFound) {
			writeNotFound(w, "car model not found")
			return
		}
		s.logger.Error("looking up car model", "model_id", id, "error", err)
		writeInternalError(w, "failed to load car model")
		return
	}
	writeJSON(w, http.StatusOK, model)
}

// handleListModelTests returns recorded samples for one model, newest first.
// An optional ?limit=N query bounds the result; the repository default
// applies otherwise.
func (s *Server) handleListModelTests(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if _, err := s.models.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrModelNotFound) {
			writeNotFound(w, "car model not found")
			return
		}
		s.logger.Error("looking up car model", "model_id", id, "error", err)
		writeInternalError(w, "failed to load car model")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	samples, err := s.tests.ListByModel(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("listing test samples", "model_id", id, "error", err)
		writeInternalError(w, "failed to list test samples")
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

// parseID extracts the {id} route parameter. Writes a 400 and returns
// false when it is not a valid integer.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeBadRequest(w, "id must be an integer")
		return 0, false
	}
	return id, true
}
