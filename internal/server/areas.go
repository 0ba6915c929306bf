package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"habit-stacker-backend/db"
	"habit-stacker-backend/internal/habit"
)

type areaRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func (s *Server) getAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := s.store.ListAreas(r.Context(), currentUser(r).ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"areas": areas})
}

func (s *Server) createArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.fail(w, fmt.Errorf("%w: area name is required", habit.ErrInvalidInput))
		return
	}
	area := &db.Area{Name: req.Name, Icon: req.Icon}
	if err := s.store.CreateArea(r.Context(), currentUser(r).ID, area); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"area": area})
}

func (s *Server) deleteArea(w http.ResponseWriter, r *http.Request) {
	removed, err := s.store.DeleteArea(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if removed == nil {
		removed = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Area has been deleted successfully",
		"deletedHabits": removed,
	})
}
