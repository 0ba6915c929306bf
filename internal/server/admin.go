package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"habit-stacker-backend/db"
	"habit-stacker-backend/internal/habit"
)

type adminUser struct {
	ID        uint   `json:"id"`
	PublicID  uint   `json:"userId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	Banned    bool   `json:"banned"`
	IsActive  bool   `json:"isActive"`
}

func toAdminUsers(users []db.User) []adminUser {
	out := make([]adminUser, 0, len(users))
	for _, u := range users {
		out = append(out, adminUser{
			ID:        u.ID,
			PublicID:  u.UserID,
			Email:     u.Email,
			FirstName: u.Username,
			Banned:    u.Banned,
			IsActive:  u.IsActive,
		})
	}
	return out
}

func userIDParam(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: user id", habit.ErrInvalidInput)
	}
	return uint(id), nil
}

func (s *Server) adminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": toAdminUsers(users)})
}

func (s *Server) adminActiveUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListActiveUsers(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": toAdminUsers(users)})
}

func (s *Server) adminBanUser(w http.ResponseWriter, r *http.Request) {
	s.setBanned(w, r, true)
}

func (s *Server) adminUnbanUser(w http.ResponseWriter, r *http.Request) {
	s.setBanned(w, r, false)
}

func (s *Server) setBanned(w http.ResponseWriter, r *http.Request, banned bool) {
	id, err := userIDParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	if banned && id == currentUser(r).ID {
		s.fail(w, fmt.Errorf("%w: cannot ban yourself", habit.ErrInvalidInput))
		return
	}
	if err := s.store.SetBanned(r.Context(), id, banned); err != nil {
		s.fail(w, err)
		return
	}
	action := "unbanned"
	if banned {
		action = "banned"
	}
	s.log.Info("User "+action, "id", id, "by", currentUser(r).ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "User " + action + " successfully"})
}

func (s *Server) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	if id == currentUser(r).ID {
		s.fail(w, fmt.Errorf("%w: cannot delete yourself", habit.ErrInvalidInput))
		return
	}
	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	s.log.Info("User deleted", "id", id, "by", currentUser(r).ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "User deleted successfully"})
}

func (s *Server) adminDailyHabitDetails(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	if _, err := s.store.GetUser(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	s.writeDailyDetails(w, r, id)
}

func (s *Server) adminAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.Analytics(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) adminPurge(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.PurgeSoftDeleted(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.log.Info("Purged soft deleted rows", "habits", res.Habits, "areas", res.Areas)
	writeJSON(w, http.StatusOK, res)
}
