package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/markbates/goth/gothic"

	"habit-stacker-backend/db"
	"habit-stacker-backend/internal/auth"
)

type contextKey string

const userKey contextKey = "user"

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.healthz)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/{provider}/callback", s.getAuthCallbackFunction)
		r.Get("/{provider}", s.beginAuthProviderCallback)
		r.Get("/logout/{provider}", s.logOutFunction)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)

		r.Route("/api", func(r chi.Router) {
			r.Get("/me", s.getMe)

			r.Get("/habits", s.getHabits)
			r.Post("/habits", s.createHabit)
			r.Get("/habits/{id}", s.getHabit)
			r.Put("/habits/{id}", s.updateHabit)
			r.Delete("/habits/{id}", s.deleteHabit)
			r.Put("/habits/{id}/completions/{date}", s.markCompletion)
			r.Delete("/habits/{id}/completions/{date}", s.unmarkCompletion)
			r.Get("/habits/{id}/stats", s.getHabitStats)

			r.Get("/habit-insights", s.getHabitInsights)
			r.Get("/daily-habit-details", s.getDailyHabitDetails)

			r.Get("/areas", s.getAreas)
			r.Post("/areas", s.createArea)
			r.Delete("/areas/{id}", s.deleteArea)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.AdminMiddleware)
				r.Get("/users", s.adminListUsers)
				r.Post("/users/{id}/ban", s.adminBanUser)
				r.Post("/users/{id}/unban", s.adminUnbanUser)
				r.Delete("/users/{id}", s.adminDeleteUser)
				r.Get("/users/{id}/daily-habit-details", s.adminDailyHabitDetails)
				r.Get("/active-users", s.adminActiveUsers)
				r.Get("/analytics", s.adminAnalytics)
				r.Post("/purge", s.adminPurge)
			})
		})
	})
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := s.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		s.log.Error("Health check failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getAuthCallbackFunction(w http.ResponseWriter, r *http.Request) {
	user, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		s.log.Warn("Auth error", "err", err)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	token := auth.NewSessionToken()
	dbUser, err := s.store.UpsertUser(r.Context(), db.User{
		Username:     user.Name,
		Email:        user.Email,
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		SessionToken: token,
	}, auth.NewPublicUserID())
	if err != nil {
		s.fail(w, err)
		return
	}
	if dbUser.Banned {
		writeError(w, http.StatusForbidden, "account is banned")
		return
	}

	auth.SetSessionCookie(w, token, s.cfg.IsProduction())
	s.log.Info("User signed in", "user_id", dbUser.UserID)
	http.Redirect(w, r, auth.CallbackRedirect(s.cfg.FrontendURL, dbUser.Username, dbUser.Email, dbUser.UserID), http.StatusTemporaryRedirect)
}

func (s *Server) logOutFunction(w http.ResponseWriter, r *http.Request) {
	if err := gothic.Logout(w, r); err != nil {
		s.log.Debug("Provider logout", "err", err)
	}
	if err := s.store.EndSession(r.Context(), auth.SessionToken(r)); err != nil {
		s.log.Error("Ending session", "err", err)
	}
	auth.ClearSessionCookie(w, s.cfg.IsProduction())
	http.Redirect(w, r, s.cfg.FrontendURL, http.StatusTemporaryRedirect)
}

func (s *Server) beginAuthProviderCallback(w http.ResponseWriter, r *http.Request) {
	gothic.BeginAuthHandler(w, r)
}

func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.store.UserBySession(r.Context(), auth.SessionToken(r))
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err != nil {
			s.fail(w, err)
			return
		}
		if user.Banned {
			writeError(w, http.StatusForbidden, "account is banned")
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(s.cfg, currentUser(r).Email) {
			writeError(w, http.StatusForbidden, "access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentUser is only valid behind AuthMiddleware.
func currentUser(r *http.Request) *db.User {
	return r.Context().Value(userKey).(*db.User)
}

func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       u.UserID,
		"username": u.Username,
		"email":    u.Email,
		"isAdmin":  auth.IsAdmin(s.cfg, u.Email),
	})
}
