package auth

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"golang.org/x/exp/rand"

	"habit-stacker-backend/internal/config"
)

const (
	// CookieName carries the session token issued after a provider login.
	CookieName = "auth_token"
	cookieTTL  = 86400
)

// NewAuth installs the OAuth providers and the gothic session store.
func NewAuth(cfg config.Config) {
	maxAge := 86400 * 30 // 30 days

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store

	if cfg.GoogleClientID != "" {
		goth.UseProviders(
			google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, "email", "profile"),
		)
	}
	gothic.GetProviderName = ProviderName
}

// ProviderName reads the provider from the chi route.
func ProviderName(req *http.Request) (string, error) {
	provider := chi.URLParam(req, "provider")
	if provider != "" {
		return provider, nil
	}
	return "", fmt.Errorf("no provider specified")
}

// NewSessionToken returns an opaque token for the auth cookie.
func NewSessionToken() string {
	return uuid.NewString()
}

// NewPublicUserID generates a random 9-digit id shown to the frontend.
func NewPublicUserID() uint {
	return uint(rand.Intn(900000000) + 100000000)
}

func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   cookieTTL,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionToken reads the token from the cookie, falling back to a bearer
// header for non-browser clients.
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// CallbackRedirect builds the frontend URL the provider callback lands on.
// Tokens stay in the HttpOnly cookie and are never put in the query string.
func CallbackRedirect(frontend, username, email string, publicID uint) string {
	q := url.Values{}
	q.Set("username", username)
	q.Set("email", email)
	q.Set("id", fmt.Sprint(publicID))
	return strings.TrimRight(frontend, "/") + "/auth/callback?" + q.Encode()
}

// IsAdmin compares case-insensitively; an empty admin email matches nobody.
func IsAdmin(cfg config.Config, email string) bool {
	return cfg.AdminEmail != "" && strings.EqualFold(cfg.AdminEmail, strings.TrimSpace(email))
}
