package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/quillchat/quill/internal/auth"
	"github.com/quillchat/quill/internal/log"
)

const stateCookie = "quill_oauth_state"

// Auth handles the sign-in flow: redirect to the provider, resolve the
// callback to a user row, and manage the session cookie.
type Auth struct {
	provider IdentityProvider
	sessions *auth.Sessions
	store    Store
	secure   bool
	logger   log.Logger
}

// AuthConfig configures the Auth handler.
type AuthConfig struct {
	Provider IdentityProvider
	Sessions *auth.Sessions
	Store    Store
	// SecureCookies marks cookies Secure; disable for local HTTP development.
	SecureCookies bool
	Logger        log.Logger
}

// NewAuth creates the Auth handler.
func NewAuth(cfg AuthConfig) *Auth {
	return &Auth{
		provider: cfg.Provider,
		sessions: cfg.Sessions,
		store:    cfg.Store,
		secure:   cfg.SecureCookies,
		logger:   cfg.Logger,
	}
}

// Login redirects the browser to the provider's consent page with a
// fresh anti-forgery state bound to a short-lived cookie.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		h.logger.Error("generating oauth state", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.provider.LoginURL(state), http.StatusFound)
}

// Callback completes the flow: verifies state, exchanges the code,
// upserts the user, and sets the session cookie.
func (h *Auth) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeError(w, h.logger, http.StatusBadRequest, "state mismatch")
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name: stateCookie, Value: "", Path: "/", MaxAge: -1,
		HttpOnly: true, Secure: h.secure, SameSite: http.SameSiteLaxMode,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, h.logger, http.StatusBadRequest, "missing authorization code")
		return
	}

	identity, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn("oauth exchange failed", "error", err)
		writeError(w, h.logger, http.StatusBadGateway, "sign-in failed")
		return
	}

	user, err := h.store.EnsureUser(r.Context(), identity.SubjectID, identity.Email, identity.Name)
	if err != nil {
		h.logger.Error("ensuring user", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := h.sessions.Issue(user.ID)
	if err != nil {
		h.logger.Error("issuing session", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("user signed in", "user", user.ID)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout clears the session cookie.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name: auth.SessionCookie, Value: "", Path: "/", MaxAge: -1,
		HttpOnly: true, Secure: h.secure, SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user's profile.
func (h *Auth) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "authentication required")
		return
	}
	user, err := h.store.User(r.Context(), userID)
	if err != nil {
		h.logger.Error("fetching user", "user", userID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
	})
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
