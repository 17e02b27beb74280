package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/pollboard/internal/apperror"
	"github.com/sakif/pollboard/internal/auth"
	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/service"
)

const (
	stateCookie = "oauth_state"
	stateMaxAge = 600 // seconds the user has to approve at the provider
)

// Authenticator is the part of service.AuthService the handler needs.
type Authenticator interface {
	LoginOrRegister(ctx context.Context, id *auth.Identity) (*service.AuthResult, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// AuthHandler runs the OAuth sign-in flow for every configured provider and
// manages the session cookie.
type AuthHandler struct {
	providers     map[string]auth.Provider
	auth          Authenticator
	tokens        *auth.TokenService
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(
	providers []auth.Provider,
	authn Authenticator,
	tokens *auth.TokenService,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	byName := make(map[string]auth.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &AuthHandler{
		providers:     byName,
		auth:          authn,
		tokens:        tokens,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

func (h *AuthHandler) provider(r *http.Request) (auth.Provider, error) {
	name := chi.URLParam(r, "provider")
	p, ok := h.providers[name]
	if !ok {
		return nil, apperror.NotFound("sign-in provider", name)
	}
	return p, nil
}

// HandleLogin redirects the browser to the provider.
//
// HTTP: GET /auth/{provider}/login
//
// A random state is stored in a short-lived HttpOnly cookie and sent along;
// the callback only proceeds when the two match, so a forged callback from
// another site cannot sign the browser into someone else's account.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	p, err := h.provider(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, p.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes sign-in.
//
// HTTP: GET /auth/{provider}/callback?code=...&state=...
//
//  1. check state against the cookie (single use)
//  2. honour a denial from the provider
//  3. exchange the code for the user's identity
//  4. upsert the account and set the session cookie
//  5. redirect to the app
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	p, err := h.provider(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || query.Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch", slog.String("provider", p.Name()))
		writeError(w, r, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if denied := query.Get("error"); denied != "" {
		h.logger.Info("auth callback: authorization denied",
			slog.String("provider", p.Name()),
			slog.String("error", denied),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := query.Get("code")
	if code == "" {
		writeError(w, r, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	identity, err := p.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: exchange failed",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()),
		)
		writeError(w, r, apperror.Unauthorized("authentication failed"))
		return
	}

	result, err := h.auth.LoginOrRegister(r.Context(), identity)
	if err != nil {
		writeError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.tokens.TTL(), h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session cookie. Sessions are stateless, so this is
// all logging out means.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /api/me (RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthorized("valid authentication required"))
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
