package handler

import (
	"context"
	"net/http"

	"github.com/sakif/pollboard/internal/auth"
	"github.com/sakif/pollboard/internal/model"
)

type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	DeleteAccount(ctx context.Context, userID string) error
}

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	profiles      ProfileService
	secureCookies bool
}

func NewProfileHandler(profiles ProfileService, secureCookies bool) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, secureCookies: secureCookies}
}

// HandleGet returns the caller's polls, votes and stats.
//
// HTTP: GET /api/profile (RequireAuth)
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleDelete deletes the caller's account and signs them out.
//
// HTTP: DELETE /api/profile (RequireAuth)
func (h *ProfileHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.profiles.DeleteAccount(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	auth.ClearSessionCookie(w, h.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}
