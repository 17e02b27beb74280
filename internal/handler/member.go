package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sakif/pollboard/internal/apperror"
	"github.com/sakif/pollboard/internal/model"
)

type MemberService interface {
	ListMembers(ctx context.Context, page, pageSize int) (*model.MemberPage, error)
}

// MemberHandler serves the member directory.
type MemberHandler struct {
	members MemberService
}

func NewMemberHandler(members MemberService) *MemberHandler {
	return &MemberHandler{members: members}
}

// HandleList returns one page of members.
//
// HTTP: GET /api/members?page=2&pageSize=20 (RequireAuth)
func (h *MemberHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "pageSize")
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.members.ListMembers(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}
