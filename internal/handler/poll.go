package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/pollboard/internal/auth"
	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/service"
)

// PollService is the part of service.PollService the handlers need.
type PollService interface {
	CreatePoll(ctx context.Context, ownerID string, in service.CreatePollInput) (*model.Poll, error)
	ListPolls(ctx context.Context, viewerID string) ([]model.PollView, error)
	DeletePoll(ctx context.Context, pollID, requesterID string) error
}

// VoteService is the part of service.VoteService the handlers need.
type VoteService interface {
	SubmitVote(ctx context.Context, userID, pollID, optionID string) (*model.VoteResult, error)
}

// PollHandler serves /api/polls.
type PollHandler struct {
	polls  PollService
	votes  VoteService
	logger *slog.Logger
}

func NewPollHandler(polls PollService, votes VoteService, logger *slog.Logger) *PollHandler {
	return &PollHandler{polls: polls, votes: votes, logger: logger}
}

type createPollRequest struct {
	Title       string   `json:"title"`
	Options     []string `json:"options"`
	IsAnonymous bool     `json:"isAnonymous"`
}

type voteRequest struct {
	OptionID string `json:"optionId"`
}

// HandleList returns every poll as seen by the caller.
//
// HTTP: GET /api/polls (OptionalAuth)
func (h *PollHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	views, err := h.polls.ListPolls(r.Context(), viewerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleCreate creates a poll owned by the caller.
//
// HTTP: POST /api/polls (RequireAuth)
// BODY: {"title": "Best color?", "options": ["Red", "Blue"], "isAnonymous": false}
func (h *PollHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createPollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	poll, err := h.polls.CreatePoll(r.Context(), userID, service.CreatePollInput{
		Title:       req.Title,
		Options:     req.Options,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.NewPollView(*poll, userID, ""))
}

// HandleDelete deletes one of the caller's polls.
//
// HTTP: DELETE /api/polls/{pollID} (RequireAuth)
func (h *PollHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.polls.DeletePoll(r.Context(), chi.URLParam(r, "pollID"), userID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleVote casts the caller's vote.
//
// HTTP: POST /api/polls/{pollID}/votes (RequireAuth)
// BODY: {"optionId": "..."}
// 200:  {"pollId": "...", "optionId": "...", "totalVotes": 3, "voteCount": 1}
// 409:  already_voted
func (h *PollHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.votes.SubmitVote(r.Context(), userID, chi.URLParam(r, "pollID"), req.OptionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
