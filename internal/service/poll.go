package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/pollboard/internal/apperror"
	"github.com/sakif/pollboard/internal/metrics"
	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/repository"
)

const (
	MaxTitleLength  = 200
	MaxOptionLength = 100
	MinOptions      = 2
	MaxOptions      = 20
)

// CreatePollInput is the user-supplied part of a new poll.
type CreatePollInput struct {
	Title       string
	Options     []string
	IsAnonymous bool
}

// PollService creates, lists, deletes and expires polls.
type PollService struct {
	tx    repository.TxManager
	polls repository.PollRepository
	votes repository.VoteRepository
	deps
}

func NewPollService(
	tx repository.TxManager,
	polls repository.PollRepository,
	votes repository.VoteRepository,
	m *metrics.Metrics,
	logger *slog.Logger,
) *PollService {
	return &PollService{
		tx:    tx,
		polls: polls,
		votes: votes,
		deps:  newDeps(logger, m),
	}
}

// CreatePoll validates in and stores the poll with its options, all vote
// counters at zero. Nothing is written when validation fails.
//
// Title and option texts are trimmed and blank options dropped before the
// checks run, so ["Red", " ", "Blue"] is a valid two-option poll.
func (s *PollService) CreatePoll(ctx context.Context, ownerID string, in CreatePollInput) (*model.Poll, error) {
	if ownerID == "" {
		return nil, apperror.Unauthorized("sign in to create a poll")
	}

	title, options, err := validatePoll(in)
	if err != nil {
		return nil, err
	}

	poll := &model.Poll{
		Title:       title,
		IsAnonymous: in.IsAnonymous,
		CreatedByID: ownerID,
		CreatedAt:   s.now(),
	}
	for _, text := range options {
		poll.Options = append(poll.Options, model.Option{Text: text})
	}

	if err := s.polls.CreatePoll(ctx, poll); err != nil {
		return nil, fmt.Errorf("creating poll: %w", err)
	}

	s.metrics.PollCreated()
	s.logger.Info("poll created",
		slog.String("pollID", poll.ID),
		slog.String("ownerID", ownerID),
		slog.Int("options", len(poll.Options)),
	)

	// Read back so the creator's name is filled in.
	created, err := s.polls.GetPoll(ctx, poll.ID)
	if err != nil {
		return nil, fmt.Errorf("reading created poll: %w", err)
	}
	return created, nil
}

func validatePoll(in CreatePollInput) (string, []string, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return "", nil, apperror.ValidationFailed("title", "Please enter a poll title")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", nil, apperror.ValidationFailed("title",
			fmt.Sprintf("Poll title must be %d characters or less", MaxTitleLength))
	}

	options := make([]string, 0, len(in.Options))
	seen := make(map[string]struct{}, len(in.Options))
	for _, raw := range in.Options {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		if utf8.RuneCountInString(text) > MaxOptionLength {
			return "", nil, apperror.ValidationFailed("options",
				fmt.Sprintf("Each option must be %d characters or less", MaxOptionLength))
		}
		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			return "", nil, apperror.ValidationFailed("options",
				fmt.Sprintf("Option %q is listed more than once", text))
		}
		seen[key] = struct{}{}
		options = append(options, text)
	}

	if len(options) < MinOptions {
		return "", nil, apperror.ValidationFailed("options", "Please add at least two options")
	}
	if len(options) > MaxOptions {
		return "", nil, apperror.ValidationFailed("options",
			fmt.Sprintf("A poll can have at most %d options", MaxOptions))
	}

	return title, options, nil
}

// ListPolls returns every poll, newest first, as seen by viewerID. An empty
// viewerID is an anonymous visitor: nothing is marked voted or owned.
func (s *PollService) ListPolls(ctx context.Context, viewerID string) ([]model.PollView, error) {
	polls, err := s.polls.ListPolls(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing polls: %w", err)
	}

	voted := map[string]string{}
	if viewerID != "" {
		voted, err = s.votes.VotedOptions(ctx, viewerID)
		if err != nil {
			return nil, fmt.Errorf("loading votes of viewer: %w", err)
		}
	}

	views := make([]model.PollView, 0, len(polls))
	for _, p := range polls {
		views = append(views, model.NewPollView(p, viewerID, voted[p.ID]))
	}
	return views, nil
}

// DeletePoll removes the poll with its options and votes. Only the creator
// may delete a poll; the ownership check and the delete share a transaction.
func (s *PollService) DeletePoll(ctx context.Context, pollID, requesterID string) error {
	pollID = strings.TrimSpace(pollID)
	if pollID == "" {
		return apperror.ValidationFailed("pollId", "Missing pollId")
	}
	if requesterID == "" {
		return apperror.Unauthorized("sign in to delete a poll")
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		poll, err := s.polls.GetPoll(ctx, pollID)
		if err != nil {
			return err
		}
		if poll.CreatedByID != requesterID {
			return apperror.Forbidden("You can only delete your own polls")
		}
		return s.polls.DeletePoll(ctx, pollID)
	})
	if err != nil {
		return err
	}

	s.metrics.PollsRemoved(metrics.DeletedByOwner, 1)
	s.logger.Info("poll deleted", slog.String("pollID", pollID), slog.String("by", requesterID))
	return nil
}

// SweepExpired deletes every poll created more than maxAge ago and returns
// how many went. Re-running it right away deletes nothing.
func (s *PollService) SweepExpired(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, apperror.ValidationFailed("maxAge", "retention age must be positive")
	}

	cutoff := s.now().Add(-maxAge)
	n, err := s.polls.DeletePollsCreatedBefore(ctx, cutoff)
	s.metrics.SweepFinished(err)
	if err != nil {
		return 0, fmt.Errorf("sweeping polls older than %s: %w", cutoff.Format(time.RFC3339), err)
	}

	s.metrics.PollsRemoved(metrics.DeletedExpired, n)
	if n > 0 {
		s.logger.Info("expired polls deleted", slog.Int64("count", n), slog.Time("cutoff", cutoff))
	}
	return n, nil
}
