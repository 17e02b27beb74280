package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/pollboard/internal/apperror"
	"github.com/sakif/pollboard/internal/metrics"
	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/repository"
)

// VoteService admits votes.
type VoteService struct {
	tx    repository.TxManager
	polls repository.PollRepository
	votes repository.VoteRepository
	deps
}

func NewVoteService(
	tx repository.TxManager,
	polls repository.PollRepository,
	votes repository.VoteRepository,
	m *metrics.Metrics,
	logger *slog.Logger,
) *VoteService {
	return &VoteService{
		tx:    tx,
		polls: polls,
		votes: votes,
		deps:  newDeps(logger, m),
	}
}

// SubmitVote records userID's vote for optionID on pollID.
//
// All steps share one transaction:
//  1. an existing vote on the poll fails fast with ErrDuplicateVote
//  2. the vote row is inserted; the (user, poll) unique constraint is what
//     actually guarantees one vote per user when two requests race past step 1
//  3. polls.total_votes is incremented in place
//  4. options.vote_count is incremented in place, keyed on (option, poll), so
//     an option of another poll matches no row and fails with ErrNotFound
//  5. commit; a conflict surfacing there is also reported as ErrDuplicateVote
//
// The counts returned are read after commit.
func (s *VoteService) SubmitVote(ctx context.Context, userID, pollID, optionID string) (*model.VoteResult, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("sign in to vote")
	}
	pollID = strings.TrimSpace(pollID)
	optionID = strings.TrimSpace(optionID)
	if pollID == "" || optionID == "" {
		s.metrics.ObserveVote(metrics.VoteInvalid)
		return nil, apperror.ValidationFailed("optionId", "Missing pollId or optionId")
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		voted, err := s.votes.HasVoted(ctx, userID, pollID)
		if err != nil {
			return err
		}
		if voted {
			return apperror.DuplicateVote(pollID)
		}

		if err := s.votes.InsertVote(ctx, &model.Vote{
			UserID:    userID,
			PollID:    pollID,
			OptionID:  optionID,
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}
		if err := s.polls.IncrementPollVotes(ctx, pollID); err != nil {
			return err
		}
		return s.polls.IncrementOptionVotes(ctx, pollID, optionID)
	})
	if err != nil {
		// A uniqueness failure reported only at commit can only be this
		// user's vote on this poll.
		if errors.Is(err, apperror.ErrConflict) {
			err = apperror.DuplicateVote(pollID)
		}
		s.observeVoteError(err, userID, pollID)
		return nil, err
	}

	total, count, err := s.polls.GetVoteCounts(ctx, pollID, optionID)
	if err != nil {
		// The vote is committed; only the read-back failed.
		s.metrics.ObserveVote(metrics.VoteAccepted)
		return nil, fmt.Errorf("reading counts after vote on poll %s: %w", pollID, err)
	}

	s.metrics.ObserveVote(metrics.VoteAccepted)
	s.logger.Info("vote recorded",
		slog.String("pollID", pollID),
		slog.String("optionID", optionID),
		slog.String("userID", userID),
	)

	return &model.VoteResult{
		PollID:     pollID,
		OptionID:   optionID,
		TotalVotes: total,
		VoteCount:  count,
	}, nil
}

func (s *VoteService) observeVoteError(err error, userID, pollID string) {
	switch {
	case errors.Is(err, apperror.ErrDuplicateVote):
		s.metrics.ObserveVote(metrics.VoteDuplicate)
	case errors.Is(err, apperror.ErrNotFound):
		s.metrics.ObserveVote(metrics.VoteNotFound)
	default:
		s.metrics.ObserveVote(metrics.VoteError)
		s.logger.Error("vote failed",
			slog.String("pollID", pollID),
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
	}
}
