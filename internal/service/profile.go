package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/pollboard/internal/apperror"
	"github.com/sakif/pollboard/internal/metrics"
	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/repository"
)

// ProfileService aggregates a user's activity and deletes accounts.
type ProfileService struct {
	tx    repository.TxManager
	users repository.UserRepository
	polls repository.PollRepository
	votes repository.VoteRepository
	deps
}

func NewProfileService(
	tx repository.TxManager,
	users repository.UserRepository,
	polls repository.PollRepository,
	votes repository.VoteRepository,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		tx:    tx,
		users: users,
		polls: polls,
		votes: votes,
		deps:  newDeps(logger, m),
	}
}

// GetProfile returns the user with the polls they created and the votes they
// cast, both newest first.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("sign in to view your profile")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	polls, err := s.polls.ListPollsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing polls of %s: %w", userID, err)
	}

	votes, err := s.votes.ListVotesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing votes of %s: %w", userID, err)
	}

	return &model.Profile{
		User:         *user,
		CreatedPolls: polls,
		VotesCast:    votes,
		Stats: model.ProfileStats{
			PollsCreated:  len(polls),
			VotesCast:     len(votes),
			Participation: len(polls) + len(votes),
		},
	}, nil
}

// DeleteAccount removes the user and everything they own in one transaction.
//
// Votes are retracted first so the counters of other users' polls drop with
// them; the user's own polls then go (cascading to their options and votes),
// and finally the user row.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID string) error {
	if userID == "" {
		return apperror.Unauthorized("sign in to delete your account")
	}

	var retracted, deleted int64
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if retracted, err = s.votes.RetractVotesByUser(ctx, userID); err != nil {
			return err
		}
		if deleted, err = s.polls.DeletePollsByOwner(ctx, userID); err != nil {
			return err
		}
		return s.users.DeleteUser(ctx, userID)
	})
	if err != nil {
		return err
	}

	s.metrics.PollsRemoved(metrics.DeletedByAccount, deleted)
	s.logger.Info("account deleted",
		slog.String("userID", userID),
		slog.Int64("votesRetracted", retracted),
		slog.Int64("pollsDeleted", deleted),
	)
	return nil
}
