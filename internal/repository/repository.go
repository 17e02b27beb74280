package repository

import (
	"context"
	"time"

	"github.com/sakif/pollboard/internal/model"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type ListOptions struct {
	Limit  int
	Offset int
}

// Normalize clamps Limit to [1, MaxPageSize+1] (0 means DefaultPageSize) and
// Offset to >= 0. The extra row lets a caller serving a full MaxPageSize page
// tell whether another page follows.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultPageSize
	}
	if o.Limit > MaxPageSize+1 {
		o.Limit = MaxPageSize + 1
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// TxManager runs fn inside one storage transaction. Repository calls made
// with the ctx passed to fn join that transaction. fn returning an error (or
// panicking) rolls everything back.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	// UpsertUser inserts or refreshes the account identified by
	// (Provider, ProviderID) and fills in ID and timestamps.
	UpsertUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type PollRepository interface {
	// CreatePoll writes the poll and its options. IDs are assigned here.
	CreatePoll(ctx context.Context, poll *model.Poll) error
	GetPoll(ctx context.Context, id string) (*model.Poll, error)
	// ListPolls returns all polls newest first, options in creation order.
	ListPolls(ctx context.Context) ([]model.Poll, error)
	ListPollsByOwner(ctx context.Context, ownerID string) ([]model.Poll, error)
	DeletePoll(ctx context.Context, id string) error
	DeletePollsByOwner(ctx context.Context, ownerID string) (int64, error)
	DeletePollsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	IncrementPollVotes(ctx context.Context, pollID string) error
	IncrementOptionVotes(ctx context.Context, pollID, optionID string) error
	GetVoteCounts(ctx context.Context, pollID, optionID string) (totalVotes, voteCount int, err error)
}

type VoteRepository interface {
	HasVoted(ctx context.Context, userID, pollID string) (bool, error)
	// InsertVote maps a (user, poll) unique violation to apperror.ErrDuplicateVote
	// and a dangling poll/option reference to apperror.ErrNotFound.
	InsertVote(ctx context.Context, vote *model.Vote) error
	// VotedOptions returns pollID -> optionID for every vote of the user.
	VotedOptions(ctx context.Context, userID string) (map[string]string, error)
	ListVotesByUser(ctx context.Context, userID string) ([]model.CastVote, error)
	// RetractVotesByUser deletes the user's votes and decrements the
	// counters they contributed to.
	RetractVotesByUser(ctx context.Context, userID string) (int64, error)
}

// Store is a complete storage backend.
type Store interface {
	TxManager
	UserRepository
	PollRepository
	VoteRepository
	Ping(ctx context.Context) error
	Close() error
}
