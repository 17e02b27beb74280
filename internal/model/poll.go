package model

import "time"

// Poll is a question with a fixed set of options.
//
// TotalVotes is a running aggregate: it always equals the number of Vote rows
// for the poll. It is only ever changed by an in-place increment inside the
// vote transaction (or a decrement when an account is deleted).
type Poll struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	IsAnonymous bool      `json:"isAnonymous"`
	CreatedByID string    `json:"createdById"`
	CreatorName string    `json:"-"`
	TotalVotes  int       `json:"totalVotes"`
	CreatedAt   time.Time `json:"createdAt"`
	Options     []Option  `json:"options"`
}

// Option is one selectable choice within a Poll. VoteCount equals the number
// of Vote rows pointing at it.
type Option struct {
	ID        string `json:"id"`
	PollID    string `json:"pollId"`
	Text      string `json:"text"`
	VoteCount int    `json:"votes"`
	Position  int    `json:"-"`
}

// Vote binds one user to one option of one poll. Votes are never updated.
type Vote struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PollID    string    `json:"pollId"`
	OptionID  string    `json:"optionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CastVote is a Vote joined with the poll title and option text, as shown on
// the voter's profile.
type CastVote struct {
	ID         string    `json:"id"`
	PollID     string    `json:"pollId"`
	PollTitle  string    `json:"pollTitle"`
	OptionID   string    `json:"optionId"`
	OptionText string    `json:"optionText"`
	CreatedAt  time.Time `json:"createdAt"`
}

// VoteResult is returned by a successful vote: the authoritative counts read
// back after commit.
type VoteResult struct {
	PollID     string `json:"pollId"`
	OptionID   string `json:"optionId"`
	TotalVotes int    `json:"totalVotes"`
	VoteCount  int    `json:"voteCount"`
}
