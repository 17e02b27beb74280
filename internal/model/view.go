package model

import "time"

// Creator is the public identity of a poll's author. It is nil on anonymous polls.
type Creator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PollView is a Poll as seen by one viewer.
type PollView struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	IsAnonymous   bool      `json:"isAnonymous"`
	TotalVotes    int       `json:"totalVotes"`
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     *Creator  `json:"createdBy"`
	Options       []Option  `json:"options"`
	UserVoted     bool      `json:"userVoted"`
	VotedOptionID string    `json:"votedOptionId,omitempty"`
	IsOwner       bool      `json:"isOwner"`
}

// NewPollView builds the viewer-specific projection of p. votedOptionID is
// empty when the viewer has not voted (or is anonymous).
func NewPollView(p Poll, viewerID, votedOptionID string) PollView {
	v := PollView{
		ID:            p.ID,
		Title:         p.Title,
		IsAnonymous:   p.IsAnonymous,
		TotalVotes:    p.TotalVotes,
		CreatedAt:     p.CreatedAt,
		Options:       p.Options,
		UserVoted:     votedOptionID != "",
		VotedOptionID: votedOptionID,
		IsOwner:       viewerID != "" && viewerID == p.CreatedByID,
	}
	if v.Options == nil {
		v.Options = []Option{}
	}
	if !p.IsAnonymous {
		v.CreatedBy = &Creator{ID: p.CreatedByID, Name: p.CreatorName}
	}
	return v
}

// ProfileStats summarises a user's activity.
type ProfileStats struct {
	PollsCreated  int `json:"pollsCreated"`
	VotesCast     int `json:"votesCast"`
	Participation int `json:"participation"`
}

// Profile is the aggregated view of one user.
type Profile struct {
	User         User         `json:"user"`
	CreatedPolls []Poll       `json:"createdPolls"`
	VotesCast    []CastVote   `json:"votesCast"`
	Stats        ProfileStats `json:"stats"`
}
