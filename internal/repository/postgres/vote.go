package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/pollboard/internal/apperror"
	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/repository"
)

var _ repository.VoteRepository = (*DB)(nil)

func (db *DB) HasVoted(ctx context.Context, userID, pollID string) (bool, error) {
	var exists bool
	err := db.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM votes WHERE user_id = $1 AND poll_id = $2)`,
		userID, pollID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: checking vote of user %s on poll %s: %w", userID, pollID, err)
	}
	return exists, nil
}

// InsertVote records the vote. votes_user_poll_key turns a second vote into
// 23505; votes_option_poll_fkey turns an option of another poll into 23503.
func (db *DB) InsertVote(ctx context.Context, vote *model.Vote) error {
	vote.ID = xid.New().String()
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now()
	}
	vote.CreatedAt = vote.CreatedAt.UTC()

	_, err := db.q(ctx).Exec(ctx,
		`INSERT INTO votes (id, user_id, poll_id, option_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		vote.ID, vote.UserID, vote.PollID, vote.OptionID, vote.CreatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.DuplicateVote(vote.PollID)
		case isForeignKeyViolation(err):
			return apperror.NotFound("option", vote.OptionID)
		}
		return fmt.Errorf("postgres: inserting vote: %w", err)
	}
	return nil
}

func (db *DB) VotedOptions(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := db.q(ctx).Query(ctx,
		`SELECT poll_id, option_id FROM votes WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing votes of user %s: %w", userID, err)
	}
	defer rows.Close()

	voted := make(map[string]string)
	for rows.Next() {
		var pollID, optionID string
		if err := rows.Scan(&pollID, &optionID); err != nil {
			return nil, fmt.Errorf("postgres: scanning vote row: %w", err)
		}
		voted[pollID] = optionID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating votes: %w", err)
	}
	return voted, nil
}

func (db *DB) ListVotesByUser(ctx context.Context, userID string) ([]model.CastVote, error) {
	rows, err := db.q(ctx).Query(ctx,
		`SELECT v.id, v.poll_id, p.title, v.option_id, o.text, v.created_at
		 FROM votes v
		 JOIN polls p ON p.id = v.poll_id
		 JOIN options o ON o.id = v.option_id
		 WHERE v.user_id = $1
		 ORDER BY v.created_at DESC, v.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing votes of user %s: %w", userID, err)
	}
	defer rows.Close()

	votes := []model.CastVote{}
	for rows.Next() {
		var v model.CastVote
		if err := rows.Scan(&v.ID, &v.PollID, &v.PollTitle, &v.OptionID, &v.OptionText, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning vote row: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating votes: %w", err)
	}
	return votes, nil
}

// RetractVotesByUser deletes the user's votes and decrements the counters.
// The DELETE ... RETURNING feeds both UPDATEs, so the rows removed and the
// counters decremented are the same set even under concurrent writers.
func (db *DB) RetractVotesByUser(ctx context.Context, userID string) (int64, error) {
	var retracted int64
	err := db.q(ctx).QueryRow(ctx,
		`WITH removed AS (
		     DELETE FROM votes WHERE user_id = $1 RETURNING poll_id, option_id
		 ), opt AS (
		     UPDATE options o SET vote_count = o.vote_count - 1
		     FROM removed r WHERE o.id = r.option_id
		 ), pol AS (
		     UPDATE polls p SET total_votes = p.total_votes - 1
		     FROM removed r WHERE p.id = r.poll_id
		 )
		 SELECT count(*) FROM removed`,
		userID,
	).Scan(&retracted)
	if err != nil {
		return 0, fmt.Errorf("postgres: retracting votes of user %s: %w", userID, err)
	}
	return retracted, nil
}
