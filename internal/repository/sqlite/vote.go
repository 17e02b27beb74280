package sqlite

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
	err := db.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM votes WHERE user_id = ? AND poll_id = ?)`,
		userID, pollID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking vote of user %s on poll %s: %w", userID, pollID, err)
	}
	return exists, nil
}

// InsertVote records the vote row.
//
// UNIQUE (user_id, poll_id) is what actually guarantees one vote per user and
// poll; the composite foreign key guarantees the option belongs to the poll.
// Both violations are translated into domain errors here.
func (db *DB) InsertVote(ctx context.Context, vote *model.Vote) error {
	vote.ID = xid.New().String()
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now()
	}
	vote.CreatedAt = vote.CreatedAt.UTC()

	_, err := db.q(ctx).ExecContext(ctx,
		`INSERT INTO votes (id, user_id, poll_id, option_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		vote.ID, vote.UserID, vote.PollID, vote.OptionID, vote.CreatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.DuplicateVote(vote.PollID)
		case isForeignKeyViolation(err):
			return apperror.NotFound("option", vote.OptionID)
		}
		return fmt.Errorf("sqlite: inserting vote: %w", err)
	}
	return nil
}

func (db *DB) VotedOptions(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := db.q(ctx).QueryContext(ctx,
		`SELECT poll_id, option_id FROM votes WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing votes of user %s: %w", userID, err)
	}
	defer rows.Close()

	voted := make(map[string]string)
	for rows.Next() {
		var pollID, optionID string
		if err := rows.Scan(&pollID, &optionID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning vote row: %w", err)
		}
		voted[pollID] = optionID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating votes: %w", err)
	}
	return voted, nil
}

// ListVotesByUser returns the user's votes with poll title and option text,
// most recent first.
func (db *DB) ListVotesByUser(ctx context.Context, userID string) ([]model.CastVote, error) {
	rows, err := db.q(ctx).QueryContext(ctx,
		`SELECT v.id, v.poll_id, p.title, v.option_id, o.text, v.created_at
		 FROM votes v
		 JOIN polls p ON p.id = v.poll_id
		 JOIN options o ON o.id = v.option_id
		 WHERE v.user_id = ?
		 ORDER BY v.created_at DESC, v.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing votes of user %s: %w", userID, err)
	}
	defer rows.Close()

	votes := []model.CastVote{}
	for rows.Next() {
		var v model.CastVote
		if err := rows.Scan(&v.ID, &v.PollID, &v.PollTitle, &v.OptionID, &v.OptionText, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning vote row: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating votes: %w", err)
	}
	return votes, nil
}

// RetractVotesByUser deletes all votes of the user and takes them back out of
// the counters. A user has at most one vote per poll, hence at most one per
// option, so each affected counter drops by exactly one.
func (db *DB) RetractVotesByUser(ctx context.Context, userID string) (int64, error) {
	var retracted int64

	err := db.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := db.q(ctx).ExecContext(ctx,
			`UPDATE options SET vote_count = vote_count - 1
			 WHERE id IN (SELECT option_id FROM votes WHERE user_id = ?)`, userID); err != nil {
			return fmt.Errorf("sqlite: decrementing option counts: %w", err)
		}

		if _, err := db.q(ctx).ExecContext(ctx,
			`UPDATE polls SET total_votes = total_votes - 1
			 WHERE id IN (SELECT poll_id FROM votes WHERE user_id = ?)`, userID); err != nil {
			return fmt.Errorf("sqlite: decrementing poll totals: %w", err)
		}

		result, err := db.q(ctx).ExecContext(ctx, `DELETE FROM votes WHERE user_id = ?`, userID)
		if err != nil {
			return fmt.Errorf("sqlite: deleting votes of user %s: %w", userID, err)
		}
		retracted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return retracted, nil
}
