package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/sakif/pollboard/internal/apperror"
	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/repository"
)

var _ repository.PollRepository = (*DB)(nil)

// CreatePoll inserts the poll and all of its options in one transaction, so a
// failure half-way leaves no poll without options behind.
func (db *DB) CreatePoll(ctx context.Context, poll *model.Poll) error {
	if poll.CreatedAt.IsZero() {
		poll.CreatedAt = time.Now()
	}
	poll.CreatedAt = poll.CreatedAt.UTC()
	poll.ID = xid.New().String()
	poll.TotalVotes = 0

	return db.RunInTx(ctx, func(ctx context.Context) error {
		_, err := db.q(ctx).ExecContext(ctx,
			`INSERT INTO polls (id, title, is_anonymous, created_by_id, total_votes, created_at)
			 VALUES (?, ?, ?, ?, 0, ?)`,
			poll.ID,
			poll.Title,
			poll.IsAnonymous,
			poll.CreatedByID,
			poll.CreatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("user", poll.CreatedByID)
			}
			return fmt.Errorf("sqlite: inserting poll: %w", err)
		}

		for i := range poll.Options {
			opt := &poll.Options[i]
			opt.ID = xid.New().String()
			opt.PollID = poll.ID
			opt.VoteCount = 0
			opt.Position = i

			_, err := db.q(ctx).ExecContext(ctx,
				`INSERT INTO options (id, poll_id, text, vote_count, position)
				 VALUES (?, ?, ?, 0, ?)`,
				opt.ID, opt.PollID, opt.Text, opt.Position,
			)
			if err != nil {
				return fmt.Errorf("sqlite: inserting option %d of poll %s: %w", i, poll.ID, err)
			}
		}
		return nil
	})
}

func pollSelect() sq.SelectBuilder {
	return sq.
		Select("p.id", "p.title", "p.is_anonymous", "p.created_by_id", "u.name", "p.total_votes", "p.created_at").
		From("polls p").
		Join("users u ON u.id = p.created_by_id")
}

// GetPoll returns the poll with its options, or apperror.ErrNotFound.
func (db *DB) GetPoll(ctx context.Context, id string) (*model.Poll, error) {
	polls, err := db.queryPolls(ctx, pollSelect().Where(sq.Eq{"p.id": id}))
	if err != nil {
		return nil, err
	}
	if len(polls) == 0 {
		return nil, apperror.NotFound("poll", id)
	}
	return &polls[0], nil
}

// ListPolls returns every poll, newest first.
func (db *DB) ListPolls(ctx context.Context) ([]model.Poll, error) {
	return db.queryPolls(ctx, pollSelect().OrderBy("p.created_at DESC", "p.id DESC"))
}

func (db *DB) ListPollsByOwner(ctx context.Context, ownerID string) ([]model.Poll, error) {
	return db.queryPolls(ctx, pollSelect().
		Where(sq.Eq{"p.created_by_id": ownerID}).
		OrderBy("p.created_at DESC", "p.id DESC"))
}

// queryPolls runs a poll query and then loads the options of every returned
// poll with a single IN (...) query.
func (db *DB) queryPolls(ctx context.Context, builder sq.SelectBuilder) ([]model.Poll, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building poll query: %w", err)
	}

	rows, err := db.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing polls: %w", err)
	}
	defer rows.Close()

	polls := []model.Poll{}
	for rows.Next() {
		var p model.Poll
		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.IsAnonymous,
			&p.CreatedByID,
			&p.CreatorName,
			&p.TotalVotes,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning poll row: %w", err)
		}
		p.Options = []model.Option{}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating polls: %w", err)
	}

	if len(polls) == 0 {
		return polls, nil
	}
	if err := db.attachOptions(ctx, polls); err != nil {
		return nil, err
	}
	return polls, nil
}

func (db *DB) attachOptions(ctx context.Context, polls []model.Poll) error {
	ids := make([]string, len(polls))
	index := make(map[string]int, len(polls))
	for i, p := range polls {
		ids[i] = p.ID
		index[p.ID] = i
	}

	query, args, err := sq.
		Select("id", "poll_id", "text", "vote_count", "position").
		From("options").
		Where(sq.Eq{"poll_id": ids}).
		OrderBy("poll_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building option query: %w", err)
	}

	rows, err := db.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: loading options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.ID, &o.PollID, &o.Text, &o.VoteCount, &o.Position); err != nil {
			return fmt.Errorf("sqlite: scanning option row: %w", err)
		}
		i := index[o.PollID]
		polls[i].Options = append(polls[i].Options, o)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating options: %w", err)
	}
	return nil
}

// DeletePoll removes the poll. Options and votes go with it through
// ON DELETE CASCADE.
func (db *DB) DeletePoll(ctx context.Context, id string) error {
	result, err := db.q(ctx).ExecContext(ctx, `DELETE FROM polls WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting poll %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("poll", id)
	}
	return nil
}

func (db *DB) DeletePollsByOwner(ctx context.Context, ownerID string) (int64, error) {
	result, err := db.q(ctx).ExecContext(ctx, `DELETE FROM polls WHERE created_by_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting polls of user %s: %w", ownerID, err)
	}
	return result.RowsAffected()
}

// DeletePollsCreatedBefore deletes every poll with created_at < cutoff.
func (db *DB) DeletePollsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.q(ctx).ExecContext(ctx, `DELETE FROM polls WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting polls created before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return result.RowsAffected()
}

// IncrementPollVotes bumps total_votes in place. The increment is evaluated by
// SQLite against the current row, never against a value read earlier.
func (db *DB) IncrementPollVotes(ctx context.Context, pollID string) error {
	result, err := db.q(ctx).ExecContext(ctx,
		`UPDATE polls SET total_votes = total_votes + 1 WHERE id = ?`, pollID)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing total votes of poll %s: %w", pollID, err)
	}
	return expectOneRow(result, apperror.NotFound("poll", pollID))
}

// IncrementOptionVotes bumps vote_count of an option of pollID. An option that
// belongs to a different poll matches no row.
func (db *DB) IncrementOptionVotes(ctx context.Context, pollID, optionID string) error {
	result, err := db.q(ctx).ExecContext(ctx,
		`UPDATE options SET vote_count = vote_count + 1 WHERE id = ? AND poll_id = ?`,
		optionID, pollID)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing votes of option %s: %w", optionID, err)
	}
	return expectOneRow(result, apperror.NotFound("option", optionID))
}

// GetVoteCounts reads the poll total and the option count in one statement.
func (db *DB) GetVoteCounts(ctx context.Context, pollID, optionID string) (int, int, error) {
	var total, count int
	err := db.q(ctx).QueryRowContext(ctx,
		`SELECT p.total_votes, o.vote_count
		 FROM polls p JOIN options o ON o.poll_id = p.id
		 WHERE p.id = ? AND o.id = ?`,
		pollID, optionID,
	).Scan(&total, &count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, apperror.NotFound("poll", pollID)
		}
		return 0, 0, fmt.Errorf("sqlite: reading vote counts of poll %s: %w", pollID, err)
	}
	return total, count, nil
}

func expectOneRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
