package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/pollboard/internal/apperror"
	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/repository"
)

var _ repository.PollRepository = (*DB)(nil)

func (db *DB) CreatePoll(ctx context.Context, poll *model.Poll) error {
	if poll.CreatedAt.IsZero() {
		poll.CreatedAt = time.Now()
	}
	poll.CreatedAt = poll.CreatedAt.UTC()
	poll.ID = xid.New().String()
	poll.TotalVotes = 0

	return db.RunInTx(ctx, func(ctx context.Context) error {
		_, err := db.q(ctx).Exec(ctx,
			`INSERT INTO polls (id, title, is_anonymous, created_by_id, total_votes, created_at)
			 VALUES ($1, $2, $3, $4, 0, $5)`,
			poll.ID, poll.Title, poll.IsAnonymous, poll.CreatedByID, poll.CreatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("user", poll.CreatedByID)
			}
			return fmt.Errorf("postgres: inserting poll: %w", err)
		}

		batch := &pgx.Batch{}
		for i := range poll.Options {
			opt := &poll.Options[i]
			opt.ID = xid.New().String()
			opt.PollID = poll.ID
			opt.VoteCount = 0
			opt.Position = i
			batch.Queue(
				`INSERT INTO options (id, poll_id, text, vote_count, position) VALUES ($1, $2, $3, 0, $4)`,
				opt.ID, opt.PollID, opt.Text, opt.Position,
			)
		}

		if err := db.q(ctx).SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("postgres: inserting options of poll %s: %w", poll.ID, err)
		}
		return nil
	})
}

func pollSelect() sq.SelectBuilder {
	return psql.
		Select("p.id", "p.title", "p.is_anonymous", "p.created_by_id", "u.name", "p.total_votes", "p.created_at").
		From("polls p").
		Join("users u ON u.id = p.created_by_id")
}

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

func (db *DB) ListPolls(ctx context.Context) ([]model.Poll, error) {
	return db.queryPolls(ctx, pollSelect().OrderBy("p.created_at DESC", "p.id DESC"))
}

func (db *DB) ListPollsByOwner(ctx context.Context, ownerID string) ([]model.Poll, error) {
	return db.queryPolls(ctx, pollSelect().
		Where(sq.Eq{"p.created_by_id": ownerID}).
		OrderBy("p.created_at DESC", "p.id DESC"))
}

func (db *DB) queryPolls(ctx context.Context, builder sq.SelectBuilder) ([]model.Poll, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: building poll query: %w", err)
	}

	rows, err := db.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing polls: %w", err)
	}
	defer rows.Close()

	polls := []model.Poll{}
	for rows.Next() {
		var p model.Poll
		if err := rows.Scan(&p.ID, &p.Title, &p.IsAnonymous, &p.CreatedByID, &p.CreatorName, &p.TotalVotes, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning poll row: %w", err)
		}
		p.Options = []model.Option{}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating polls: %w", err)
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

	rows, err := db.q(ctx).Query(ctx,
		`SELECT id, poll_id, text, vote_count, position
		 FROM options WHERE poll_id = ANY($1)
		 ORDER BY poll_id, position`, ids)
	if err != nil {
		return fmt.Errorf("postgres: loading options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.ID, &o.PollID, &o.Text, &o.VoteCount, &o.Position); err != nil {
			return fmt.Errorf("postgres: scanning option row: %w", err)
		}
		i := index[o.PollID]
		polls[i].Options = append(polls[i].Options, o)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres: iterating options: %w", err)
	}
	return nil
}

func (db *DB) DeletePoll(ctx context.Context, id string) error {
	tag, err := db.q(ctx).Exec(ctx, `DELETE FROM polls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting poll %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("poll", id)
	}
	return nil
}

func (db *DB) DeletePollsByOwner(ctx context.Context, ownerID string) (int64, error) {
	tag, err := db.q(ctx).Exec(ctx, `DELETE FROM polls WHERE created_by_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("postgres: deleting polls of user %s: %w", ownerID, err)
	}
	return tag.RowsAffected(), nil
}

func (db *DB) DeletePollsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.q(ctx).Exec(ctx, `DELETE FROM polls WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("postgres: deleting polls created before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func (db *DB) IncrementPollVotes(ctx context.Context, pollID string) error {
	tag, err := db.q(ctx).Exec(ctx,
		`UPDATE polls SET total_votes = total_votes + 1 WHERE id = $1`, pollID)
	if err != nil {
		return fmt.Errorf("postgres: incrementing total votes of poll %s: %w", pollID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("poll", pollID)
	}
	return nil
}

func (db *DB) IncrementOptionVotes(ctx context.Context, pollID, optionID string) error {
	tag, err := db.q(ctx).Exec(ctx,
		`UPDATE options SET vote_count = vote_count + 1 WHERE id = $1 AND poll_id = $2`,
		optionID, pollID)
	if err != nil {
		return fmt.Errorf("postgres: incrementing votes of option %s: %w", optionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("option", optionID)
	}
	return nil
}

func (db *DB) GetVoteCounts(ctx context.Context, pollID, optionID string) (int, int, error) {
	var total, count int
	err := db.q(ctx).QueryRow(ctx,
		`SELECT p.total_votes, o.vote_count
		 FROM polls p JOIN options o ON o.poll_id = p.id
		 WHERE p.id = $1 AND o.id = $2`,
		pollID, optionID,
	).Scan(&total, &count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, apperror.NotFound("poll", pollID)
		}
		return 0, 0, fmt.Errorf("postgres: reading vote counts of poll %s: %w", pollID, err)
	}
	return total, count, nil
}
