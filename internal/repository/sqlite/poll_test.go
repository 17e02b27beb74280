package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pollboard/internal/apperror"
	"github.com/sakif/pollboard/internal/model"
)

func TestCreatePoll(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner")

	poll := createTestPoll(t, db, owner, "Best color?", "Red", "Blue")

	require.NotEmpty(t, poll.ID)
	require.Len(t, poll.Options, 2)
	for i, opt := range poll.Options {
		assert.NotEmpty(t, opt.ID)
		assert.Equal(t, poll.ID, opt.PollID)
		assert.Equal(t, 0, opt.VoteCount)
		assert.Equal(t, i, opt.Position)
	}

	got, err := db.GetPoll(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, "Best color?", got.Title)
	assert.Equal(t, "owner", got.CreatorName)
	assert.Equal(t, 0, got.TotalVotes)
	require.Len(t, got.Options, 2)
	assert.Equal(t, "Red", got.Options[0].Text)
	assert.Equal(t, "Blue", got.Options[1].Text)
}

func TestCreatePoll_UnknownOwnerPersistsNothing(t *testing.T) {
	db := newTestDB(t)

	poll := &model.Poll{
		Title:       "Orphan",
		CreatedByID: "ghost",
		Options:     []model.Option{{Text: "a"}, {Text: "b"}},
	}
	err := db.CreatePoll(context.Background(), poll)

	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, 0, countRows(t, db, "polls", "1 = 1"))
	assert.Equal(t, 0, countRows(t, db, "options", "1 = 1"))
}

func TestGetPoll_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetPoll(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestListPolls_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner")
	now := time.Now()

	older := createTestPollAt(t, db, owner, now.Add(-2*time.Hour), "older", "a", "b")
	newest := createTestPollAt(t, db, owner, now, "newest", "a", "b")
	middle := createTestPollAt(t, db, owner, now.Add(-1*time.Hour), "middle", "a", "b")

	polls, err := db.ListPolls(context.Background())
	require.NoError(t, err)
	require.Len(t, polls, 3)
	assert.Equal(t, []string{newest.ID, middle.ID, older.ID}, []string{polls[0].ID, polls[1].ID, polls[2].ID})
	for _, p := range polls {
		assert.Len(t, p.Options, 2, "poll %s should carry its options", p.Title)
	}
}

func TestListPollsByOwner(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	createTestPoll(t, db, alice, "alice 1", "a", "b")
	createTestPoll(t, db, alice, "alice 2", "a", "b")
	createTestPoll(t, db, bob, "bob 1", "a", "b")

	polls, err := db.ListPollsByOwner(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Len(t, polls, 2)
	for _, p := range polls {
		assert.Equal(t, alice.ID, p.CreatedByID)
	}
}

func TestDeletePoll_CascadesOptionsAndVotes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	voter := createTestUser(t, db, "voter")
	poll := createTestPoll(t, db, owner, "Doomed", "a", "b")
	require.NoError(t, castVote(ctx, db, voter.ID, poll.ID, poll.Options[0].ID))

	require.NoError(t, db.DeletePoll(ctx, poll.ID))

	assert.Equal(t, 0, countRows(t, db, "polls", "id = ?", poll.ID))
	assert.Equal(t, 0, countRows(t, db, "options", "poll_id = ?", poll.ID))
	assert.Equal(t, 0, countRows(t, db, "votes", "poll_id = ?", poll.ID))
}

func TestDeletePoll_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.DeletePoll(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeletePollsCreatedBefore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	voter := createTestUser(t, db, "voter")
	now := time.Now()
	cutoff := now.Add(-24 * time.Hour)

	expired := createTestPollAt(t, db, owner, now.Add(-25*time.Hour), "expired", "a", "b")
	justInside := createTestPollAt(t, db, owner, now.Add(-23*time.Hour), "recent", "a", "b")
	fresh := createTestPollAt(t, db, owner, now, "fresh", "a", "b")
	require.NoError(t, castVote(ctx, db, voter.ID, expired.ID, expired.Options[1].ID))

	deleted, err := db.DeletePollsCreatedBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = db.GetPoll(ctx, expired.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, 0, countRows(t, db, "votes", "poll_id = ?", expired.ID))
	for _, keep := range []*model.Poll{justInside, fresh} {
		_, err := db.GetPoll(ctx, keep.ID)
		assert.NoError(t, err, "poll %q should survive", keep.Title)
	}

	again, err := db.DeletePollsCreatedBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again)
}

func TestIncrementOptionVotes_OptionOfAnotherPoll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	p1 := createTestPoll(t, db, owner, "p1", "a", "b")
	p2 := createTestPoll(t, db, owner, "p2", "c", "d")

	err := db.IncrementOptionVotes(ctx, p1.ID, p2.Options[0].ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	got, err := db.GetPoll(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Options[0].VoteCount)
}

func TestGetVoteCounts_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, _, err := db.GetVoteCounts(context.Background(), "nope", "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
