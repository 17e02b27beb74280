package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pollboard/internal/metrics"
	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/repository/sqlite"
)

// testEnv wires every service against one real SQLite store, the same way
// the server does.
type testEnv struct {
	store    *sqlite.DB
	metrics  *metrics.Metrics
	polls    *PollService
	votes    *VoteService
	members  *MemberService
	profiles *ProfileService
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return wireEnv(db)
}

// newFileTestEnv uses a WAL database file so concurrent requests get their
// own connections and really contend for the write lock.
func newFileTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return wireEnv(db)
}

func wireEnv(db *sqlite.DB) *testEnv {
	m := metrics.New(prometheus.NewRegistry())
	logger := quietLogger()
	return &testEnv{
		store:    db,
		metrics:  m,
		polls:    NewPollService(db, db, db, m, logger),
		votes:    NewVoteService(db, db, db, m, logger),
		members:  NewMemberService(db, logger),
		profiles: NewProfileService(db, db, db, db, m, logger),
	}
}

func (e *testEnv) user(t *testing.T, name string) *model.User {
	t.Helper()
	u := &model.User{Provider: "google", ProviderID: "sub-" + name, Name: name}
	require.NoError(t, e.store.UpsertUser(context.Background(), u))
	return u
}

func (e *testEnv) poll(t *testing.T, owner *model.User, title string, options ...string) *model.Poll {
	t.Helper()
	p, err := e.polls.CreatePoll(context.Background(), owner.ID, CreatePollInput{Title: title, Options: options})
	require.NoError(t, err)
	return p
}

// pinClock makes every service report now as the current time.
func (e *testEnv) pinClock(now time.Time) {
	clock := func() time.Time { return now }
	e.polls.now = clock
	e.votes.now = clock
	e.profiles.now = clock
}

func optionByText(t *testing.T, p *model.Poll, text string) model.Option {
	t.Helper()
	for _, o := range p.Options {
		if o.Text == text {
			return o
		}
	}
	t.Fatalf("poll %s has no option %q", p.ID, text)
	return model.Option{}
}
