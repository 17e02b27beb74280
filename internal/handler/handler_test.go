package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pollboard/internal/auth"
	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/repository/sqlite"
	"github.com/sakif/pollboard/internal/service"
)

// fakeProvider accepts the code "good" and returns its identity.
type fakeProvider struct {
	identity auth.Identity
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) AuthURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*auth.Identity, error) {
	if code != "good" {
		return nil, io.ErrUnexpectedEOF
	}
	id := p.identity
	return &id, nil
}

type testAPI struct {
	router http.Handler
	store  *sqlite.DB
	tokens *auth.TokenService
	auth   *service.AuthService
}

// newTestAPI mounts the handlers on a chi router the same way the server
// does, backed by an in-memory store.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-value", time.Hour)
	require.NoError(t, err)

	authSvc := service.NewAuthService(db, tokens, logger)
	polls := service.NewPollService(db, db, db, nil, logger)
	votes := service.NewVoteService(db, db, db, nil, logger)

	authH := NewAuthHandler([]auth.Provider{&fakeProvider{identity: auth.Identity{
		Provider: "fake", ProviderID: "f-1", Name: "Fiona",
	}}}, authSvc, tokens, false, logger)
	pollH := NewPollHandler(polls, votes, logger)
	memberH := NewMemberHandler(service.NewMemberService(db, logger))
	profileH := NewProfileHandler(service.NewProfileService(db, db, db, db, nil, logger), false)
	healthH := NewHealthHandler(db, "test", logger)

	r := chi.NewRouter()
	r.Get("/healthz", healthH.HandleHealth)
	r.Get("/auth/{provider}/login", authH.HandleLogin)
	r.Get("/auth/{provider}/callback", authH.HandleCallback)
	r.Post("/auth/logout", authH.HandleLogout)
	r.Route("/api", func(r chi.Router) {
		r.With(auth.OptionalAuth(tokens)).Get("/polls", pollH.HandleList)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", authH.HandleMe)
			r.Post("/polls", pollH.HandleCreate)
			r.Delete("/polls/{pollID}", pollH.HandleDelete)
			r.Post("/polls/{pollID}/votes", pollH.HandleVote)
			r.Get("/members", memberH.HandleList)
			r.Get("/profile", profileH.HandleGet)
			r.Delete("/profile", profileH.HandleDelete)
		})
	})

	return &testAPI{router: r, store: db, tokens: tokens, auth: authSvc}
}

// signIn creates (or reuses) the account for name and returns its session token.
func (a *testAPI) signIn(t *testing.T, name string) (string, *model.User) {
	t.Helper()
	res, err := a.auth.LoginOrRegister(context.Background(), &auth.Identity{
		Provider: "google", ProviderID: "sub-" + name, Name: name,
	})
	require.NoError(t, err)
	return res.Token, res.User
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}
