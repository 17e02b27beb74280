package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeProviderServer serves a token endpoint and a profile endpoint. The
// profile endpoint only answers requests carrying the issued bearer token.
func fakeProviderServer(t *testing.T, profile string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-123","token_type":"Bearer"}`))
	})
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(profile))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func pointAt(cfg *oauth2.Config, srv *httptest.Server) {
	cfg.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/authorize",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

func TestGoogleProvider_Exchange(t *testing.T) {
	srv := fakeProviderServer(t, `{"sub":"1099","name":"Ada","email":"ada@example.com","picture":"https://img/ada.png"}`)
	p := NewGoogleProvider("id", "secret", "http://localhost/cb")
	pointAt(p.config, srv)
	p.userInfoURL = srv.URL + "/profile"

	id, err := p.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, &Identity{
		Provider:   "google",
		ProviderID: "1099",
		Name:       "Ada",
		Email:      "ada@example.com",
		Image:      "https://img/ada.png",
	}, id)
}

func TestGitHubProvider_Exchange_FallsBackToLogin(t *testing.T) {
	srv := fakeProviderServer(t, `{"id":42,"login":"octo","name":"","avatar_url":"https://img/octo.png"}`)
	p := NewGitHubProvider("id", "secret", "http://localhost/cb")
	pointAt(p.config, srv)
	p.userURL = srv.URL + "/profile"

	id, err := p.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "github", id.Provider)
	assert.Equal(t, "42", id.ProviderID)
	assert.Equal(t, "octo", id.Name)
}

func TestGitHubProvider_Exchange_Errors(t *testing.T) {
	srv := fakeProviderServer(t, `{"id":0}`)
	p := NewGitHubProvider("id", "secret", "http://localhost/cb")
	pointAt(p.config, srv)
	p.userURL = srv.URL + "/profile"

	_, err := p.Exchange(context.Background(), "bad-code")
	assert.Error(t, err, "rejected code")

	_, err = p.Exchange(context.Background(), "good-code")
	assert.Error(t, err, "profile without an ID")
}

func TestAuthURL_CarriesState(t *testing.T) {
	for _, p := range []Provider{
		NewGoogleProvider("gid", "s", "http://localhost/auth/google/callback"),
		NewGitHubProvider("hid", "s", "http://localhost/auth/github/callback"),
	} {
		t.Run(p.Name(), func(t *testing.T) {
			u, err := url.Parse(p.AuthURL("state-xyz"))
			require.NoError(t, err)
			assert.Equal(t, "state-xyz", u.Query().Get("state"))
			assert.Contains(t, u.Query().Get("redirect_uri"), "/auth/"+p.Name()+"/callback")
		})
	}
}
