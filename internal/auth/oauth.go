package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"golang.org/x/oauth2/github"
)

// Identity is what a provider tells us about the signed-in user. The pair
// (Provider, ProviderID) is stable across logins and keys the users table.
type Identity struct {
	Provider   string
	ProviderID string
	Name       string
	Email      string
	Image      string
}

// Provider is one OAuth 2.0 Authorization Code sign-in option.
type Provider interface {
	// Name is the path segment in /auth/{provider}/login.
	Name() string
	// AuthURL is where the browser is redirected to authorize; state is
	// echoed back on the callback and checked against a cookie.
	AuthURL(state string) string
	// Exchange trades the callback code for the user's identity.
	Exchange(ctx context.Context, code string) (*Identity, error)
}

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	githubUserURL     = "https://api.github.com/user"
)

// =========================================================================
// GOOGLE
// =========================================================================

type googleUser struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// GoogleProvider signs users in with their Google account using the
// "openid profile email" scopes.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates a GoogleProvider. callbackURL must match an
// authorized redirect URI of the OAuth client exactly.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	var u googleUser
	if err := fetchProfile(ctx, p.config, code, p.userInfoURL, &u); err != nil {
		return nil, fmt.Errorf("auth: google: %w", err)
	}
	if u.Sub == "" {
		return nil, fmt.Errorf("auth: google returned a profile without a subject")
	}

	name := u.Name
	if name == "" {
		name = u.Email
	}
	return &Identity{
		Provider:   p.Name(),
		ProviderID: u.Sub,
		Name:       name,
		Email:      u.Email,
		Image:      u.Picture,
	}, nil
}

// =========================================================================
// GITHUB
// =========================================================================

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// GitHubProvider signs users in with GitHub. The numeric GitHub user ID is
// the stable key; the login can be renamed.
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

// NewGitHubProvider creates a GitHubProvider requesting "read:user" and
// "user:email".
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		userURL: githubUserURL,
	}
}

func (p *GitHubProvider) Name() string { return "github" }

func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	var u githubUser
	if err := fetchProfile(ctx, p.config, code, p.userURL, &u); err != nil {
		return nil, fmt.Errorf("auth: github: %w", err)
	}
	if u.ID == 0 {
		return nil, fmt.Errorf("auth: github returned an invalid user (ID = 0)")
	}

	name := u.Name
	if name == "" {
		name = u.Login
	}
	return &Identity{
		Provider:   p.Name(),
		ProviderID: strconv.FormatInt(u.ID, 10),
		Name:       name,
		Email:      u.Email,
		Image:      u.AvatarURL,
	}, nil
}

// fetchProfile exchanges code for an access token and decodes the JSON
// document at profileURL into dst. The client returned by config.Client adds
// the bearer token to the request.
func fetchProfile(ctx context.Context, config *oauth2.Config, code, profileURL string, dst any) error {
	token, err := config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging OAuth code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return fmt.Errorf("building profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := config.Client(ctx, token).Do(req)
	if err != nil {
		return fmt.Errorf("calling profile API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("profile API returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding profile response: %w", err)
	}
	return nil
}
