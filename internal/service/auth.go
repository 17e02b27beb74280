package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/pollboard/internal/auth"
	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/repository"
)

// AuthService turns a provider identity into a local account and a session.
//
//	AuthHandler → AuthService → UserRepository
//	                          ↘ TokenService (JWT)
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// AuthResult bundles the signed-in user with their session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginOrRegister upserts the account keyed by (Provider, ProviderID) and
// issues a session token. Later sign-ins refresh name, email and image but
// keep the account ID, so polls and votes survive.
func (s *AuthService) LoginOrRegister(ctx context.Context, id *auth.Identity) (*AuthResult, error) {
	if id == nil || id.Provider == "" || id.ProviderID == "" {
		return nil, fmt.Errorf("service/auth: identity must name a provider and an ID")
	}

	user := &model.User{
		Provider:   id.Provider,
		ProviderID: id.ProviderID,
		Name:       id.Name,
		Email:      id.Email,
		Image:      id.Image,
	}
	if err := s.users.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (%s:%s): %w", id.Provider, id.ProviderID, err)
	}

	s.logger.Info("user signed in",
		slog.String("userID", user.ID),
		slog.String("provider", id.Provider),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID backs /api/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}
