package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/repository"
)

// MemberService serves the member directory.
type MemberService struct {
	users repository.UserRepository
	deps
}

func NewMemberService(users repository.UserRepository, logger *slog.Logger) *MemberService {
	return &MemberService{users: users, deps: newDeps(logger, nil)}
}

// ListMembers returns page (1-based) of the directory, newest members first.
// pageSize defaults to repository.DefaultPageSize and is capped at
// repository.MaxPageSize. One row beyond the page is fetched to fill HasMore.
func (s *MemberService) ListMembers(ctx context.Context, page, pageSize int) (*model.MemberPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = repository.DefaultPageSize
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}

	users, err := s.users.ListUsers(ctx, repository.ListOptions{
		Limit:  pageSize + 1,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}

	hasMore := len(users) > pageSize
	if hasMore {
		users = users[:pageSize]
	}

	return &model.MemberPage{
		Members:  users,
		Page:     page,
		PageSize: pageSize,
		HasMore:  hasMore,
	}, nil
}
