package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/pollboard/internal/apperror"
	"github.com/sakif/pollboard/internal/model"
	"github.com/sakif/pollboard/internal/repository"
)

func TestUpsertUser_New(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Provider:   "google",
		ProviderID: "1234567890",
		Name:       "Ada",
		Email:      "ada@example.com",
		Image:      "https://example.com/ada.png",
	}
	if err := db.UpsertUser(context.Background(), user); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}

	if user.ID == "" {
		t.Error("UpsertUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("UpsertUser() did not set user.CreatedAt")
	}
}

func TestUpsertUser_SameProviderKeepsIDAndRefreshesProfile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &model.User{Provider: "google", ProviderID: "42", Name: "Old Name", Email: "old@example.com"}
	if err := db.UpsertUser(ctx, first); err != nil {
		t.Fatalf("first UpsertUser() error = %v", err)
	}

	second := &model.User{Provider: "google", ProviderID: "42", Name: "New Name", Email: "new@example.com"}
	if err := db.UpsertUser(ctx, second); err != nil {
		t.Fatalf("second UpsertUser() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("ID changed on re-login: %q -> %q", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on re-login: %v -> %v", first.CreatedAt, second.CreatedAt)
	}

	got, err := db.GetUserByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Name != "New Name" || got.Email != "new@example.com" {
		t.Errorf("profile not refreshed: got %q <%s>", got.Name, got.Email)
	}
	if got := countRows(t, db, "users", "1 = 1"); got != 1 {
		t.Errorf("users = %d, want 1", got)
	}
}

func TestUpsertUser_SameSubjectDifferentProvider(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	g := &model.User{Provider: "google", ProviderID: "7", Name: "G"}
	h := &model.User{Provider: "github", ProviderID: "7", Name: "H"}
	if err := db.UpsertUser(ctx, g); err != nil {
		t.Fatalf("UpsertUser(google) error = %v", err)
	}
	if err := db.UpsertUser(ctx, h); err != nil {
		t.Fatalf("UpsertUser(github) error = %v", err)
	}

	if g.ID == h.ID {
		t.Error("accounts from different providers must not share an ID")
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "does-not-exist")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestListUsers_Pagination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"u1", "u2", "u3", "u4", "u5"} {
		createTestUser(t, db, name)
	}

	page1, err := db.ListUsers(ctx, repository.ListOptions{Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("ListUsers(page1) error = %v", err)
	}
	page3, err := db.ListUsers(ctx, repository.ListOptions{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("ListUsers(page3) error = %v", err)
	}

	if len(page1) != 2 {
		t.Errorf("page1 len = %d, want 2", len(page1))
	}
	if len(page3) != 1 {
		t.Errorf("page3 len = %d, want 1", len(page3))
	}
	if page1[0].ID == page3[0].ID {
		t.Error("pages overlap")
	}
}

func TestListUsers_DefaultLimit(t *testing.T) {
	db := newTestDB(t)

	users, err := db.ListUsers(context.Background(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if users == nil {
		t.Error("ListUsers() on empty table should return an empty slice, not nil")
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.DeleteUser(context.Background(), "nobody")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("DeleteUser() error = %v, want ErrNotFound", err)
	}
}
