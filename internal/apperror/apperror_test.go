package apperror

import (
	"errors"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("poll", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("title", "Please enter a poll title"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("poll", "abc123"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "DuplicateVote wraps ErrDuplicateVote",
			err:       DuplicateVote("abc123"),
			target:    ErrDuplicateVote,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("sign in required"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "DuplicateVote does NOT match ErrConflict",
			err:       DuplicateVote("abc123"),
			target:    ErrConflict,
			wantMatch: false,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("poll", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "ValidationFailed does NOT match ErrNotFound",
			err:       ValidationFailed("options", "Please add at least two options"),
			target:    ErrNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("poll", "abc123"),
			wantMessage: "poll not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("title", "Please enter a poll title"),
			wantMessage: "Please enter a poll title",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("poll", "abc123"),
			wantMessage: "poll conflict with id abc123",
		},
		{
			name:        "DuplicateVote uses the user-facing message",
			err:         DuplicateVote("abc123"),
			wantMessage: "You have already voted on this poll",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("poll", "abc123")
	unwrapped := err.Unwrap()

	if unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	// Handlers echo Field back so the client can highlight the input.
	err := ValidationFailed("options", "Please add at least two options")

	if err.Field != "options" {
		t.Errorf("Field = %q, want %q", err.Field, "options")
	}
}
