package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor for hashes generated by
// `pollboard hash-password`; about 250ms per hash on current hardware.
const defaultCost = 12

// maxPasswordBytes is where bcrypt silently truncates input.
const maxPasswordBytes = 72

// PasswordService hashes and verifies bcrypt passwords. The only password in
// the system guards the /metrics endpoint.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost,
// typically bcrypt.MinCost, so tests in other packages stay fast.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the self-describing bcrypt hash of plaintext
// ($2a$<cost>$<salt><hash>). Inputs longer than 72 bytes are rejected
// instead of being truncated.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("auth: password must not be empty")
	}
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid password")
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// BasicAuth guards a handler with HTTP basic auth against a single username
// and bcrypt password hash. An empty hash disables the check.
func BasicAuth(passwords *PasswordService, realm, username, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if passwordHash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
			if !ok || !userOK || passwords.Verify(passwordHash, pass) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`", charset="UTF-8"`)
				writeUnauthorized(w, "invalid credentials")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
