// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Accounts are created on first OAuth sign-in. Provider + ProviderID identify the
// external account (Google "sub" or GitHub numeric id as a string); ID is our own
// xid so primary keys never depend on a third party's numbering.
//
// Email and Image can be empty when the provider hides them.
type User struct {
	ID         string    `json:"id"`
	Provider   string    `json:"-"`
	ProviderID string    `json:"-"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Image      string    `json:"image"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"-"`
}

// MemberPage is one page of the member directory.
type MemberPage struct {
	Members  []User `json:"members"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	HasMore  bool   `json:"hasMore"`
}
