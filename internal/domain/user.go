package domain

import (
	"strings"
	"time"
)

// User is the signed-in identity reported by the auth collaborator.
type User struct {
	ID         string    `json:"id" toml:"id"`
	Name       string    `json:"name" toml:"name"`
	Email      string    `json:"email,omitempty" toml:"email"`
	Provider   string    `json:"provider,omitempty" toml:"provider"`
	SignedInAt time.Time `json:"signed_in_at" toml:"signed_in_at"`
}

// NewUser validates and normalizes a user record.
func NewUser(id, name, email, provider string, now time.Time) (User, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return User{}, ErrInvalidID
	}
	if name == "" {
		name = id
	}
	provider = strings.TrimSpace(strings.ToLower(provider))
	if provider == "" {
		provider = "local"
	}
	return User{
		ID:         id,
		Name:       name,
		Email:      strings.TrimSpace(email),
		Provider:   provider,
		SignedInAt: now.UTC().Truncate(time.Second),
	}, nil
}

// DisplayName returns the best label for headers.
func (u User) DisplayName() string {
	if u.Email != "" && u.Name != u.Email {
		return u.Name + " <" + u.Email + ">"
	}
	return u.Name
}
