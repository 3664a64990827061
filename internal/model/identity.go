package model

import (
	"strings"
	"time"
)

// Identity is the signed-in user as seen by the rest of the application.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// IsZero reports whether no user is signed in.
func (i Identity) IsZero() bool {
	return i.ID == ""
}

// Profile is the stored public record for a user.
type Profile struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	AvatarURL *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Identity converts the profile to an Identity. Profiles without a name
// fall back to the local part of the email address.
func (p Profile) Identity() Identity {
	name := p.Name
	if name == "" {
		name, _, _ = strings.Cut(p.Email, "@")
	}
	return Identity{ID: p.ID, Email: p.Email, DisplayName: name}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail is the permissive check used on every email entry point.
func ValidEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && domain != "" && !strings.ContainsAny(email, " \t\r\n")
}
