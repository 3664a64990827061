package model

import "time"

// Connection status values.
const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
	ConnectionDeclined = "declined"
)

// Invite status values.
const (
	InvitePending  = "pending"
	InviteAccepted = "accepted"
	InviteDeclined = "declined"
	InviteExpired  = "expired"
)

// InviteTTL is how long an invitation can be accepted.
const InviteTTL = 7 * 24 * time.Hour

// Connection links two users. User1ID always sorts before User2ID.
type Connection struct {
	ID         string     `json:"id" db:"id"`
	User1ID    string     `json:"user1_id" db:"user1_id"`
	User2ID    string     `json:"user2_id" db:"user2_id"`
	Status     string     `json:"status" db:"status"`
	InvitedBy  string     `json:"invited_by" db:"invited_by"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
}

// Other returns the connected user that is not userID.
func (c Connection) Other(userID string) string {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// Invite is an emailed invitation to connect with the inviter.
type Invite struct {
	ID           string    `json:"id" db:"id"`
	BoardID      string    `json:"board_id" db:"board_id"`
	InvitedEmail string    `json:"invited_email" db:"invited_email"`
	InviterID    string    `json:"inviter_id" db:"inviter_id"`
	Token        string    `json:"token" db:"token"`
	Status       string    `json:"status" db:"status"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the invite can no longer be accepted at now.
func (i Invite) Expired(now time.Time) bool {
	return i.Status == InviteExpired || !now.Before(i.ExpiresAt)
}

// InviteDetails is an invite together with the inviter's profile, as shown
// on the acceptance screen.
type InviteDetails struct {
	Invite  Invite
	Inviter Profile
}
