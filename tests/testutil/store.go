package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/store"
)

// NewTestStore creates a SQLiteStore in a temporary file with all
// migrations applied. It automatically closes the store when the test
// completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "swf.db"))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewProfile registers a user with the given email and display name.
func NewProfile(t *testing.T, s store.Store, email, name string) model.Identity {
	t.Helper()

	ctx := context.Background()
	p, err := s.GetOrCreateProfileByEmail(ctx, email)
	if err != nil {
		t.Fatalf("creating profile %s: %v", email, err)
	}
	if name != "" {
		if err := s.UpdateProfileName(ctx, p.ID, name); err != nil {
			t.Fatalf("naming profile %s: %v", email, err)
		}
		p.Name = name
	}
	return p.Identity()
}

// Connect makes a and b accepted connections through an invite from a.
func Connect(t *testing.T, s store.Store, a, b model.Identity) {
	t.Helper()

	ctx := context.Background()
	board, _, err := s.EnsurePersonalBoard(ctx, a.ID, "My Personal Board", 20)
	if err != nil {
		t.Fatalf("ensuring board for %s: %v", a.Email, err)
	}
	inv, err := s.CreateInvite(ctx, model.Invite{BoardID: board.ID, InviterID: a.ID, InvitedEmail: b.Email})
	if err != nil {
		t.Fatalf("inviting %s: %v", b.Email, err)
	}
	if _, err := s.AcceptInvite(ctx, inv.Token, b.ID, inv.CreatedAt); err != nil {
		t.Fatalf("accepting invite for %s: %v", b.Email, err)
	}
}
