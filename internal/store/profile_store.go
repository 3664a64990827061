package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/sprintwithfriends/internal/model"
)

const profileColumns = "id, email, name, avatar_url, created_at, updated_at"

// GetProfile retrieves a profile by user id.
func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := s.db.GetContext(ctx, &p, "SELECT "+profileColumns+" FROM profiles WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile %s: %w", id, err)
	}
	return &p, nil
}

// GetProfileByEmail retrieves a profile by normalized email.
func (s *SQLiteStore) GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	email = model.NormalizeEmail(email)
	var p model.Profile
	err := s.db.GetContext(ctx, &p, "SELECT "+profileColumns+" FROM profiles WHERE email = ?", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile for %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile for %s: %w", email, err)
	}
	return &p, nil
}

// GetOrCreateProfileByEmail returns the profile registered for email,
// creating it on first sign-in.
func (s *SQLiteStore) GetOrCreateProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	email = model.NormalizeEmail(email)
	if !model.ValidEmail(email) {
		return nil, fmt.Errorf("email %q: %w", email, ErrInvalid)
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO profiles (id, email, name, created_at, updated_at)
		VALUES (?, ?, '', ?, ?)`,
		uuid.New().String(), email, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating profile for %s: %w", email, err)
	}
	return s.GetProfileByEmail(ctx, email)
}

// GetProfiles retrieves the profiles for the given ids. Unknown ids are skipped.
func (s *SQLiteStore) GetProfiles(ctx context.Context, ids []string) ([]model.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT "+profileColumns+" FROM profiles WHERE id IN (?) ORDER BY name, email", ids)
	if err != nil {
		return nil, fmt.Errorf("building profiles query: %w", err)
	}
	var profiles []model.Profile
	if err := s.db.SelectContext(ctx, &profiles, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	return profiles, nil
}

// UpdateProfileName sets the display name of a profile.
func (s *SQLiteStore) UpdateProfileName(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("profile name must not be empty: %w", ErrInvalid)
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE profiles SET name = ?, updated_at = ? WHERE id = ?",
		name, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating profile %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return nil
}
