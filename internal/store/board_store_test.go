package store_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/store"
	"github.com/nhle/sprintwithfriends/tests/testutil"
)

func TestEnsurePersonalBoardCreatesDefaultLanes(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ada := testutil.NewProfile(t, s, "ada@example.com", "Ada")

	b, created, err := s.EnsurePersonalBoard(ctx, ada.ID, "My Personal Board", 20)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, ada.ID, b.OwnerID)
	assert.Equal(t, 20, b.SprintCapacityPoints)
	assert.Equal(t, model.BoardVisibilityPrivate, b.Visibility)

	lanes, err := s.GetLanes(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, lanes, 3)
	for i, name := range model.DefaultLaneNames {
		assert.Equal(t, name, lanes[i].Name)
		assert.Equal(t, i, lanes[i].Position)
	}
}

func TestEnsurePersonalBoardIsIdempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ada := testutil.NewProfile(t, s, "ada@example.com", "")

	first, _, err := s.EnsurePersonalBoard(ctx, ada.ID, "My Personal Board", 20)
	require.NoError(t, err)
	second, created, err := s.EnsurePersonalBoard(ctx, ada.ID, "Other name", 5)
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "My Personal Board", second.Name)

	lanes, err := s.GetLanes(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, lanes, 3)
}

func TestEnsurePersonalBoardConcurrentCallersShareOneBoard(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ada := testutil.NewProfile(t, s, "ada@example.com", "")

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, _, err := s.EnsurePersonalBoard(ctx, ada.ID, "My Personal Board", 20)
			if assert.NoError(t, err) {
				ids[i] = b.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	lanes, err := s.GetLanes(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, lanes, 3)
}

func TestEnsurePersonalBoardValidates(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ada := testutil.NewProfile(t, s, "ada@example.com", "")

	_, _, err := s.EnsurePersonalBoard(ctx, ada.ID, "  ", 20)
	assert.ErrorIs(t, err, store.ErrInvalid)
	_, _, err = s.EnsurePersonalBoard(ctx, ada.ID, "Board", -1)
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestGetBoardNotFound(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.GetBoard(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetBoardByOwner(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSchemaVersion(t *testing.T) {
	s := testutil.NewTestStore(t)

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestReopenKeepsSchemaAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swf.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	p, err := s.GetOrCreateProfileByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	got, err := s.GetProfileByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}
