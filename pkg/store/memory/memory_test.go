package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/store"
)

func TestStore_InsertAndLookups(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	dob := time.Date(1995, time.May, 15, 13, 0, 0, 0, time.UTC)

	john, err := s.Insert(ctx, &models.PlayerRecord{FirstName: "John", LastName: "Smith", Email: models.Ptr("John@Example.com"), DateOfBirth: &dob})
	require.NoError(t, err)
	_, err = s.Insert(ctx, &models.PlayerRecord{FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)

	exact, err := s.FindExact(ctx, " john", "SMITH ", time.Date(1995, time.May, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, john.ID, exact[0].ID)

	byEmail, err := s.FindByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, john.ID, byEmail.ID)

	missing, err := s.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = s.Insert(ctx, &models.PlayerRecord{FirstName: "Other", LastName: "Person", Email: models.Ptr("JOHN@example.com")})
	assert.ErrorIs(t, err, models.ErrEmailConflict)

	_, err = s.GetByID(ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	p, err := s.Insert(ctx, &models.PlayerRecord{FirstName: "John", LastName: "Smith", Nationality: models.Ptr("USA")})
	require.NoError(t, err)
	*p.Nationality = "CAN"

	stored, err := s.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "USA", *stored.Nationality)
}

func TestStore_FindPrefiltered(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, p := range []models.PlayerRecord{
		{FirstName: "John", LastName: "Smith"},
		{FirstName: "Alice", LastName: "Smythe"},
		{FirstName: "Johanna", LastName: "Brown"},
		{FirstName: "Zed", LastName: "Zulu", Email: models.Ptr("zed@example.com")},
		{FirstName: "Ann", LastName: "Other"},
	} {
		_, err := s.Insert(ctx, &p)
		require.NoError(t, err)
	}

	found, err := s.FindPrefiltered(ctx, models.Prefilter{LastNamePrefix: "sm", FirstNamePrefix: "jo", Email: "ZED@example.com"})
	require.NoError(t, err)
	require.Len(t, found, 4)
	assert.Equal(t, "Zed", found[3].FirstName)

	limited, err := s.FindPrefiltered(ctx, models.Prefilter{LastNamePrefix: "sm", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "John", limited[0].FirstName)

	none, err := s.FindPrefiltered(ctx, models.Prefilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_ActiveJerseyIsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.AddMembership(ctx, &models.TeamMembership{PlayerID: 1, TeamID: 7, JerseyNumber: models.Ptr(10), IsActive: true})
	require.NoError(t, err)
	_, err = s.AddMembership(ctx, &models.TeamMembership{PlayerID: 2, TeamID: 7, JerseyNumber: models.Ptr(10), IsActive: true})
	assert.ErrorIs(t, err, models.ErrJerseyConflict)

	// other teams and inactive memberships do not collide
	_, err = s.AddMembership(ctx, &models.TeamMembership{PlayerID: 2, TeamID: 8, JerseyNumber: models.Ptr(10), IsActive: true})
	assert.NoError(t, err)
	_, err = s.AddMembership(ctx, &models.TeamMembership{PlayerID: 2, TeamID: 7, JerseyNumber: models.Ptr(10), IsActive: false})
	assert.NoError(t, err)
}

func TestStore_RunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("CommitsOnSuccess", func(t *testing.T) {
		s := NewStore()
		err := s.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
			_, err := tx.Insert(ctx, &models.PlayerRecord{FirstName: "John", LastName: "Smith"})
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 1, s.Count())
	})

	t.Run("RollsBackOnError", func(t *testing.T) {
		s := NewStore()
		boom := errors.New("boom")
		err := s.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
			if _, err := tx.Insert(ctx, &models.PlayerRecord{FirstName: "John", LastName: "Smith"}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, s.Count())
	})

	t.Run("NestedJoinsOuter", func(t *testing.T) {
		s := NewStore()
		boom := errors.New("boom")
		err := s.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
			inner := tx.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
				_, err := tx.Insert(ctx, &models.PlayerRecord{FirstName: "John", LastName: "Smith"})
				return err
			})
			require.NoError(t, inner)
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, s.Count())
	})

	t.Run("CanceledContextDiscards", func(t *testing.T) {
		s := NewStore()
		cctx, cancel := context.WithCancel(ctx)
		err := s.RunInTx(cctx, func(ctx context.Context, tx store.Store) error {
			_, err := tx.Insert(ctx, &models.PlayerRecord{FirstName: "John", LastName: "Smith"})
			cancel()
			return err
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, s.Count())
	})
}

func TestStore_AddRosterEntryOncePerMatch(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first, err := s.AddRosterEntry(ctx, &models.RosterEntry{PlayerID: 1, MatchID: 3, TeamID: 7})
	require.NoError(t, err)
	second, err := s.AddRosterEntry(ctx, &models.RosterEntry{PlayerID: 1, MatchID: 3, TeamID: 7, Starter: true})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	entries, err := s.ListRosterEntriesFor(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
