package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonvale/nachtrat/server/internal/models"
)

func testGame(code string) *models.Game {
	g := &models.Game{
		ID:        uuid.New(),
		JoinCode:  code,
		Phase:     models.PhaseLobby,
		WinState:  models.WinNone,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	g.Round.Reset()
	g.Participants = []*models.Participant{{
		ID:       uuid.New(),
		GameID:   g.ID,
		ClientID: "host",
		IsHost:   true,
		Alive:    true,
	}}
	return g
}

func TestMemoryStore_CreateAndLookup(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	g := testGame("123456")

	require.NoError(t, st.Create(ctx, g))

	id, err := st.FindIDByCode(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, g.ID, id)

	_, err = st.FindIDByCode(ctx, "000000")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestMemoryStore_DuplicateJoinCode(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.Create(ctx, testGame("777777")))
	err := st.Create(ctx, testGame("777777"))
	assert.ErrorIs(t, err, ErrCodeConflict)
}

func TestMemoryStore_FailedUpdateLeavesNoEffect(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	g := testGame("123456")
	require.NoError(t, st.Create(ctx, g))

	boom := errors.New("boom")
	_, err := st.Update(ctx, g.ID, func(x *models.Game) (bool, error) {
		x.Phase = models.PhaseNightWolf
		x.DayCount = 99
		return true, boom
	})
	assert.ErrorIs(t, err, boom)

	err = st.View(ctx, g.ID, func(x *models.Game) error {
		assert.Equal(t, models.PhaseLobby, x.Phase)
		assert.Equal(t, 0, x.DayCount)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_ViewSnapshotIsolation(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	g := testGame("123456")
	require.NoError(t, st.Create(ctx, g))

	var leaked *models.Game
	require.NoError(t, st.View(ctx, g.ID, func(x *models.Game) error {
		leaked = x
		return nil
	}))

	// Mutating the snapshot after the callback must not touch the store.
	leaked.Phase = models.PhaseEnded
	leaked.Participants[0].Alive = false

	require.NoError(t, st.View(ctx, g.ID, func(x *models.Game) error {
		assert.Equal(t, models.PhaseLobby, x.Phase)
		assert.True(t, x.Participants[0].Alive)
		return nil
	}))
}

func TestMemoryStore_DeleteReleasesJoinCode(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	g := testGame("123456")
	require.NoError(t, st.Create(ctx, g))

	require.NoError(t, st.Delete(ctx, g.ID))

	err := st.View(ctx, g.ID, func(*models.Game) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.FindIDByCode(ctx, "123456")
	assert.ErrorIs(t, err, ErrCodeNotFound)

	// The code is free for a new session.
	require.NoError(t, st.Create(ctx, testGame("123456")))
	assert.ErrorIs(t, st.Delete(ctx, g.ID), ErrNotFound)
}

func TestMemoryStore_ListIDs(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	a, b := testGame("111111"), testGame("222222")
	require.NoError(t, st.Create(ctx, a))
	require.NoError(t, st.Create(ctx, b))

	ids, err := st.ListIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, ids)
}
