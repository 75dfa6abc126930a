package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonvale/nachtrat/server/internal/models"
)

func TestWerewolfCount(t *testing.T) {
	assert.Equal(t, 1, werewolfCount(6))
	assert.Equal(t, 1, werewolfCount(8))
	assert.Equal(t, 2, werewolfCount(9))
	assert.Equal(t, 2, werewolfCount(12))
	assert.Equal(t, 3, werewolfCount(13))
	assert.Equal(t, 3, werewolfCount(20))
}

func TestAssignRoles_Distribution(t *testing.T) {
	for n := 6; n <= 20; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			e, st := newTestEngine(WinRuleFinalTwo)
			gameID, _ := setupSession(t, e, n)
			run(t, e, gameID, hostClientID, models.ActionAssignRoles, models.CommandData{})

			g := snapshot(t, st, gameID)
			counts := map[models.Role]int{}
			for _, p := range g.NonHosts() {
				counts[p.Role]++
				assert.True(t, p.Alive)
			}
			assert.Equal(t, werewolfCount(n), counts[models.RoleWerewolf])
			assert.Equal(t, 1, counts[models.RoleDoctor])
			assert.Equal(t, 1, counts[models.RolePolice])
			assert.Equal(t, n-werewolfCount(n)-2, counts[models.RoleVillager])

			require.NotNil(t, g.Host())
			assert.Equal(t, models.RoleNone, g.Host().Role)

			assert.Equal(t, models.PhaseNightWolf, g.Phase)
			assert.False(t, g.Round.PhaseStarted)
			assert.Equal(t, 0, g.DayCount)
		})
	}
}

func TestAssignRoles_TooFewPlayers(t *testing.T) {
	e, _ := newTestEngine(WinRuleFinalTwo)
	gameID, _ := setupSession(t, e, 5)

	err := runErr(t, e, gameID, hostClientID, models.ActionAssignRoles, models.CommandData{})
	assert.Equal(t, KindPreconditions, KindOf(err))
}
