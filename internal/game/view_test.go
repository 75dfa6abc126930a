package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonvale/nachtrat/server/internal/models"
)

func TestProject_RoleSecrecy(t *testing.T) {
	e, _ := newTestEngine(WinRuleFinalTwo)
	gameID, players := setupSession(t, e, 9)
	run(t, e, gameID, hostClientID, models.ActionAssignRoles, models.CommandData{})
	ctx := context.Background()

	for _, viewer := range players {
		view, err := e.Project(ctx, gameID, viewer.ClientID)
		require.NoError(t, err)

		require.NotEqual(t, models.RoleNone, view.You.Role, "every player knows their own role")
		for _, pv := range view.Participants {
			if pv.ID == viewer.ID {
				assert.NotEmpty(t, pv.Role)
			} else {
				assert.Empty(t, pv.Role, "viewer %s must not see the role of %s", viewer.DisplayName, pv.DisplayName)
			}
		}
	}

	hostView, err := e.Project(ctx, gameID, hostClientID)
	require.NoError(t, err)
	for _, pv := range hostView.Participants {
		if !pv.IsHost {
			assert.NotEmpty(t, pv.Role, "the host sees every role")
		}
	}
}

func TestProject_RoundStateMasking(t *testing.T) {
	e, _ := newTestEngine(WinRuleFinalTwo)
	gameID, players := setupSession(t, e, 6)
	startGame(t, e, gameID, players, sixPlayerRoles())
	wolf, doctor, police, villager := players[0], players[1], players[2], players[3]
	ctx := context.Background()

	advance(t, e, gameID)
	run(t, e, gameID, wolf.ClientID, models.ActionWolfSelect, targetData(villager.ID))
	advance(t, e, gameID)
	run(t, e, gameID, doctor.ClientID, models.ActionDoctorSave, targetData(villager.ID))
	advance(t, e, gameID)
	run(t, e, gameID, police.ClientID, models.ActionPoliceInspect, targetData(wolf.ID))

	hostView, err := e.Project(ctx, gameID, hostClientID)
	require.NoError(t, err)
	assert.Len(t, hostView.Round.WolfTargets, 1)
	require.NotNil(t, hostView.Round.DoctorSaveTarget)
	assert.Equal(t, models.InspectWerewolf, hostView.Round.PoliceInspectResult)

	doctorView, err := e.Project(ctx, gameID, doctor.ClientID)
	require.NoError(t, err)
	assert.Empty(t, doctorView.Round.WolfTargets)
	require.NotNil(t, doctorView.Round.DoctorSaveTarget)
	assert.Equal(t, villager.ID, *doctorView.Round.DoctorSaveTarget)
	assert.Empty(t, doctorView.Round.PoliceInspectResult)

	policeView, err := e.Project(ctx, gameID, police.ClientID)
	require.NoError(t, err)
	assert.Equal(t, models.InspectWerewolf, policeView.Round.PoliceInspectResult)
	assert.Nil(t, policeView.Round.DoctorSaveTarget)

	villagerView, err := e.Project(ctx, gameID, villager.ClientID)
	require.NoError(t, err)
	assert.Empty(t, villagerView.Round.WolfTargets)
	assert.Nil(t, villagerView.Round.DoctorSaveTarget)
	assert.Empty(t, villagerView.Round.PoliceInspectResult)
	assert.True(t, villagerView.Round.PhaseStarted, "phaseStarted is public")
}

func TestProject_DeathsPublicAfterReveal(t *testing.T) {
	e, _ := newTestEngine(WinRuleFinalTwo)
	gameID, players := setupSession(t, e, 6)
	startGame(t, e, gameID, players, sixPlayerRoles())
	wolf, villager := players[0], players[3]
	ctx := context.Background()

	advance(t, e, gameID)
	run(t, e, gameID, wolf.ClientID, models.ActionWolfSelect, targetData(villager.ID))
	advance(t, e, gameID)
	advance(t, e, gameID)

	// Before the reveal nobody but the host knows who is marked.
	view, err := e.Project(ctx, gameID, players[4].ClientID)
	require.NoError(t, err)
	assert.Empty(t, view.Round.ResolvedDeaths)

	run(t, e, gameID, hostClientID, models.ActionRevealDead, models.CommandData{})

	view, err = e.Project(ctx, gameID, players[4].ClientID)
	require.NoError(t, err)
	require.Len(t, view.Round.ResolvedDeaths, 1)
	assert.Equal(t, villager.ID, view.Round.ResolvedDeaths[0])
}

func TestProject_LeaveRequestsVisibility(t *testing.T) {
	e, _ := newTestEngine(WinRuleFinalTwo)
	gameID, players := setupSession(t, e, 6)
	leaver, other := players[0], players[1]
	ctx := context.Background()

	run(t, e, gameID, leaver.ClientID, models.ActionRequestLeave, models.CommandData{})

	leaverView, err := e.Project(ctx, gameID, leaver.ClientID)
	require.NoError(t, err)
	assert.Len(t, leaverView.LeaveRequests, 1)

	otherView, err := e.Project(ctx, gameID, other.ClientID)
	require.NoError(t, err)
	assert.Empty(t, otherView.LeaveRequests)

	hostView, err := e.Project(ctx, gameID, hostClientID)
	require.NoError(t, err)
	assert.Len(t, hostView.LeaveRequests, 1)
}

func TestProject_NonParticipantRejected(t *testing.T) {
	e, _ := newTestEngine(WinRuleFinalTwo)
	gameID, _ := setupSession(t, e, 6)

	_, err := e.Project(context.Background(), gameID, "stranger")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}
