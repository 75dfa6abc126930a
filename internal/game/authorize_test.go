package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moonvale/nachtrat/server/internal/models"
)

func TestAuthorize_Matrix(t *testing.T) {
	e, _ := newTestEngine(WinRuleFinalTwo)
	gameID, players := setupSession(t, e, 6)
	startGame(t, e, gameID, players, sixPlayerRoles())
	wolf, doctor, police, villager := players[0], players[1], players[2], players[3]

	target := targetData(villager.ID)

	cases := []struct {
		name   string
		client string
		action models.Action
		data   models.CommandData
		kind   Kind
	}{
		{"non-host cannot assign roles", wolf.ClientID, models.ActionAssignRoles, models.CommandData{}, KindForbidden},
		{"non-host cannot advance phase", wolf.ClientID, models.ActionNextPhase, models.CommandData{}, KindForbidden},
		{"host cannot select as wolf", hostClientID, models.ActionWolfSelect, target, KindForbidden},
		{"doctor cannot select as wolf", doctor.ClientID, models.ActionWolfSelect, target, KindForbidden},
		{"wolf cannot select before wake", wolf.ClientID, models.ActionWolfSelect, target, KindForbidden},
		{"doctor cannot save during wolf phase", doctor.ClientID, models.ActionDoctorSave, target, KindForbidden},
		{"police cannot inspect during wolf phase", police.ClientID, models.ActionPoliceInspect, target, KindForbidden},
		{"non-host cannot reveal", wolf.ClientID, models.ActionRevealDead, models.CommandData{}, KindForbidden},
		{"host cannot reveal outside night_police", hostClientID, models.ActionRevealDead, models.CommandData{}, KindForbidden},
		{"voting is closed at night", villager.ClientID, models.ActionVote, target, KindForbidden},
		{"host cannot vote", hostClientID, models.ActionVote, target, KindForbidden},
		{"host cannot request leave", hostClientID, models.ActionRequestLeave, models.CommandData{}, KindForbidden},
		{"non-host cannot remove players", wolf.ClientID, models.ActionRemovePlayer, models.CommandData{ParticipantID: &villager.ID}, KindForbidden},
		{"non-host cannot end the game", wolf.ClientID, models.ActionEndGame, models.CommandData{}, KindForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := runErr(t, e, gameID, tc.client, tc.action, tc.data)
			assert.Equal(t, tc.kind, KindOf(err))
		})
	}

	// Sanity: the same wolf pick is legal once the host wakes the phase.
	advance(t, e, gameID)
	run(t, e, gameID, wolf.ClientID, models.ActionWolfSelect, target)
}

func TestAuthorize_DeadRoleHolder(t *testing.T) {
	e, st := newTestEngine(WinRuleFinalTwo)
	gameID, players := setupSession(t, e, 6)
	startGame(t, e, gameID, players, sixPlayerRoles())
	wolf, villager := players[0], players[3]

	mutate(t, st, gameID, func(g *models.Game) {
		g.ParticipantByID(wolf.ID).Alive = false
	})

	advance(t, e, gameID)
	err := runErr(t, e, gameID, wolf.ClientID, models.ActionWolfSelect, targetData(villager.ID))
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestAuthorize_EndedSessionRejectsNextPhase(t *testing.T) {
	e, st := newTestEngine(WinRuleFinalTwo)
	gameID, players := setupSession(t, e, 6)
	startGame(t, e, gameID, players, sixPlayerRoles())

	mutate(t, st, gameID, func(g *models.Game) {
		g.Phase = models.PhaseEnded
		g.WinState = models.WinVillagers
	})

	err := runErr(t, e, gameID, hostClientID, models.ActionNextPhase, models.CommandData{})
	assert.Equal(t, KindPreconditions, KindOf(err))
}

func TestAuthorize_AssignRolesOnlyInLobby(t *testing.T) {
	e, _ := newTestEngine(WinRuleFinalTwo)
	gameID, players := setupSession(t, e, 6)
	startGame(t, e, gameID, players, sixPlayerRoles())

	err := runErr(t, e, gameID, hostClientID, models.ActionAssignRoles, models.CommandData{})
	assert.Equal(t, KindForbidden, KindOf(err))
}
