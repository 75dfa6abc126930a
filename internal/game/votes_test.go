package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonvale/nachtrat/server/internal/models"
	"github.com/moonvale/nachtrat/server/internal/store"
)

// walkToDayVote drives a fresh 6-player game through an uneventful night
// into day_vote.
func walkToDayVote(t *testing.T, e *Engine, st *store.MemoryStore) (gameID uuid.UUID, players []*models.Participant) {
	t.Helper()
	id, ps := setupSession(t, e, 6)
	startGame(t, e, id, ps, sixPlayerRoles())
	advance(t, e, id)
	advance(t, e, id)
	advance(t, e, id)
	run(t, e, id, hostClientID, models.ActionRevealDead, models.CommandData{})
	run(t, e, id, hostClientID, models.ActionBeginVoting, models.CommandData{})
	require.Equal(t, models.PhaseDayVote, snapshot(t, st, id).Phase)
	return id, ps
}

func TestVote_UpsertByVoterRoundPhase(t *testing.T) {
	e, st := newTestEngine(WinRuleFinalTwo)
	gameID, players := walkToDayVote(t, e, st)
	voter, a, b := players[3], players[4], players[5]

	run(t, e, gameID, voter.ClientID, models.ActionVote, targetData(a.ID))
	run(t, e, gameID, voter.ClientID, models.ActionVote, targetData(b.ID))

	g := snapshot(t, st, gameID)
	require.Len(t, g.Votes, 1, "a re-cast replaces the earlier ballot")
	assert.Equal(t, b.ID, g.Votes[0].TargetID)
	assert.Equal(t, models.PhaseDayVote, g.Votes[0].Phase)
}

func TestVote_RevokeDeletesBallot(t *testing.T) {
	e, st := newTestEngine(WinRuleFinalTwo)
	gameID, players := walkToDayVote(t, e, st)
	voter, target := players[3], players[4]

	run(t, e, gameID, voter.ClientID, models.ActionVote, targetData(target.ID))
	run(t, e, gameID, voter.ClientID, models.ActionRevokeVote, models.CommandData{})

	assert.Empty(t, snapshot(t, st, gameID).Votes)

	// Revoking again is a harmless no-op.
	run(t, e, gameID, voter.ClientID, models.ActionRevokeVote, models.CommandData{})
}

func TestFinalVote_ClearsPreliminaryBallots(t *testing.T) {
	e, st := newTestEngine(WinRuleFinalTwo)
	gameID, players := walkToDayVote(t, e, st)
	target := players[5]

	for _, voter := range players[:4] {
		run(t, e, gameID, voter.ClientID, models.ActionVote, targetData(target.ID))
	}
	run(t, e, gameID, hostClientID, models.ActionFinalVote, models.CommandData{})

	g := snapshot(t, st, gameID)
	assert.Equal(t, models.PhaseDayFinalVote, g.Phase)
	assert.Empty(t, g.Votes, "the binding ballot starts fresh")
}

func TestEliminate_TieAdvancesWithoutDeath(t *testing.T) {
	e, st := newTestEngine(WinRuleFinalTwo)
	gameID, players := walkToDayVote(t, e, st)
	a, b := players[4], players[5]

	run(t, e, gameID, hostClientID, models.ActionFinalVote, models.CommandData{})
	run(t, e, gameID, players[0].ClientID, models.ActionVote, targetData(a.ID))
	run(t, e, gameID, players[1].ClientID, models.ActionVote, targetData(a.ID))
	run(t, e, gameID, players[2].ClientID, models.ActionVote, targetData(b.ID))
	run(t, e, gameID, players[3].ClientID, models.ActionVote, targetData(b.ID))

	res := run(t, e, gameID, hostClientID, models.ActionEliminate, models.CommandData{})
	outcome := res.Payload.(EliminationOutcome)
	assert.Equal(t, OutcomeNoElimination, outcome.Outcome)
	assert.Nil(t, outcome.EliminatedID)

	g := snapshot(t, st, gameID)
	assert.True(t, g.ParticipantByID(a.ID).Alive)
	assert.True(t, g.ParticipantByID(b.ID).Alive)
	assert.Equal(t, models.PhaseNightWolf, g.Phase)
	assert.Equal(t, 1, g.DayCount)
	assert.False(t, g.Round.PhaseStarted)
}

func TestEliminate_EmptyBallotAdvances(t *testing.T) {
	e, st := newTestEngine(WinRuleFinalTwo)
	gameID, _ := walkToDayVote(t, e, st)

	run(t, e, gameID, hostClientID, models.ActionFinalVote, models.CommandData{})
	res := run(t, e, gameID, hostClientID, models.ActionEliminate, models.CommandData{})

	assert.Equal(t, OutcomeNoElimination, res.Payload.(EliminationOutcome).Outcome)
	g := snapshot(t, st, gameID)
	assert.Equal(t, models.PhaseNightWolf, g.Phase)
	assert.Equal(t, 1, g.DayCount)
}

func TestEliminate_PluralityWins(t *testing.T) {
	e, st := newTestEngine(WinRuleFinalTwo)
	gameID, players := walkToDayVote(t, e, st)
	victim := players[5]

	run(t, e, gameID, hostClientID, models.ActionFinalVote, models.CommandData{})
	run(t, e, gameID, players[1].ClientID, models.ActionVote, targetData(victim.ID))
	run(t, e, gameID, players[2].ClientID, models.ActionVote, targetData(victim.ID))
	run(t, e, gameID, players[3].ClientID, models.ActionVote, targetData(players[4].ID))

	res := run(t, e, gameID, hostClientID, models.ActionEliminate, models.CommandData{})
	outcome := res.Payload.(EliminationOutcome)
	require.Equal(t, OutcomeEliminated, outcome.Outcome)
	assert.Equal(t, victim.ID, *outcome.EliminatedID)

	g := snapshot(t, st, gameID)
	assert.False(t, g.ParticipantByID(victim.ID).Alive)
	assert.Equal(t, models.PhaseNightWolf, g.Phase)
	assert.Equal(t, 1, g.DayCount)
}

func TestVote_DeadVoterRejected(t *testing.T) {
	e, st := newTestEngine(WinRuleFinalTwo)
	gameID, players := walkToDayVote(t, e, st)
	dead, target := players[3], players[4]

	mutate(t, st, gameID, func(g *models.Game) {
		g.ParticipantByID(dead.ID).Alive = false
	})

	err := runErr(t, e, gameID, dead.ClientID, models.ActionVote, targetData(target.ID))
	assert.Equal(t, KindForbidden, KindOf(err))
}
