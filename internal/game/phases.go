package game

import (
	"github.com/google/uuid"

	"github.com/moonvale/nachtrat/server/internal/models"
)

// nextPhase advances the host-driven night progression. The command may
// carry the phase the host believes the session is in; a mismatch means a
// concurrent command won and the caller must refresh before retrying.
//
// Within the night the progression is: night_wolf unstarted, wake to
// night_wolf started, then night_doctor, then night_police. Every other
// transition has a dedicated action (reveal_dead, begin_voting, final_vote,
// eliminate_player) and is rejected here.
func (e *Engine) nextPhase(g *models.Game, data models.CommandData) (bool, error) {
	if data.FromPhase != "" && data.FromPhase != g.Phase {
		return false, newError(KindConflict, "session moved on: expected phase %s, now %s", data.FromPhase, g.Phase)
	}

	var to models.Phase
	switch g.Phase {
	case models.PhaseNightWolf:
		if !g.Round.PhaseStarted {
			// Wake the wolves: stay in night_wolf, open the selection
			// window, discard any selections left over from a previous
			// entry of this phase.
			to = models.PhaseNightWolf
			g.Round.PhaseStarted = true
			g.Round.WolfTargets = make(map[uuid.UUID]uuid.UUID)
			break
		}
		to = models.PhaseNightDoctor
		g.Phase = models.PhaseNightDoctor
		g.Round.PhaseStarted = true
		g.Round.DoctorSaveTarget = nil
	case models.PhaseNightDoctor:
		to = models.PhaseNightPolice
		g.Phase = models.PhaseNightPolice
		g.Round.PhaseStarted = true
		g.Round.PoliceInspectTarget = nil
		g.Round.PoliceInspectResult = models.InspectNone
	case models.PhaseLobby:
		return false, newError(KindPreconditions, "assign roles to leave the lobby")
	case models.PhaseNightPolice:
		return false, newError(KindPreconditions, "use reveal_dead to resolve the night")
	case models.PhaseReveal:
		return false, newError(KindPreconditions, "use begin_voting to open the day vote")
	case models.PhaseDayVote:
		return false, newError(KindPreconditions, "use final_vote to open the final ballot")
	case models.PhaseDayFinalVote:
		return false, newError(KindPreconditions, "use eliminate_player to close the day")
	default:
		return false, newError(KindPreconditions, "no next phase from %s", g.Phase)
	}

	if data.ToPhase != nil && *data.ToPhase != to {
		return false, newError(KindConflict, "session moved on: next phase is %s, not %s", to, *data.ToPhase)
	}
	return true, nil
}

// beginVoting opens the day vote after the host has presented the night's
// deaths.
func (e *Engine) beginVoting(g *models.Game) (bool, error) {
	g.Phase = models.PhaseDayVote
	g.Round.PhaseStarted = false
	return true, nil
}
