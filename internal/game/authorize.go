package game

import (
	"github.com/moonvale/nachtrat/server/internal/models"
)

// requirement is one row of the authorization matrix: who may issue an
// action, in which role, during which phases, and whether they must be
// alive. Zero values mean "no constraint".
type requirement struct {
	hostOnly     bool
	nonHostOnly  bool
	role         models.Role
	phases       []models.Phase
	notEnded     bool
	phaseStarted bool
	alive        bool
}

var authMatrix = map[models.Action]requirement{
	models.ActionAssignRoles: {hostOnly: true, phases: []models.Phase{models.PhaseLobby}},
	models.ActionNextPhase:   {hostOnly: true, notEnded: true},
	models.ActionWolfSelect: {
		nonHostOnly: true, role: models.RoleWerewolf, alive: true, phaseStarted: true,
		phases: []models.Phase{models.PhaseNightWolf},
	},
	models.ActionDoctorSave: {
		nonHostOnly: true, role: models.RoleDoctor, alive: true, phaseStarted: true,
		phases: []models.Phase{models.PhaseNightDoctor},
	},
	models.ActionPoliceInspect: {
		nonHostOnly: true, role: models.RolePolice, alive: true, phaseStarted: true,
		phases: []models.Phase{models.PhaseNightPolice},
	},
	models.ActionRevealDead:  {hostOnly: true, phases: []models.Phase{models.PhaseNightPolice}},
	models.ActionBeginVoting: {hostOnly: true, phases: []models.Phase{models.PhaseReveal}},
	models.ActionVote: {
		nonHostOnly: true, alive: true,
		phases: []models.Phase{models.PhaseDayVote, models.PhaseDayFinalVote},
	},
	models.ActionRevokeVote: {
		nonHostOnly: true, alive: true,
		phases: []models.Phase{models.PhaseDayVote, models.PhaseDayFinalVote},
	},
	models.ActionFinalVote:    {hostOnly: true, phases: []models.Phase{models.PhaseDayVote}},
	models.ActionEliminate:    {hostOnly: true, phases: []models.Phase{models.PhaseDayFinalVote}},
	models.ActionRequestLeave: {nonHostOnly: true},
	models.ActionApproveLeave: {hostOnly: true},
	models.ActionDenyLeave:    {hostOnly: true},
	models.ActionRemovePlayer: {hostOnly: true},
	models.ActionChangeRole:   {hostOnly: true},
	models.ActionEndGame:      {hostOnly: true},
}

// authorize applies the matrix row for the action against the resolved
// participant and the session's current state.
func authorize(g *models.Game, p *models.Participant, action models.Action) error {
	req, ok := authMatrix[action]
	if !ok {
		return newError(KindInvalidInput, "unknown action %q", action)
	}

	if req.hostOnly && !p.IsHost {
		return newError(KindForbidden, "action %s requires the host", action)
	}
	if req.nonHostOnly && p.IsHost {
		return newError(KindForbidden, "the host cannot %s", action)
	}
	if req.role != "" && p.Role != req.role {
		return newError(KindForbidden, "action %s requires role %s", action, req.role)
	}
	if req.alive && !p.Alive {
		return newError(KindForbidden, "dead participants cannot %s", action)
	}
	if req.notEnded && g.Phase == models.PhaseEnded {
		return newError(KindPreconditions, "session has ended")
	}
	if len(req.phases) > 0 {
		legal := false
		for _, ph := range req.phases {
			if g.Phase == ph {
				legal = true
				break
			}
		}
		if !legal {
			return newError(KindForbidden, "action %s is not legal in phase %s", action, g.Phase)
		}
	}
	if req.phaseStarted && !g.Round.PhaseStarted {
		return newError(KindForbidden, "the host has not started the %s phase", g.Phase)
	}
	return nil
}
