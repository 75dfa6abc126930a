package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/moonvale/nachtrat/server/internal/models"
)

// requestLeave files a pending leave request for the caller. A participant
// holds at most one pending request at a time.
func (e *Engine) requestLeave(g *models.Game, p *models.Participant) (bool, error) {
	if g.PendingLeaveRequest(p.ID) != nil {
		return false, newError(KindConflict, "a leave request is already pending")
	}
	g.LeaveRequests = append(g.LeaveRequests, models.LeaveRequest{
		ID:            uuid.New(),
		GameID:        g.ID,
		ParticipantID: p.ID,
		Status:        models.LeaveStatusPending,
		CreatedAt:     time.Now(),
	})
	return true, nil
}

// approveLeave grants a pending request and removes the participant.
func (e *Engine) approveLeave(g *models.Game, host *models.Participant, data models.CommandData) (bool, error) {
	if data.ParticipantID == nil {
		return false, newError(KindInvalidInput, "participantId is required")
	}
	lr := g.PendingLeaveRequest(*data.ParticipantID)
	if lr == nil {
		return false, newError(KindNotFound, "no pending leave request for participant")
	}
	now := time.Now()
	lr.Status = models.LeaveStatusApproved
	lr.ProcessedBy = &host.ID
	lr.ProcessedAt = &now

	e.removeParticipant(g, *data.ParticipantID)
	return true, nil
}

// denyLeave rejects a pending request; the participant stays in the game.
func (e *Engine) denyLeave(g *models.Game, host *models.Participant, data models.CommandData) (bool, error) {
	if data.ParticipantID == nil {
		return false, newError(KindInvalidInput, "participantId is required")
	}
	lr := g.PendingLeaveRequest(*data.ParticipantID)
	if lr == nil {
		return false, newError(KindNotFound, "no pending leave request for participant")
	}
	now := time.Now()
	lr.Status = models.LeaveStatusDenied
	lr.ProcessedBy = &host.ID
	lr.ProcessedAt = &now
	return true, nil
}

// removePlayer ejects a participant without a leave request.
func (e *Engine) removePlayer(g *models.Game, data models.CommandData) (bool, error) {
	if data.ParticipantID == nil {
		return false, newError(KindInvalidInput, "participantId is required")
	}
	p := g.ParticipantByID(*data.ParticipantID)
	if p == nil {
		return false, newError(KindNotFound, "participant not found")
	}
	if p.IsHost {
		return false, newError(KindForbidden, "the host cannot be removed")
	}
	e.removeParticipant(g, p.ID)
	return true, nil
}

// endGame marks the session ended; the dispatcher then destroys it and
// tells subscribers the session is gone.
func (e *Engine) endGame(g *models.Game, res *Result) (bool, error) {
	g.Phase = models.PhaseEnded
	res.destroySession = true
	return true, nil
}

// removeParticipant deletes a participant and every piece of state that
// references them, then applies the attrition rule: an in-progress game
// that drops below the minimum player count resets to the lobby.
func (e *Engine) removeParticipant(g *models.Game, id uuid.UUID) {
	for i, p := range g.Participants {
		if p.ID == id {
			g.Participants = append(g.Participants[:i], g.Participants[i+1:]...)
			break
		}
	}

	kept := g.Votes[:0]
	for _, v := range g.Votes {
		if v.VoterID == id || v.TargetID == id {
			continue
		}
		kept = append(kept, v)
	}
	g.Votes = kept

	reqs := g.LeaveRequests[:0]
	for _, lr := range g.LeaveRequests {
		if lr.ParticipantID == id && lr.Status == models.LeaveStatusPending {
			continue
		}
		reqs = append(reqs, lr)
	}
	g.LeaveRequests = reqs

	delete(g.Round.WolfTargets, id)
	for wolf, target := range g.Round.WolfTargets {
		if target == id {
			delete(g.Round.WolfTargets, wolf)
		}
	}
	if g.Round.DoctorSaveTarget != nil && *g.Round.DoctorSaveTarget == id {
		g.Round.DoctorSaveTarget = nil
	}
	if g.Round.PoliceInspectTarget != nil && *g.Round.PoliceInspectTarget == id {
		g.Round.PoliceInspectTarget = nil
		g.Round.PoliceInspectResult = models.InspectNone
	}

	if g.Phase == models.PhaseLobby || g.Phase == models.PhaseEnded {
		return
	}
	if len(g.NonHosts()) < MinPlayers {
		e.resetToLobby(g)
		return
	}
	// A departure can decide the game, for example when the last wolf is
	// removed.
	if win := e.evaluateWin(g); win != models.WinNone {
		g.WinState = win
		g.Phase = models.PhaseEnded
	}
}

// resetToLobby is the attrition reset: the session survives, the game does
// not. Roles and mortality are wiped and the remaining players wait for a
// fresh deal.
func (e *Engine) resetToLobby(g *models.Game) {
	g.Phase = models.PhaseLobby
	g.DayCount = 0
	g.WinState = models.WinNone
	g.Votes = nil
	g.LeaveRequests = nil
	g.Round.Reset()
	for _, p := range g.Participants {
		if !p.IsHost {
			p.Role = models.RoleNone
			p.Alive = true
		}
	}
}
