package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/moonvale/nachtrat/server/internal/models"
)

// GameView is the observable projection of a session for one viewer. It is
// the only shape the read path ever serializes; a non-host viewer gets role
// information for exactly one participant: themselves.
type GameView struct {
	SessionID uuid.UUID       `json:"sessionId"`
	JoinCode  string          `json:"joinCode"`
	Phase     models.Phase    `json:"phase"`
	DayCount  int             `json:"dayCount"`
	WinState  models.WinState `json:"winState"`
	UpdatedAt time.Time       `json:"updatedAt"`

	You           ParticipantView    `json:"you"`
	Participants  []ParticipantView  `json:"participants"`
	Round         RoundView          `json:"round"`
	Votes         []VoteView         `json:"votes,omitempty"`
	LeaveRequests []LeaveRequestView `json:"leaveRequests,omitempty"`
}

type ParticipantView struct {
	ID          uuid.UUID   `json:"id"`
	DisplayName string      `json:"displayName"`
	Alive       bool        `json:"alive"`
	IsHost      bool        `json:"isHost"`
	Role        models.Role `json:"role,omitempty"`
}

type RoundView struct {
	PhaseStarted bool `json:"phaseStarted"`

	// Host-only fields.
	WolfTargets map[uuid.UUID]uuid.UUID `json:"wolfTargets,omitempty"`

	// Visible to the host and to the role holder that set them.
	DoctorSaveTarget    *uuid.UUID           `json:"doctorSaveTarget,omitempty"`
	PoliceInspectTarget *uuid.UUID           `json:"policeInspectTarget,omitempty"`
	PoliceInspectResult models.InspectResult `json:"policeInspectResult,omitempty"`

	// Public once the session has entered reveal.
	ResolvedDeaths []uuid.UUID `json:"resolvedDeaths,omitempty"`
}

type VoteView struct {
	VoterID  uuid.UUID    `json:"voterId"`
	TargetID uuid.UUID    `json:"targetId"`
	Round    int          `json:"round"`
	Phase    models.Phase `json:"phase"`
}

type LeaveRequestView struct {
	ID            uuid.UUID                 `json:"id"`
	ParticipantID uuid.UUID                 `json:"participantId"`
	Status        models.LeaveRequestStatus `json:"status"`
	CreatedAt     time.Time                 `json:"createdAt"`
}

// projectGame masks a session aggregate for one viewer. The host sees the
// aggregate in full; everyone else sees their own role and the public
// surface only.
func projectGame(g *models.Game, viewer *models.Participant) *GameView {
	view := &GameView{
		SessionID: g.ID,
		JoinCode:  g.JoinCode,
		Phase:     g.Phase,
		DayCount:  g.DayCount,
		WinState:  g.WinState,
		UpdatedAt: g.UpdatedAt,
	}

	view.Participants = make([]ParticipantView, 0, len(g.Participants))
	for _, p := range g.Participants {
		pv := ParticipantView{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Alive:       p.Alive,
			IsHost:      p.IsHost,
		}
		if viewer.IsHost || p.ID == viewer.ID {
			pv.Role = p.Role
		}
		view.Participants = append(view.Participants, pv)
		if p.ID == viewer.ID {
			view.You = pv
		}
	}

	view.Round = projectRound(g, viewer)
	view.Votes = projectVotes(g, viewer)
	view.LeaveRequests = projectLeaveRequests(g, viewer)
	return view
}

func projectRound(g *models.Game, viewer *models.Participant) RoundView {
	rv := RoundView{PhaseStarted: g.Round.PhaseStarted}

	if viewer.IsHost {
		rv.WolfTargets = g.Round.WolfTargets
		rv.DoctorSaveTarget = g.Round.DoctorSaveTarget
		rv.PoliceInspectTarget = g.Round.PoliceInspectTarget
		rv.PoliceInspectResult = g.Round.PoliceInspectResult
	} else {
		if viewer.Role == models.RoleDoctor {
			rv.DoctorSaveTarget = g.Round.DoctorSaveTarget
		}
		if viewer.Role == models.RolePolice {
			rv.PoliceInspectTarget = g.Round.PoliceInspectTarget
			rv.PoliceInspectResult = g.Round.PoliceInspectResult
		}
	}

	// Deaths become public knowledge the moment the host reveals them and
	// stay visible until the round resets.
	switch g.Phase {
	case models.PhaseReveal, models.PhaseDayVote, models.PhaseDayFinalVote, models.PhaseEnded:
		rv.ResolvedDeaths = g.Round.ResolvedDeaths
	}
	return rv
}

// projectVotes exposes the current round's ballots. Day votes are raised
// hands; they carry no role information and are public.
func projectVotes(g *models.Game, viewer *models.Participant) []VoteView {
	if !viewer.IsHost && !g.Phase.IsVoting() {
		return nil
	}
	out := make([]VoteView, 0, len(g.Votes))
	for _, v := range g.Votes {
		if !viewer.IsHost && v.Round != g.DayCount {
			continue
		}
		out = append(out, VoteView{VoterID: v.VoterID, TargetID: v.TargetID, Round: v.Round, Phase: v.Phase})
	}
	return out
}

func projectLeaveRequests(g *models.Game, viewer *models.Participant) []LeaveRequestView {
	out := make([]LeaveRequestView, 0, len(g.LeaveRequests))
	for _, lr := range g.LeaveRequests {
		if !viewer.IsHost && lr.ParticipantID != viewer.ID {
			continue
		}
		out = append(out, LeaveRequestView{
			ID:            lr.ID,
			ParticipantID: lr.ParticipantID,
			Status:        lr.Status,
			CreatedAt:     lr.CreatedAt,
		})
	}
	return out
}
