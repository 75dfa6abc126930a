package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// GAME MODELS
// ============================================================================

// Game is the aggregate root for one session. The store persists and loads
// it as a unit; all command handlers mutate it under the per-session lock.
type Game struct {
	ID           uuid.UUID `json:"id"`
	JoinCode     string    `json:"join_code"`
	Phase        Phase     `json:"phase"`
	DayCount     int       `json:"day_count"`
	WinState     WinState  `json:"win_state"`
	HostClientID string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	HostSeenAt   time.Time `json:"-"`

	Participants  []*Participant `json:"participants,omitempty"`
	Round         RoundState     `json:"round"`
	Votes         []Vote         `json:"votes,omitempty"`
	LeaveRequests []LeaveRequest `json:"leave_requests,omitempty"`
}

type Phase string

const (
	PhaseLobby        Phase = "lobby"
	PhaseNightWolf    Phase = "night_wolf"
	PhaseNightDoctor  Phase = "night_doctor"
	PhaseNightPolice  Phase = "night_police"
	PhaseReveal       Phase = "reveal"
	PhaseDayVote      Phase = "day_vote"
	PhaseDayFinalVote Phase = "day_final_vote"
	PhaseEnded        Phase = "ended"
)

// IsNight reports whether p is one of the three night sub-phases.
func (p Phase) IsNight() bool {
	return p == PhaseNightWolf || p == PhaseNightDoctor || p == PhaseNightPolice
}

// IsVoting reports whether votes may be cast in p.
func (p Phase) IsVoting() bool {
	return p == PhaseDayVote || p == PhaseDayFinalVote
}

type WinState string

const (
	WinNone       WinState = "none"
	WinVillagers  WinState = "villagers"
	WinWerewolves WinState = "werewolves"
)

// ============================================================================
// PARTICIPANT MODELS
// ============================================================================

type Participant struct {
	ID          uuid.UUID `json:"id"`
	GameID      uuid.UUID `json:"game_id"`
	ClientID    string    `json:"-"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"-"`
	Alive       bool      `json:"alive"`
	IsHost      bool      `json:"is_host"`
	JoinedAt    time.Time `json:"joined_at"`
	LastSeenAt  time.Time `json:"-"`
}

type Role string

const (
	RoleNone     Role = "none"
	RoleVillager Role = "villager"
	RoleWerewolf Role = "werewolf"
	RoleDoctor   Role = "doctor"
	RolePolice   Role = "police"
)

// Valid reports whether r is one of the assignable roles (or none).
func (r Role) Valid() bool {
	switch r {
	case RoleNone, RoleVillager, RoleWerewolf, RoleDoctor, RolePolice:
		return true
	}
	return false
}

// ============================================================================
// ROUND STATE
// ============================================================================

// RoundState holds the transient per-night selections. All fields reset to
// their empty forms when a new night cycle begins.
type RoundState struct {
	PhaseStarted        bool                    `json:"phase_started"`
	WolfTargets         map[uuid.UUID]uuid.UUID `json:"wolf_targets,omitempty"`
	DoctorSaveTarget    *uuid.UUID              `json:"doctor_save_target,omitempty"`
	PoliceInspectTarget *uuid.UUID              `json:"police_inspect_target,omitempty"`
	PoliceInspectResult InspectResult           `json:"police_inspect_result,omitempty"`
	ResolvedDeaths      []uuid.UUID             `json:"resolved_deaths,omitempty"`
}

type InspectResult string

const (
	InspectNone        InspectResult = "none"
	InspectWerewolf    InspectResult = "werewolf"
	InspectNotWerewolf InspectResult = "not_werewolf"
)

// Reset clears every transient field back to fresh-night form.
func (rs *RoundState) Reset() {
	rs.PhaseStarted = false
	rs.WolfTargets = make(map[uuid.UUID]uuid.UUID)
	rs.DoctorSaveTarget = nil
	rs.PoliceInspectTarget = nil
	rs.PoliceInspectResult = InspectNone
	rs.ResolvedDeaths = nil
}

// ============================================================================
// VOTE MODELS
// ============================================================================

// Vote is keyed by (voter, round, phase); a second cast overwrites the first.
type Vote struct {
	GameID   uuid.UUID `json:"game_id"`
	VoterID  uuid.UUID `json:"voter_id"`
	TargetID uuid.UUID `json:"target_id"`
	Round    int       `json:"round"`
	Phase    Phase     `json:"phase"`
	CastAt   time.Time `json:"cast_at"`
}

// ============================================================================
// LEAVE REQUESTS
// ============================================================================

type LeaveRequestStatus string

const (
	LeaveStatusPending  LeaveRequestStatus = "pending"
	LeaveStatusApproved LeaveRequestStatus = "approved"
	LeaveStatusDenied   LeaveRequestStatus = "denied"
)

type LeaveRequest struct {
	ID            uuid.UUID          `json:"id"`
	GameID        uuid.UUID          `json:"game_id"`
	ParticipantID uuid.UUID          `json:"participant_id"`
	Status        LeaveRequestStatus `json:"status"`
	ProcessedBy   *uuid.UUID         `json:"processed_by,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	ProcessedAt   *time.Time         `json:"processed_at,omitempty"`
}

// ============================================================================
// AGGREGATE HELPERS
// ============================================================================

// ParticipantByClient resolves the participant bound to a client identity.
func (g *Game) ParticipantByClient(clientID string) *Participant {
	for _, p := range g.Participants {
		if p.ClientID == clientID {
			return p
		}
	}
	return nil
}

// ParticipantByID resolves a participant by its id.
func (g *Game) ParticipantByID(id uuid.UUID) *Participant {
	for _, p := range g.Participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// NonHosts returns the players of the session, host excluded.
func (g *Game) NonHosts() []*Participant {
	out := make([]*Participant, 0, len(g.Participants))
	for _, p := range g.Participants {
		if !p.IsHost {
			out = append(out, p)
		}
	}
	return out
}

// AliveNonHosts returns the living players, host excluded.
func (g *Game) AliveNonHosts() []*Participant {
	out := make([]*Participant, 0, len(g.Participants))
	for _, p := range g.Participants {
		if !p.IsHost && p.Alive {
			out = append(out, p)
		}
	}
	return out
}

// Host returns the host participant, or nil if the session has none.
func (g *Game) Host() *Participant {
	for _, p := range g.Participants {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// PendingLeaveRequest returns the pending request for a participant, if any.
func (g *Game) PendingLeaveRequest(participantID uuid.UUID) *LeaveRequest {
	for i := range g.LeaveRequests {
		lr := &g.LeaveRequests[i]
		if lr.ParticipantID == participantID && lr.Status == LeaveStatusPending {
			return lr
		}
	}
	return nil
}

// Clone returns a deep copy of the aggregate. The in-memory store hands
// copies to readers and mutators so a failed command never leaks partial
// state.
func (g *Game) Clone() *Game {
	cp := *g
	cp.Participants = make([]*Participant, len(g.Participants))
	for i, p := range g.Participants {
		pc := *p
		cp.Participants[i] = &pc
	}
	cp.Votes = append([]Vote(nil), g.Votes...)
	cp.LeaveRequests = append([]LeaveRequest(nil), g.LeaveRequests...)
	cp.Round = g.Round
	if g.Round.WolfTargets != nil {
		cp.Round.WolfTargets = make(map[uuid.UUID]uuid.UUID, len(g.Round.WolfTargets))
		for k, v := range g.Round.WolfTargets {
			cp.Round.WolfTargets[k] = v
		}
	}
	if g.Round.DoctorSaveTarget != nil {
		t := *g.Round.DoctorSaveTarget
		cp.Round.DoctorSaveTarget = &t
	}
	if g.Round.PoliceInspectTarget != nil {
		t := *g.Round.PoliceInspectTarget
		cp.Round.PoliceInspectTarget = &t
	}
	cp.Round.ResolvedDeaths = append([]uuid.UUID(nil), g.Round.ResolvedDeaths...)
	return &cp
}

// ============================================================================
// COMMAND MODELS
// ============================================================================

type Action string

const (
	ActionAssignRoles   Action = "assign_roles"
	ActionNextPhase     Action = "next_phase"
	ActionWolfSelect    Action = "wolf_select"
	ActionDoctorSave    Action = "doctor_save"
	ActionPoliceInspect Action = "police_inspect"
	ActionRevealDead    Action = "reveal_dead"
	ActionBeginVoting   Action = "begin_voting"
	ActionVote          Action = "vote"
	ActionRevokeVote    Action = "revoke_vote"
	ActionFinalVote     Action = "final_vote"
	ActionEliminate     Action = "eliminate_player"
	ActionRequestLeave  Action = "request_leave"
	ActionApproveLeave  Action = "approve_leave"
	ActionDenyLeave     Action = "deny_leave"
	ActionRemovePlayer  Action = "remove_player"
	ActionChangeRole    Action = "change_role"
	ActionEndGame       Action = "end_game"
)

// CommandData is the action-specific payload of a command. Unused fields
// stay nil for actions that do not need them.
type CommandData struct {
	TargetID      *uuid.UUID `json:"targetId,omitempty"`
	ParticipantID *uuid.UUID `json:"participantId,omitempty"`
	NewRole       *Role      `json:"newRole,omitempty"`
	FromPhase     Phase      `json:"from,omitempty"`
	ToPhase       *Phase     `json:"phase,omitempty"`
}

type Command struct {
	Action Action      `json:"action"`
	Data   CommandData `json:"data"`
}

// ============================================================================
// WIRE / REQUEST MODELS
// ============================================================================

type CreateSessionRequest struct {
	HostName string `json:"hostName" binding:"required,min=1,max=40"`
	ClientID string `json:"clientId" binding:"required"`
}

type CreateSessionResponse struct {
	SessionID         uuid.UUID `json:"sessionId"`
	JoinCode          string    `json:"joinCode"`
	HostParticipantID uuid.UUID `json:"hostParticipantId"`
	ClientToken       string    `json:"clientToken,omitempty"`
}

type JoinSessionRequest struct {
	JoinCode    string `json:"joinCode" binding:"required,len=6"`
	DisplayName string `json:"displayName" binding:"required,min=1,max=40"`
	ClientID    string `json:"clientId" binding:"required"`
}

type JoinSessionResponse struct {
	SessionID     uuid.UUID `json:"sessionId"`
	ParticipantID uuid.UUID `json:"participantId"`
	ClientToken   string    `json:"clientToken,omitempty"`
}

type CommandRequest struct {
	Action   Action      `json:"action" binding:"required"`
	ClientID string      `json:"clientId"`
	Data     CommandData `json:"data"`
}

// ============================================================================
// WEBSOCKET MESSAGES
// ============================================================================

type WSMessageType string

const (
	// WSTypeGameDirty tells subscribers state changed; they re-fetch their
	// projection. The push channel itself never carries roles.
	WSTypeGameDirty     WSMessageType = "game_dirty"
	WSTypeSessionClosed WSMessageType = "session_closed"
	WSTypePing          WSMessageType = "ping"
	WSTypePong          WSMessageType = "pong"
)

type WSMessage struct {
	Type      WSMessageType `json:"type"`
	SessionID uuid.UUID     `json:"session_id"`
	Timestamp time.Time     `json:"timestamp"`
}
