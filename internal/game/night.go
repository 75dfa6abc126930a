package game

import (
	"github.com/google/uuid"

	"github.com/moonvale/nachtrat/server/internal/models"
)

// RevealOutcome is the payload of a successful reveal_dead.
type RevealOutcome struct {
	Deaths   []uuid.UUID     `json:"deaths"`
	WinState models.WinState `json:"winState"`
	Phase    models.Phase    `json:"phase"`
}

// InspectOutcome is the payload returned to the police on police_inspect.
type InspectOutcome struct {
	TargetID uuid.UUID            `json:"targetId"`
	Result   models.InspectResult `json:"result"`
}

// nightTarget validates a role-action target: it must be a living player,
// never the host.
func nightTarget(g *models.Game, data models.CommandData) (*models.Participant, error) {
	if data.TargetID == nil {
		return nil, newError(KindInvalidInput, "targetId is required")
	}
	t := g.ParticipantByID(*data.TargetID)
	if t == nil {
		return nil, newError(KindNotFound, "target not found")
	}
	if t.IsHost {
		return nil, newError(KindForbidden, "the host cannot be targeted")
	}
	if !t.Alive {
		return nil, newError(KindPreconditions, "target is already dead")
	}
	return t, nil
}

// wolfSelect records one wolf's pick for the night. A second pick by the
// same wolf overwrites the first.
func (e *Engine) wolfSelect(g *models.Game, p *models.Participant, data models.CommandData) (bool, error) {
	t, err := nightTarget(g, data)
	if err != nil {
		return false, err
	}
	if g.Round.WolfTargets == nil {
		g.Round.WolfTargets = make(map[uuid.UUID]uuid.UUID)
	}
	g.Round.WolfTargets[p.ID] = t.ID
	return true, nil
}

// doctorSave records the single protected participant for the night,
// overwriting any earlier choice.
func (e *Engine) doctorSave(g *models.Game, p *models.Participant, data models.CommandData) (bool, error) {
	t, err := nightTarget(g, data)
	if err != nil {
		return false, err
	}
	g.Round.DoctorSaveTarget = &t.ID
	return true, nil
}

// policeInspect records the inspection and its result immediately; the
// later reveal only seals what was learned here. Re-inspecting overwrites
// both target and result.
func (e *Engine) policeInspect(g *models.Game, p *models.Participant, data models.CommandData, res *Result) (bool, error) {
	t, err := nightTarget(g, data)
	if err != nil {
		return false, err
	}
	g.Round.PoliceInspectTarget = &t.ID
	if t.Role == models.RoleWerewolf {
		g.Round.PoliceInspectResult = models.InspectWerewolf
	} else {
		g.Round.PoliceInspectResult = models.InspectNotWerewolf
	}
	res.Payload = InspectOutcome{TargetID: t.ID, Result: g.Round.PoliceInspectResult}
	return true, nil
}

// revealDead resolves the night: the deduplicated wolf target set minus the
// doctor's save dies, all at once. The session then enters reveal, or ends
// if the mortality decided the game.
func (e *Engine) revealDead(g *models.Game, res *Result) (bool, error) {
	saved := uuid.Nil
	if g.Round.DoctorSaveTarget != nil {
		saved = *g.Round.DoctorSaveTarget
	}

	// Deduplicate targets in participant order so the death list is stable.
	targeted := make(map[uuid.UUID]bool, len(g.Round.WolfTargets))
	for _, t := range g.Round.WolfTargets {
		targeted[t] = true
	}
	deaths := make([]uuid.UUID, 0, len(targeted))
	for _, p := range g.Participants {
		if !targeted[p.ID] || p.ID == saved {
			continue
		}
		if p.Alive {
			p.Alive = false
		}
		deaths = append(deaths, p.ID)
	}

	g.Round.ResolvedDeaths = deaths
	if win := e.evaluateWin(g); win != models.WinNone {
		g.WinState = win
		g.Phase = models.PhaseEnded
	} else {
		g.Phase = models.PhaseReveal
	}
	g.Round.PhaseStarted = false

	res.Payload = RevealOutcome{Deaths: deaths, WinState: g.WinState, Phase: g.Phase}
	return true, nil
}
