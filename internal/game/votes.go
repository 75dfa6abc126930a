package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/moonvale/nachtrat/server/internal/models"
)

// EliminationOutcome is the payload of eliminate_player.
type EliminationOutcome struct {
	Outcome      string          `json:"outcome"`
	EliminatedID *uuid.UUID      `json:"eliminatedId,omitempty"`
	WinState     models.WinState `json:"winState"`
	Phase        models.Phase    `json:"phase"`
}

const (
	OutcomeEliminated    = "eliminated"
	OutcomeNoElimination = "no_elimination"
)

// castVote upserts the voter's single ballot for (round, phase).
func (e *Engine) castVote(g *models.Game, p *models.Participant, data models.CommandData) (bool, error) {
	t, err := nightTarget(g, data)
	if err != nil {
		return false, err
	}

	for i := range g.Votes {
		v := &g.Votes[i]
		if v.VoterID == p.ID && v.Round == g.DayCount && v.Phase == g.Phase {
			v.TargetID = t.ID
			v.CastAt = time.Now()
			return true, nil
		}
	}
	g.Votes = append(g.Votes, models.Vote{
		GameID:   g.ID,
		VoterID:  p.ID,
		TargetID: t.ID,
		Round:    g.DayCount,
		Phase:    g.Phase,
		CastAt:   time.Now(),
	})
	return true, nil
}

// revokeVote withdraws the voter's ballot for the current (round, phase).
// Revoking a ballot that was never cast is a no-op.
func (e *Engine) revokeVote(g *models.Game, p *models.Participant) (bool, error) {
	for i := range g.Votes {
		v := g.Votes[i]
		if v.VoterID == p.ID && v.Round == g.DayCount && v.Phase == g.Phase {
			g.Votes = append(g.Votes[:i], g.Votes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// finalVote opens the binding ballot. All preliminary day_vote ballots of
// the current round are discarded so everyone re-casts.
func (e *Engine) finalVote(g *models.Game) (bool, error) {
	kept := g.Votes[:0]
	for _, v := range g.Votes {
		if v.Round == g.DayCount && v.Phase == models.PhaseDayVote {
			continue
		}
		kept = append(kept, v)
	}
	g.Votes = kept
	g.Phase = models.PhaseDayFinalVote
	return true, nil
}

// eliminate tallies the binding ballots. A unique plurality target dies; a
// tie or an empty ballot eliminates nobody. Either way the day closes and
// the next night begins, unless the mortality decided the game.
func (e *Engine) eliminate(g *models.Game, res *Result) (bool, error) {
	counts := make(map[uuid.UUID]int)
	total := 0
	for _, v := range g.Votes {
		if v.Round == g.DayCount && v.Phase == models.PhaseDayFinalVote {
			counts[v.TargetID]++
			total++
		}
	}

	outcome := EliminationOutcome{Outcome: OutcomeNoElimination}
	if total > 0 {
		max, ties := 0, 0
		var top uuid.UUID
		for t, c := range counts {
			switch {
			case c > max:
				max, ties, top = c, 1, t
			case c == max:
				ties++
			}
		}
		if ties == 1 {
			victim := g.ParticipantByID(top)
			if victim != nil && victim.Alive {
				victim.Alive = false
				outcome.Outcome = OutcomeEliminated
				outcome.EliminatedID = &top
			}
		}
	}

	if win := e.evaluateWin(g); win != models.WinNone {
		g.WinState = win
		g.Phase = models.PhaseEnded
	} else {
		g.DayCount++
		g.Phase = models.PhaseNightWolf
		g.Round.Reset()
	}
	outcome.WinState = g.WinState
	outcome.Phase = g.Phase
	res.Payload = outcome
	return true, nil
}
