package game

import (
	"github.com/moonvale/nachtrat/server/internal/models"
)

// werewolfCount fixes the wolf pack size by player count.
func werewolfCount(n int) int {
	switch {
	case n <= 8:
		return 1
	case n <= 12:
		return 2
	default:
		return 3
	}
}

// assignRoles deals roles to the non-host players and moves the session
// into the first night. The deal is a uniform random permutation onto the
// role multiset: werewolfCount(n) wolves, one doctor, one police, the rest
// villagers. The host keeps no role.
func (e *Engine) assignRoles(g *models.Game) (bool, error) {
	players := g.NonHosts()
	n := len(players)
	if n < MinPlayers {
		return false, newError(KindPreconditions, "need at least %d players, have %d", MinPlayers, n)
	}

	deck := make([]models.Role, 0, n)
	for i := 0; i < werewolfCount(n); i++ {
		deck = append(deck, models.RoleWerewolf)
	}
	deck = append(deck, models.RoleDoctor, models.RolePolice)
	for len(deck) < n {
		deck = append(deck, models.RoleVillager)
	}

	e.shuffleDeck(deck)
	for i, p := range players {
		p.Role = deck[i]
		p.Alive = true
	}

	g.Phase = models.PhaseNightWolf
	g.DayCount = 0
	g.WinState = models.WinNone
	g.Votes = nil
	g.Round.Reset()
	return true, nil
}

// changeRole lets the host correct a deal before the first night is woken.
func (e *Engine) changeRole(g *models.Game, data models.CommandData) (bool, error) {
	if data.ParticipantID == nil || data.NewRole == nil {
		return false, newError(KindInvalidInput, "participantId and newRole are required")
	}
	if !data.NewRole.Valid() || *data.NewRole == models.RoleNone {
		return false, newError(KindInvalidInput, "invalid role %q", *data.NewRole)
	}
	if g.Phase != models.PhaseNightWolf || g.Round.PhaseStarted {
		return false, newError(KindPreconditions, "roles can only change between the deal and the first wake")
	}

	p := g.ParticipantByID(*data.ParticipantID)
	if p == nil {
		return false, newError(KindNotFound, "participant not found")
	}
	if p.IsHost {
		return false, newError(KindForbidden, "the host has no role")
	}
	p.Role = *data.NewRole
	return true, nil
}
