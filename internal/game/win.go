package game

import (
	"github.com/moonvale/nachtrat/server/internal/models"
)

// evaluateWin checks the terminal condition over the living players. The
// host is a moderator and never counts.
//
// The default rule is "final two": werewolves win as soon as at most two
// players remain with a wolf among them. The parity rule (wolves reach
// numeric parity with everyone else) can be selected by configuration.
func (e *Engine) evaluateWin(g *models.Game) models.WinState {
	alive := g.AliveNonHosts()
	wolves := 0
	for _, p := range alive {
		if p.Role == models.RoleWerewolf {
			wolves++
		}
	}

	if wolves == 0 {
		return models.WinVillagers
	}
	switch e.winRule {
	case WinRuleParity:
		if wolves >= len(alive)-wolves {
			return models.WinWerewolves
		}
	default:
		if len(alive) <= 2 {
			return models.WinWerewolves
		}
	}
	return models.WinNone
}
