package game

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moonvale/nachtrat/server/internal/models"
	"github.com/moonvale/nachtrat/server/internal/store"
)

const hostClientID = "host-client"

func newTestEngine(rule WinRule) (*Engine, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return NewEngine(st, nil, zap.NewNop(), nil, rule), st
}

// setupSession creates a session with a host and n joined players. Player i
// has client id "client-i".
func setupSession(t *testing.T, e *Engine, n int) (uuid.UUID, []*models.Participant) {
	t.Helper()
	ctx := context.Background()

	g, err := e.CreateSession(ctx, "Host", hostClientID)
	require.NoError(t, err)

	players := make([]*models.Participant, 0, n)
	for i := 0; i < n; i++ {
		p, _, err := e.Join(ctx, g.JoinCode, fmt.Sprintf("Player %d", i), clientID(i))
		require.NoError(t, err)
		players = append(players, p)
	}
	return g.ID, players
}

func clientID(i int) string {
	return fmt.Sprintf("client-%d", i)
}

// startGame assigns roles and then forces the given layout through
// change_role, so scenarios control who is wolf, doctor and police.
// roles[i] applies to players[i].
func startGame(t *testing.T, e *Engine, gameID uuid.UUID, players []*models.Participant, roles []models.Role) {
	t.Helper()
	require.Len(t, roles, len(players))

	run(t, e, gameID, hostClientID, models.ActionAssignRoles, models.CommandData{})
	for i, p := range players {
		r := roles[i]
		run(t, e, gameID, hostClientID, models.ActionChangeRole, models.CommandData{
			ParticipantID: &p.ID,
			NewRole:       &r,
		})
	}
}

func run(t *testing.T, e *Engine, gameID uuid.UUID, client string, action models.Action, data models.CommandData) *Result {
	t.Helper()
	res, err := e.Execute(context.Background(), gameID, client, models.Command{Action: action, Data: data})
	require.NoError(t, err, "action %s by %s", action, client)
	return res
}

func runErr(t *testing.T, e *Engine, gameID uuid.UUID, client string, action models.Action, data models.CommandData) error {
	t.Helper()
	_, err := e.Execute(context.Background(), gameID, client, models.Command{Action: action, Data: data})
	require.Error(t, err, "action %s by %s should fail", action, client)
	return err
}

func targetData(id uuid.UUID) models.CommandData {
	return models.CommandData{TargetID: &id}
}

// nextPhase advances via the host without an optimistic guard.
func advance(t *testing.T, e *Engine, gameID uuid.UUID) {
	t.Helper()
	run(t, e, gameID, hostClientID, models.ActionNextPhase, models.CommandData{})
}

func snapshot(t *testing.T, st store.Store, gameID uuid.UUID) *models.Game {
	t.Helper()
	var g *models.Game
	err := st.View(context.Background(), gameID, func(x *models.Game) error {
		g = x.Clone()
		return nil
	})
	require.NoError(t, err)
	return g
}

// mutate applies a raw change to the stored aggregate, bypassing the
// command surface, for scenario setup.
func mutate(t *testing.T, st store.Store, gameID uuid.UUID, fn func(*models.Game)) {
	t.Helper()
	_, err := st.Update(context.Background(), gameID, func(g *models.Game) (bool, error) {
		fn(g)
		return true, nil
	})
	require.NoError(t, err)
}
