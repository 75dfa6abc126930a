// Package notify delivers state-change signals to websocket subscribers.
// Signals carry a session id and nothing else; receivers re-fetch their
// projection over HTTP.
package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/moonvale/nachtrat/server/internal/models"
	ws "github.com/moonvale/nachtrat/server/internal/websocket"
)

// HubNotifier signals the in-process hub directly. It is the delivery path
// for single-node deployments and for tests.
type HubNotifier struct {
	hub *ws.Hub
}

func NewHubNotifier(hub *ws.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) GameDirty(ctx context.Context, sessionID uuid.UUID) {
	n.hub.Signal(sessionID, models.WSTypeGameDirty)
}

func (n *HubNotifier) SessionClosed(ctx context.Context, sessionID uuid.UUID) {
	n.hub.Signal(sessionID, models.WSTypeSessionClosed)
}
