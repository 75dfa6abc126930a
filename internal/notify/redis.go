package notify

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/moonvale/nachtrat/server/internal/models"
	ws "github.com/moonvale/nachtrat/server/internal/websocket"
)

const signalChannel = "nachtrat:signals"

type signalEnvelope struct {
	Type      models.WSMessageType `json:"type"`
	SessionID uuid.UUID            `json:"session_id"`
}

// RedisNotifier fans signals out across instances. Every engine publishes
// to one channel; every instance's Run loop relays received signals to its
// local hub, so subscribers reach the session no matter which instance
// committed the command.
type RedisNotifier struct {
	rdb *redis.Client
	hub *ws.Hub
	log *zap.Logger
}

func NewRedisNotifier(rdb *redis.Client, hub *ws.Hub, log *zap.Logger) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, hub: hub, log: log}
}

func (n *RedisNotifier) GameDirty(ctx context.Context, sessionID uuid.UUID) {
	n.publish(ctx, models.WSTypeGameDirty, sessionID)
}

func (n *RedisNotifier) SessionClosed(ctx context.Context, sessionID uuid.UUID) {
	n.publish(ctx, models.WSTypeSessionClosed, sessionID)
}

func (n *RedisNotifier) publish(ctx context.Context, msgType models.WSMessageType, sessionID uuid.UUID) {
	data, err := json.Marshal(signalEnvelope{Type: msgType, SessionID: sessionID})
	if err != nil {
		n.log.Error("failed to marshal signal envelope", zap.Error(err))
		return
	}
	if err := n.rdb.Publish(ctx, signalChannel, data).Err(); err != nil {
		// Degrade to local delivery so this instance's subscribers still
		// hear about the change.
		n.log.Warn("redis publish failed, delivering locally", zap.Error(err))
		n.hub.Signal(sessionID, msgType)
	}
}

// Run subscribes to the signal channel and relays into the local hub until
// ctx is cancelled.
func (n *RedisNotifier) Run(ctx context.Context) {
	pubsub := n.rdb.Subscribe(ctx, signalChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env signalEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				n.log.Warn("dropping malformed signal", zap.Error(err))
				continue
			}
			n.hub.Signal(env.SessionID, env.Type)
		}
	}
}
