package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moonvale/nachtrat/server/internal/metrics"
	"github.com/moonvale/nachtrat/server/internal/models"
	"github.com/moonvale/nachtrat/server/internal/store"
)

const (
	// MinPlayers is the smallest non-host count a game can start with;
	// dropping below it mid-game triggers the attrition reset.
	MinPlayers = 6
	// MaxPlayers caps the non-host count at join time.
	MaxPlayers = 20

	joinCodeAttempts = 5
)

// Notifier is the push fan-out the engine signals after committed
// mutations. Delivery is best effort; clients re-fetch projections.
type Notifier interface {
	GameDirty(ctx context.Context, sessionID uuid.UUID)
	SessionClosed(ctx context.Context, sessionID uuid.UUID)
}

// WinRule selects the terminal condition for werewolves.
type WinRule string

const (
	// WinRuleFinalTwo ends the game when two non-hosts remain and at
	// least one is a werewolf.
	WinRuleFinalTwo WinRule = "final_two"
	// WinRuleParity ends the game when werewolves reach numeric parity
	// with the rest.
	WinRuleParity WinRule = "parity"
)

// Engine owns the session state machine. Commands enter through Execute,
// reads through Project; both go to the store, which serializes commands
// within a session.
type Engine struct {
	store    store.Store
	notifier Notifier
	log      *zap.Logger
	metrics  *metrics.Metrics
	winRule  WinRule

	// rng backs join codes and role deals; commands of different sessions
	// run in parallel, so access goes through rngMu.
	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewEngine(st store.Store, notifier Notifier, log *zap.Logger, m *metrics.Metrics, winRule WinRule) *Engine {
	if winRule == "" {
		winRule = WinRuleFinalTwo
	}
	return &Engine{
		store:    st,
		notifier: notifier,
		log:      log,
		metrics:  m,
		winRule:  winRule,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Result is the action-specific payload returned to the caller.
type Result struct {
	Action  models.Action `json:"action"`
	Payload any           `json:"payload,omitempty"`

	destroySession bool
}

// CreateSession creates a new session with the creator as host.
func (e *Engine) CreateSession(ctx context.Context, hostName, clientID string) (*models.Game, error) {
	if hostName == "" || clientID == "" {
		return nil, newError(KindInvalidInput, "hostName and clientId are required")
	}

	now := time.Now()
	host := &models.Participant{
		ID:          uuid.New(),
		ClientID:    clientID,
		DisplayName: hostName,
		Role:        models.RoleNone,
		Alive:       true,
		IsHost:      true,
		JoinedAt:    now,
		LastSeenAt:  now,
	}

	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		g := &models.Game{
			ID:           uuid.New(),
			JoinCode:     e.newJoinCode(),
			Phase:        models.PhaseLobby,
			WinState:     models.WinNone,
			HostClientID: clientID,
			CreatedAt:    now,
			UpdatedAt:    now,
			HostSeenAt:   now,
			Participants: []*models.Participant{host},
		}
		g.Round.Reset()
		host.GameID = g.ID

		err := e.store.Create(ctx, g)
		if errors.Is(err, store.ErrCodeConflict) {
			continue
		}
		if err != nil {
			return nil, wrapError(KindInternal, err, "failed to create session")
		}

		e.log.Info("session created",
			zap.String("session_id", g.ID.String()),
			zap.String("join_code", g.JoinCode))
		if e.metrics != nil {
			e.metrics.SessionsCreated.Inc()
		}
		return g, nil
	}
	return nil, newError(KindInternal, "could not allocate a unique join code")
}

// Join adds a participant to a lobby, or restores an existing one when the
// same client re-joins after a disconnect.
func (e *Engine) Join(ctx context.Context, joinCode, displayName, clientID string) (*models.Participant, uuid.UUID, error) {
	if displayName == "" || clientID == "" {
		return nil, uuid.Nil, newError(KindInvalidInput, "displayName and clientId are required")
	}

	id, err := e.store.FindIDByCode(ctx, joinCode)
	if errors.Is(err, store.ErrCodeNotFound) {
		return nil, uuid.Nil, newError(KindNotFound, "no session with code %s", joinCode)
	}
	if err != nil {
		return nil, uuid.Nil, wrapError(KindInternal, err, "failed to resolve join code")
	}

	var joined *models.Participant
	changed, err := e.store.Update(ctx, id, func(g *models.Game) (bool, error) {
		if existing := g.ParticipantByClient(clientID); existing != nil {
			// Reconnect: same client identity restores the participant in
			// any phase.
			existing.LastSeenAt = time.Now()
			joined = existing
			return false, nil
		}
		if g.Phase != models.PhaseLobby {
			return false, newError(KindPreconditions, "session is not accepting players (phase %s)", g.Phase)
		}
		if len(g.NonHosts()) >= MaxPlayers {
			return false, newError(KindPreconditions, "session is full")
		}

		now := time.Now()
		joined = &models.Participant{
			ID:          uuid.New(),
			GameID:      g.ID,
			ClientID:    clientID,
			DisplayName: displayName,
			Role:        models.RoleNone,
			Alive:       true,
			JoinedAt:    now,
			LastSeenAt:  now,
		}
		g.Participants = append(g.Participants, joined)
		g.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return nil, uuid.Nil, e.mapStoreErr(err)
	}
	if changed {
		e.signalDirty(ctx, id)
	}
	return joined, id, nil
}

// Execute runs one command against a session. The whole read-modify-write
// happens inside a single store update, so either every mutation of the
// command commits or none do.
func (e *Engine) Execute(ctx context.Context, sessionID uuid.UUID, clientID string, cmd models.Command) (*Result, error) {
	started := time.Now()
	res := &Result{Action: cmd.Action}

	changed, err := e.store.Update(ctx, sessionID, func(g *models.Game) (bool, error) {
		p := g.ParticipantByClient(clientID)
		if p == nil {
			return false, newError(KindNotFound, "client is not a participant of this session")
		}
		now := time.Now()
		p.LastSeenAt = now
		if p.IsHost {
			g.HostSeenAt = now
		}

		if err := authorize(g, p, cmd.Action); err != nil {
			return false, err
		}
		changed, err := e.dispatch(g, p, cmd, res)
		if changed {
			g.UpdatedAt = now
		}
		return changed, err
	})
	if err != nil {
		err = e.mapStoreErr(err)
	}
	if e.metrics != nil {
		e.metrics.ObserveCommand(string(cmd.Action), string(resultLabel(err)), time.Since(started))
	}
	if err != nil {
		e.log.Debug("command rejected",
			zap.String("session_id", sessionID.String()),
			zap.String("action", string(cmd.Action)),
			zap.String("kind", string(KindOf(err))))
		return nil, err
	}

	if res.destroySession {
		if derr := e.store.Delete(ctx, sessionID); derr != nil && !errors.Is(derr, store.ErrNotFound) {
			// The session is already marked ended; losing the delete only
			// leaves a tombstone for the janitor.
			e.log.Warn("failed to destroy ended session",
				zap.String("session_id", sessionID.String()), zap.Error(derr))
		}
		if e.metrics != nil {
			e.metrics.SessionsDestroyed.Inc()
		}
		if e.notifier != nil {
			e.notifier.SessionClosed(ctx, sessionID)
		}
		return res, nil
	}
	if changed {
		e.signalDirty(ctx, sessionID)
	}
	return res, nil
}

// dispatch routes an authorized command to its handler.
func (e *Engine) dispatch(g *models.Game, p *models.Participant, cmd models.Command, res *Result) (bool, error) {
	switch cmd.Action {
	case models.ActionAssignRoles:
		return e.assignRoles(g)
	case models.ActionNextPhase:
		return e.nextPhase(g, cmd.Data)
	case models.ActionWolfSelect:
		return e.wolfSelect(g, p, cmd.Data)
	case models.ActionDoctorSave:
		return e.doctorSave(g, p, cmd.Data)
	case models.ActionPoliceInspect:
		return e.policeInspect(g, p, cmd.Data, res)
	case models.ActionRevealDead:
		return e.revealDead(g, res)
	case models.ActionBeginVoting:
		return e.beginVoting(g)
	case models.ActionVote:
		return e.castVote(g, p, cmd.Data)
	case models.ActionRevokeVote:
		return e.revokeVote(g, p)
	case models.ActionFinalVote:
		return e.finalVote(g)
	case models.ActionEliminate:
		return e.eliminate(g, res)
	case models.ActionRequestLeave:
		return e.requestLeave(g, p)
	case models.ActionApproveLeave:
		return e.approveLeave(g, p, cmd.Data)
	case models.ActionDenyLeave:
		return e.denyLeave(g, p, cmd.Data)
	case models.ActionRemovePlayer:
		return e.removePlayer(g, cmd.Data)
	case models.ActionChangeRole:
		return e.changeRole(g, cmd.Data)
	case models.ActionEndGame:
		return e.endGame(g, res)
	default:
		return false, newError(KindInvalidInput, "unknown action %q", cmd.Action)
	}
}

// SessionIDByCode resolves a join code for the read path.
func (e *Engine) SessionIDByCode(ctx context.Context, code string) (uuid.UUID, error) {
	id, err := e.store.FindIDByCode(ctx, code)
	if errors.Is(err, store.ErrCodeNotFound) {
		return uuid.Nil, newError(KindNotFound, "no session with code %s", code)
	}
	if err != nil {
		return uuid.Nil, wrapError(KindInternal, err, "failed to resolve join code")
	}
	return id, nil
}

// Project returns the role-masked view of a session for one viewer. All
// reads go through here; nothing else renders participant roles.
func (e *Engine) Project(ctx context.Context, sessionID uuid.UUID, viewerClientID string) (*GameView, error) {
	var view *GameView
	err := e.store.View(ctx, sessionID, func(g *models.Game) error {
		viewer := g.ParticipantByClient(viewerClientID)
		if viewer == nil {
			return newError(KindNotFound, "client is not a participant of this session")
		}
		view = projectGame(g, viewer)
		return nil
	})
	if err != nil {
		return nil, e.mapStoreErr(err)
	}
	e.touchPresence(ctx, sessionID, viewerClientID)
	return view, nil
}

// touchPresence records that a client was seen on a read. Reads count as
// presence, so a host who only watches is not treated as absent.
func (e *Engine) touchPresence(ctx context.Context, sessionID uuid.UUID, clientID string) {
	_, _ = e.store.Update(ctx, sessionID, func(g *models.Game) (bool, error) {
		p := g.ParticipantByClient(clientID)
		if p == nil {
			return false, nil
		}
		now := time.Now()
		p.LastSeenAt = now
		if p.IsHost {
			g.HostSeenAt = now
		}
		return false, nil
	})
}

func (e *Engine) signalDirty(ctx context.Context, sessionID uuid.UUID) {
	if e.notifier == nil {
		return
	}
	e.notifier.GameDirty(ctx, sessionID)
	if e.metrics != nil {
		e.metrics.PushSignals.Inc()
	}
}

func (e *Engine) mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, "session not found")
	}
	return wrapError(KindInternal, err, "store failure")
}

func (e *Engine) newJoinCode() string {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return fmt.Sprintf("%06d", e.rng.Intn(1000000))
}

func (e *Engine) shuffleDeck(deck []models.Role) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	e.rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
}

func resultLabel(err error) Kind {
	if err == nil {
		return "ok"
	}
	return KindOf(err)
}
