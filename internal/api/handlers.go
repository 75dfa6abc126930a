package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/moonvale/nachtrat/server/internal/game"
	"github.com/moonvale/nachtrat/server/internal/models"
	ws "github.com/moonvale/nachtrat/server/internal/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin allow-list is enforced by the CORS layer
	},
}

// HealthChecker reports backend liveness for the health endpoint.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type Handler struct {
	engine   *game.Engine
	hub      *ws.Hub
	identity *Identity
	health   HealthChecker
	log      *zap.Logger
}

func NewHandler(engine *game.Engine, hub *ws.Hub, identity *Identity, health HealthChecker, log *zap.Logger) *Handler {
	return &Handler{
		engine:   engine,
		hub:      hub,
		identity: identity,
		health:   health,
		log:      log,
	}
}

// ============================================================================
// SESSION HANDLERS
// ============================================================================

// CreateSession creates a session with the caller as host.
func (h *Handler) CreateSession(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.engine.CreateSession(c.Request.Context(), req.HostName, req.ClientID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := models.CreateSessionResponse{
		SessionID:         g.ID,
		JoinCode:          g.JoinCode,
		HostParticipantID: g.Host().ID,
	}
	if token, err := h.identity.Mint(req.ClientID); err == nil {
		resp.ClientToken = token
	}
	c.JSON(http.StatusCreated, resp)
}

// JoinSession adds the caller to a lobby by join code.
func (h *Handler) JoinSession(c *gin.Context) {
	var req models.JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, sessionID, err := h.engine.Join(c.Request.Context(), req.JoinCode, req.DisplayName, req.ClientID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := models.JoinSessionResponse{
		SessionID:     sessionID,
		ParticipantID: p.ID,
	}
	if token, err := h.identity.Mint(req.ClientID); err == nil {
		resp.ClientToken = token
	}
	c.JSON(http.StatusOK, resp)
}

// LookupSession resolves a join code and returns the caller's masked
// projection of that session in one round trip.
func (h *Handler) LookupSession(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code query parameter is required"})
		return
	}
	id, err := h.engine.SessionIDByCode(c.Request.Context(), code)
	if err != nil {
		h.respondError(c, err)
		return
	}

	clientID := h.identity.resolveClientID(c)
	if clientID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "no client identity"})
		return
	}
	view, err := h.engine.Project(c.Request.Context(), id, clientID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetSession returns the caller's masked projection of the session.
func (h *Handler) GetSession(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	clientID := h.identity.resolveClientID(c)
	if clientID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "no client identity"})
		return
	}

	view, err := h.engine.Project(c.Request.Context(), sessionID, clientID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ExecuteCommand runs one game command for the caller.
func (h *Handler) ExecuteCommand(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req models.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	clientID := req.ClientID
	if clientID == "" {
		clientID = h.identity.resolveClientID(c)
	}
	if clientID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "no client identity"})
		return
	}

	res, err := h.engine.Execute(c.Request.Context(), sessionID, clientID, models.Command{
		Action: req.Action,
		Data:   req.Data,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ============================================================================
// WEBSOCKET
// ============================================================================

// Subscribe upgrades to a websocket and attaches the caller to the
// session's signal feed.
func (h *Handler) Subscribe(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	clientID := c.Query("client_id")
	if clientID == "" {
		clientID = h.identity.resolveClientID(c)
	}
	if clientID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "no client identity"})
		return
	}

	// Only participants may subscribe.
	if _, err := h.engine.Project(c.Request.Context(), sessionID, clientID); err != nil {
		h.respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, sessionID, clientID)
	client.Register()
	go client.WritePump()
	go client.ReadPump()
}

// ============================================================================
// HEALTH
// ============================================================================

func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ============================================================================
// HELPERS
// ============================================================================

func (h *Handler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps the engine's error kinds onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := game.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case game.KindNotFound:
		status = http.StatusNotFound
	case game.KindForbidden:
		status = http.StatusForbidden
	case game.KindPreconditions, game.KindInvalidInput:
		status = http.StatusBadRequest
	case game.KindConflict:
		status = http.StatusConflict
	}

	msg := err.Error()
	if kind == game.KindInternal {
		h.log.Error("internal error", zap.Error(err))
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg, "kind": kind})
}
