// Package session runs background maintenance on stored sessions.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moonvale/nachtrat/server/internal/config"
	"github.com/moonvale/nachtrat/server/internal/game"
	"github.com/moonvale/nachtrat/server/internal/metrics"
	"github.com/moonvale/nachtrat/server/internal/models"
	"github.com/moonvale/nachtrat/server/internal/store"
)

// Janitor sweeps the store and destroys sessions nobody will come back to:
// ended tombstones, sessions whose host has been silent too long, and
// lobbies that never went anywhere. Subscribers of a destroyed session get
// a session_closed signal.
type Janitor struct {
	store    store.Store
	notifier game.Notifier
	log      *zap.Logger
	metrics  *metrics.Metrics
	cfg      config.JanitorConfig
}

func NewJanitor(st store.Store, notifier game.Notifier, log *zap.Logger, m *metrics.Metrics, cfg config.JanitorConfig) *Janitor {
	return &Janitor{store: st, notifier: notifier, log: log, metrics: m, cfg: cfg}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.cfg.SweepInterval)
	defer ticker.Stop()

	j.log.Info("session janitor started", zap.Duration("interval", j.cfg.SweepInterval))
	j.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			j.log.Info("session janitor stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	ids, err := j.store.ListIDs(ctx)
	if err != nil {
		j.log.Error("janitor sweep failed to list sessions", zap.Error(err))
		return
	}

	reaped := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if j.shouldReap(ctx, id) {
			j.destroy(ctx, id)
			reaped++
		}
	}
	if reaped > 0 {
		j.log.Info("janitor sweep complete", zap.Int("reaped", reaped), zap.Int("scanned", len(ids)))
	}
}

func (j *Janitor) shouldReap(ctx context.Context, id uuid.UUID) bool {
	reap := false
	err := j.store.View(ctx, id, func(g *models.Game) error {
		now := time.Now()
		switch {
		case g.Phase == models.PhaseEnded:
			// end_game destroys immediately; a lingering ended session is
			// a tombstone from a failed delete.
			reap = true
		case now.Sub(g.HostSeenAt) > j.cfg.HostAbsence:
			reap = true
		case g.Phase == models.PhaseLobby && now.Sub(g.UpdatedAt) > j.cfg.LobbyIdle:
			reap = true
		}
		return nil
	})
	if err != nil {
		// Deleted between list and view.
		return false
	}
	return reap
}

func (j *Janitor) destroy(ctx context.Context, id uuid.UUID) {
	if err := j.store.Delete(ctx, id); err != nil {
		j.log.Warn("janitor failed to delete session",
			zap.String("session_id", id.String()), zap.Error(err))
		return
	}
	if j.metrics != nil {
		j.metrics.SessionsDestroyed.Inc()
	}
	if j.notifier != nil {
		j.notifier.SessionClosed(ctx, id)
	}
	j.log.Info("janitor destroyed session", zap.String("session_id", id.String()))
}
