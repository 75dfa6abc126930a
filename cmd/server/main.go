package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/moonvale/nachtrat/server/internal/api"
	"github.com/moonvale/nachtrat/server/internal/config"
	"github.com/moonvale/nachtrat/server/internal/game"
	"github.com/moonvale/nachtrat/server/internal/logger"
	"github.com/moonvale/nachtrat/server/internal/metrics"
	"github.com/moonvale/nachtrat/server/internal/notify"
	"github.com/moonvale/nachtrat/server/internal/session"
	"github.com/moonvale/nachtrat/server/internal/store"
	ws "github.com/moonvale/nachtrat/server/internal/websocket"
)

func main() {
	// Ignore a missing .env; production sets env vars directly.
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Server.Environment)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(prometheus.DefaultRegisterer)

	var st store.Store
	var health api.HealthChecker
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := store.NewPostgresStore(ctx, cfg.Database.ConnectionString())
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal("failed to prepare schema", zap.Error(err))
		}
		st = pg
		health = pg
		log.Info("connected to postgres", zap.String("db", cfg.Database.DBName))
	default:
		st = store.NewMemoryStore()
		log.Info("using in-memory store")
	}
	defer st.Close()

	hub := ws.NewHub(log, m)
	go hub.Run(ctx)

	var notifier game.Notifier = notify.NewHubNotifier(hub)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		rn := notify.NewRedisNotifier(rdb, hub, log)
		go rn.Run(ctx)
		notifier = rn
		log.Info("redis signal fan-out enabled", zap.String("addr", cfg.Redis.Address))
	}

	engine := game.NewEngine(st, notifier, log, m, game.WinRule(cfg.Game.WinRule))

	janitor := session.NewJanitor(st, notifier, log, m, cfg.Janitor)
	go janitor.Run(ctx)

	identity := api.NewIdentity(cfg.Identity)
	handler := api.NewHandler(engine, hub, identity, health, log)
	router := api.NewRouter(handler, cfg.Server)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("forced shutdown", zap.Error(err))
	}
	log.Info("server exited")
}
