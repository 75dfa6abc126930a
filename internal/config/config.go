package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Identity IdentityConfig
	Game     GameConfig
	Janitor  JanitorConfig
}

type ServerConfig struct {
	Address        string
	Environment    string
	AllowedOrigins []string
}

// StoreConfig selects the persistence backend. "memory" keeps sessions in
// process; "postgres" requires DatabaseConfig.
type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

type IdentityConfig struct {
	JWTSecret   string
	ExpiryHours int
}

type GameConfig struct {
	// WinRule is "final_two" or "parity".
	WinRule string
}

type JanitorConfig struct {
	SweepInterval time.Duration
	HostAbsence   time.Duration
	LobbyIdle     time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address:        getEnv("SERVER_ADDRESS", ":8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "postgres"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "nachtrat"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Identity: IdentityConfig{
			JWTSecret:   getEnv("JWT_SECRET", "change-me-in-production"),
			ExpiryHours: getEnvAsInt("JWT_EXPIRY_HOURS", 24),
		},
		Game: GameConfig{
			WinRule: getEnv("WIN_RULE", "final_two"),
		},
		Janitor: JanitorConfig{
			SweepInterval: getEnvAsDuration("JANITOR_SWEEP_INTERVAL", time.Minute),
			HostAbsence:   getEnvAsDuration("JANITOR_HOST_ABSENCE", 10*time.Minute),
			LobbyIdle:     getEnvAsDuration("JANITOR_LOBBY_IDLE", 2*time.Hour),
		},
	}

	if cfg.Store.Driver != "memory" && cfg.Store.Driver != "postgres" {
		return nil, fmt.Errorf("STORE_DRIVER must be memory or postgres, got %q", cfg.Store.Driver)
	}
	if cfg.Game.WinRule != "final_two" && cfg.Game.WinRule != "parity" {
		return nil, fmt.Errorf("WIN_RULE must be final_two or parity, got %q", cfg.Game.WinRule)
	}
	if cfg.Server.Environment == "production" && cfg.Identity.JWTSecret == "change-me-in-production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
