package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	// AppID is the application key sent with every upstream request.
	AppID string
	// BaseURL overrides the per-region upstream hosts; empty in
	// production, set when pointing the client at a test double.
	BaseURL       string
	DBPath        string
	CheckpointDir string
	ServerPort    string
	RefDataTTL    time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		AppID:         getEnv("WG_APP_ID", ""),
		BaseURL:       getEnv("UPSTREAM_BASE_URL", ""),
		DBPath:        getEnv("DB_PATH", "warships.db"),
		CheckpointDir: getEnv("CHECKPOINT_DIR", "checkpoints"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		RefDataTTL:    getDuration("REFDATA_TTL", 5*time.Minute),
	}

	if cfg.AppID == "" {
		return nil, fmt.Errorf("WG_APP_ID is required")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("checkpoint_dir", cfg.CheckpointDir).
		Str("server_port", cfg.ServerPort).
		Dur("refdata_ttl", cfg.RefDataTTL).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

var Module = fx.Provide(Load)
