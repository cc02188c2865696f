package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN,required"`
	AdminChatID   int64  `env:"ADMIN_CHAT_ID,required"`

	// Webhook mode is enabled when a secret is configured; otherwise
	// the bot falls back to long polling.
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	ListenAddr    string `env:"LISTEN_ADDR" envDefault:":8080"`

	RedisAddr     string        `env:"REDIS_ADDR,required"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	Database DatabaseConfig `envPrefix:"DB_"`
	Storage  StorageConfig  `envPrefix:"STORAGE_"`
}

type DatabaseConfig struct {
	Host            string        `env:"HOST,required"`
	Port            int           `env:"PORT,required"`
	User            string        `env:"USER,required"`
	Password        string        `env:"PASSWORD,required"`
	Name            string        `env:"NAME,required"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"2m"`
}

type StorageConfig struct {
	BaseURL    string `env:"BASE_URL,required"`
	ServiceKey string `env:"SERVICE_KEY,required"`
	Bucket     string `env:"BUCKET" envDefault:"book-covers"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.AdminChatID == 0 {
		return nil, fmt.Errorf("admin chat ID is required")
	}

	return &cfg, nil
}
