package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all environment-supplied settings for the service.
type Config struct {
	Port     string `env:"ROLODEX_PORT" envDefault:"3000"`
	DBPath   string `env:"ROLODEX_DB_PATH" envDefault:"rolodex.db"`
	BaseURL  string `env:"ROLODEX_BASE_URL"`
	LogLevel string `env:"ROLODEX_LOG_LEVEL" envDefault:"info"`

	// JWTSecret signs session tokens. The server refuses to start without it.
	JWTSecret string        `env:"ROLODEX_JWT_SECRET"`
	TokenTTL  time.Duration `env:"ROLODEX_TOKEN_TTL" envDefault:"1h"`

	// Postmark outbound email.
	PostmarkToken string `env:"ROLODEX_POSTMARK_TOKEN"`
	FromEmail     string `env:"ROLODEX_FROM_EMAIL"`

	// Avatar storage. UploadsDir receives multipart temp files before
	// they are moved into AvatarsDir.
	AvatarsDir string `env:"ROLODEX_AVATARS_DIR" envDefault:"public/avatars"`
	UploadsDir string `env:"ROLODEX_UPLOADS_DIR" envDefault:"tmp"`

	Backup BackupConfig
}

// BackupConfig holds settings for scheduled database backups to
// S3-compatible storage. Backups are disabled unless bucket and
// credentials are all set.
type BackupConfig struct {
	Endpoint   string        `env:"ROLODEX_BACKUP_S3_ENDPOINT"`
	Bucket     string        `env:"ROLODEX_BACKUP_S3_BUCKET"`
	Region     string        `env:"ROLODEX_BACKUP_S3_REGION" envDefault:"auto"`
	AccessKey  string        `env:"ROLODEX_BACKUP_S3_ACCESS_KEY"`
	SecretKey  string        `env:"ROLODEX_BACKUP_S3_SECRET_KEY"`
	Interval   time.Duration `env:"ROLODEX_BACKUP_INTERVAL" envDefault:"24h"`
	Passphrase string        `env:"ROLODEX_BACKUP_PASSPHRASE"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("ROLODEX_JWT_SECRET is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}
	return cfg, nil
}
