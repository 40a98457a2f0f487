package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "./config/config.yaml"

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	Tokens     `yaml:"tokens"`
	Hashing    `yaml:"password"`
	Storage    `yaml:"storage"`
	Postgres   `yaml:"postgres"`
	RabbitMQ   `yaml:"rabbitmq"`
	RateLimit  `yaml:"rate_limit"`
	HTTPServer `yaml:"http_server"`
}

type HTTPServer struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:5000"`
	Timeout        time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:","`
}

type Tokens struct {
	SessionTokenTTL        time.Duration `yaml:"session_token_ttl" env-default:"168h"`
	SessionTokenSecret     string        `yaml:"session_token_secret" env:"SESSION_TOKEN_SECRET" env-required:"true"`
	RevokeOnPasswordChange bool          `yaml:"revoke_on_password_change" env-default:"false"`
}

type Hashing struct {
	BcryptCost int `yaml:"bcrypt_cost" env-default:"10"`
}

type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`

	// SkipMigrations turns off schema migrations on startup.
	SkipMigrations bool `yaml:"skip_migrations" env:"POSTGRES_SKIP_MIGRATIONS"`
}

type RabbitMQ struct {
	Enabled   bool   `yaml:"enabled" env:"RABBITMQ_ENABLED" env-default:"false"`
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env-default:"account_notifications"`
}

// cleanenv replaces a zero value read from YAML with env-default, so
// switches are named for their non-default state.
type RateLimit struct {
	Disabled bool `yaml:"disabled" env:"RATE_LIMIT_DISABLED"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// MustLoad reads the config from path, or from CONFIG_PATH when path is empty.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	if configPath == "" {
		configPath = fetchConfigPath()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Postgres.User == "" || c.Postgres.DBName == "" {
			return errors.New("postgres user and dbname are required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" {
		return errors.New("rabbitmq url is required when rabbitmq is enabled")
	}

	if c.Tokens.SessionTokenTTL <= 0 {
		return errors.New("session token ttl must be positive")
	}

	return nil
}

func fetchConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}

	return defaultConfigPath
}
