package config

import (
	"errors"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

var (
	errInvalidTTL = errors.New("config: access and email code TTLs must be positive")
	errRefreshTTL = errors.New("config: refresh_token_ttl must be greater than access_token_ttl")
)

type Config struct {
	Env             string `yaml:"env" env:"ENV" env-default:"local"`
	Tokens          `yaml:"tokens"`
	PasswordHashing `yaml:"password"`
	Gateway         `yaml:"gateway"`
	Redis           `yaml:"redis"`
	RabbitMQ        `yaml:"rabbitmq"`
	Postgres        `yaml:"postgres"`
	HTTPServer      `yaml:"http_server"`
}

// MailerConfig is the subset read by the mail sender worker.
type MailerConfig struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	RabbitMQ `yaml:"rabbitmq"`
	SMTP     `yaml:"smtp"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-required:"true"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"redis:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Tokens struct {
	Secret          string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env-default:"30m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env-default:"336h"`
	EmailCodeTTL    time.Duration `yaml:"email_code_ttl" env-default:"5m"`
}

// PasswordHashing.Scheme selects the digest written for new accounts ("sha256" or "bcrypt").
// StoredScheme names the digest most existing rows use; it defaults to Scheme.
type PasswordHashing struct {
	Scheme       string `yaml:"scheme" env-default:"sha256"`
	StoredScheme string `yaml:"stored_scheme"`
}

func (p PasswordHashing) DummyScheme() string {
	if p.StoredScheme == "" {
		return p.Scheme
	}

	return p.StoredScheme
}

// Gateway is the API gateway fronting the push and chat services.
type Gateway struct {
	URL     string        `yaml:"url" env:"GATEWAY_URL" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env-default:"3s"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL" env-required:"true"`
	QueueName string `yaml:"queue_name" env-default:"mail"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
}

func MustLoad(configPath string) *Config {
	var cfg Config

	mustRead(configPath, &cfg)

	if err := cfg.Tokens.Validate(); err != nil {
		panic(err.Error())
	}

	return &cfg
}

func MustLoadMailer(configPath string) *MailerConfig {
	var cfg MailerConfig

	mustRead(configPath, &cfg)

	return &cfg
}

func mustRead(configPath string, cfg any) {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist: " + configPath)
	}

	if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
		panic("Failed to read config: " + err.Error())
	}
}

func (t Tokens) Validate() error {
	if t.AccessTokenTTL <= 0 || t.EmailCodeTTL <= 0 {
		return errInvalidTTL
	}
	if t.RefreshTokenTTL <= t.AccessTokenTTL {
		return errRefreshTTL
	}

	return nil
}
