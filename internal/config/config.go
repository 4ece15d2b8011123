package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type Database struct {
	URI  string `yaml:"uri"`
	Name string `yaml:"name"`
}

type JWT struct {
	Secret          string        `yaml:"secret"`
	Issuer          string        `yaml:"issuer"`
	AccountTokenTTL time.Duration `yaml:"account_token_ttl"`
	AdminTokenTTL   time.Duration `yaml:"admin_token_ttl"`
}

type Email struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	From string `yaml:"from"`
}

type Storage struct {
	UploadURL string `yaml:"upload_url"`
	APIKey    string `yaml:"api_key"`
}

type AdminSeed struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Mobile   string `yaml:"mobile"`
}

type Outbox struct {
	Interval    time.Duration `yaml:"interval"`
	BaseBackoff time.Duration `yaml:"base_backoff"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type Config struct {
	Server   Server    `yaml:"server"`
	Database Database  `yaml:"database"`
	JWT      JWT       `yaml:"jwt"`
	Email    Email     `yaml:"email"`
	Storage  Storage   `yaml:"storage"`
	Admin    AdminSeed `yaml:"admin"`
	Outbox   Outbox    `yaml:"outbox"`
	LogLevel string    `yaml:"log_level"`
}

// Load reads a yaml config file, expanding ${VAR} references against the
// environment before parsing so secrets stay out of the file itself.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is not configured")
	}
	if cfg.Database.URI == "" {
		return nil, fmt.Errorf("database uri is not configured")
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: Server{Port: 8080},
		JWT: JWT{
			Issuer:          "clinic-api",
			AccountTokenTTL: time.Hour,
			AdminTokenTTL:   24 * time.Hour,
		},
		Outbox: Outbox{
			Interval:    30 * time.Second,
			BaseBackoff: 30 * time.Second,
			MaxAttempts: 5,
		},
		LogLevel: "info",
	}
}
