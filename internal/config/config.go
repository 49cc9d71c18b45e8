package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds everything the server and CLIs read from the environment.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Auth      AuthConfig      `toml:"auth"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Log       LogConfig       `toml:"log"`
}

type ServerConfig struct {
	Port    string `toml:"port"`
	GinMode string `toml:"gin_mode"`
}

type DatabaseConfig struct {
	// URL is a postgres DSN. When empty the sqlite file at Path is used.
	URL  string `toml:"url"`
	Path string `toml:"path"`
}

type AuthConfig struct {
	JWTSecret     string `toml:"jwt_secret"`
	MasterSecret  string `toml:"master_secret"`
	AdminUsername string `toml:"admin_username"`
	AdminPassword string `toml:"admin_password"`
}

type SchedulerConfig struct {
	// Timeout is the wall-clock budget of one scheduling request.
	Timeout  Duration `toml:"timeout"`
	CacheTTL Duration `toml:"cache_ttl"`
}

type LogConfig struct {
	Verbosity int `toml:"verbosity"`
}

// Duration is a time.Duration written as text ("10s") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8000"},
		Database: DatabaseConfig{Path: "rota.db"},
		Auth: AuthConfig{
			AdminUsername: "admin",
			AdminPassword: "admin123",
		},
		Scheduler: SchedulerConfig{
			Timeout:  Duration{10 * time.Second},
			CacheTTL: Duration{30 * time.Minute},
		},
	}
}

// envPaths are tried in order; the first .env found is loaded.
var envPaths = []string{".env", "../.env", "../../.env"}

// LoadDotEnv loads the first .env file found near the working directory.
// Variables already set in the process environment win.
func LoadDotEnv() {
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Load builds the configuration from defaults, an optional TOML file, .env
// files and the process environment, in increasing precedence. An empty
// path falls back to $ROTA_CONFIG.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("ROTA_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	LoadDotEnv()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.GinMode, "GIN_MODE")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.Path, "DATA_PATH")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.MasterSecret, "API_MASTER_SECRET")
	setString(&c.Auth.AdminUsername, "ADMIN_USERNAME")
	setString(&c.Auth.AdminPassword, "ADMIN_PASSWORD")
	setDuration(&c.Scheduler.Timeout, "SCHEDULE_TIMEOUT")
	setDuration(&c.Scheduler.CacheTTL, "SCHEDULE_CACHE_TTL")
	setInt(&c.Log.Verbosity, "LOG_VERBOSITY")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setDuration and setInt keep the current value when the variable does not
// parse.
func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			dst.Duration = d
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
