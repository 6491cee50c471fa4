package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	Auth       AuthConfig       `yaml:"auth"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Spots      SpotsConfig      `yaml:"spots"`
	Map        MapConfig        `yaml:"map"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	// StaticDir is the built web application served behind the route gate.
	StaticDir string `yaml:"static_dir"`
}

// BackendConfig describes the remote reservation backend.
type BackendConfig struct {
	BaseURL        string            `yaml:"base_url"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Timeout        time.Duration     `yaml:"-"`
	HTTPProxy      string            `yaml:"http_proxy"`
	Headers        map[string]string `yaml:"headers"`
	Timezone       string            `yaml:"timezone"`
}

// RouteRule assigns a set of path prefixes to one role.
type RouteRule struct {
	Role     string   `yaml:"role"`
	Prefixes []string `yaml:"prefixes"`
	Home     string   `yaml:"home"`
}

// AuthConfig controls credential decoding and the route gate.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	// InsecureDecode accepts tokens without checking their signature. It is
	// only honoured when JWTSecret is empty.
	InsecureDecode bool        `yaml:"insecure_decode"`
	RoleClaim      string      `yaml:"role_claim"`
	CookieName     string      `yaml:"cookie_name"`
	LoginPath      string      `yaml:"login_path"`
	Routes         []RouteRule `yaml:"routes"`
}

// SessionsConfig selects where booking wizard sessions live.
type SessionsConfig struct {
	Store         string        `yaml:"store"` // "memory" or "redis"
	TTLMinutes    int           `yaml:"ttl_minutes"`
	TTL           time.Duration `yaml:"-"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
}

// SpotsConfig holds the spot poller configuration.
type SpotsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// MapConfig is handed to the browser map component.
type MapConfig struct {
	AccessToken string `yaml:"access_token"`
	StyleURL    string `yaml:"style_url"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "sqlite"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
}

// LogConfig selects the zap preset and level.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultRoutes is the route table used when none is configured.
var DefaultRoutes = []RouteRule{
	{Role: "manager", Prefixes: []string{"/manager"}, Home: "/manager"},
	{Role: "driver", Prefixes: []string{"/driver"}, Home: "/driver"},
	{Role: "agent", Prefixes: []string{"/agent"}, Home: "/agent"},
}

// Load reads the configuration from the given path. A .env file in the
// working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"PARKD_BACKEND_URL", &cfg.Backend.BaseURL},
		{"PARKD_JWT_SECRET", &cfg.Auth.JWTSecret},
		{"PARKD_MAP_TOKEN", &cfg.Map.AccessToken},
		{"PARKD_VAPID_PUBLIC_KEY", &cfg.Push.PublicKey},
		{"PARKD_VAPID_PRIVATE_KEY", &cfg.Push.PrivateKey},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 15
	}
	cfg.Backend.Timeout = time.Duration(cfg.Backend.TimeoutSeconds) * time.Second
	if cfg.Backend.Timezone == "" {
		cfg.Backend.Timezone = "America/Sao_Paulo"
	}
	if _, err := time.LoadLocation(cfg.Backend.Timezone); err != nil {
		return fmt.Errorf("backend.timezone %q: %w", cfg.Backend.Timezone, err)
	}

	if cfg.Auth.JWTSecret == "" && !cfg.Auth.InsecureDecode {
		return fmt.Errorf("auth.jwt_secret is required unless auth.insecure_decode is set")
	}
	if cfg.Auth.RoleClaim == "" {
		cfg.Auth.RoleClaim = "role"
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "token"
	}
	if cfg.Auth.LoginPath == "" {
		cfg.Auth.LoginPath = "/login"
	}
	if len(cfg.Auth.Routes) == 0 {
		cfg.Auth.Routes = DefaultRoutes
	}

	switch cfg.Sessions.Store {
	case "":
		cfg.Sessions.Store = "memory"
	case "memory", "redis":
	default:
		return fmt.Errorf("sessions.store must be memory or redis, got %q", cfg.Sessions.Store)
	}
	if cfg.Sessions.TTLMinutes <= 0 {
		cfg.Sessions.TTLMinutes = 30
	}
	cfg.Sessions.TTL = time.Duration(cfg.Sessions.TTLMinutes) * time.Minute

	if cfg.Spots.Schedule == "" {
		cfg.Spots.Schedule = "@every 30s"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return nil
}
