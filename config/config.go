package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Auth     AuthConfig     `yaml:"auth"`
	Booking  BookingConfig  `yaml:"booking"`
	Matching MatchingConfig `yaml:"matching"`
	Payments PaymentsConfig `yaml:"payments"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	SwaggerDir     string   `yaml:"swagger_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// Requests per second allowed per client IP; 0 disables the limiter.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type BookingConfig struct {
	ClaimLockSeconds    int `yaml:"claim_lock_seconds"`
	WorkerCacheSeconds  int `yaml:"worker_cache_seconds"`
	UnclaimedTTLMinutes int `yaml:"unclaimed_ttl_minutes"`
}

type MatchingConfig struct {
	DefaultRadiusKm float64 `yaml:"default_radius_km"`
	MaxRadiusKm     float64 `yaml:"max_radius_km"`
}

type PaymentsConfig struct {
	GatewayURL     string `yaml:"gateway_url"`
	GatewayAPIKey  string `yaml:"gateway_api_key"`
	CallbackURL    string `yaml:"callback_url"`
	WebhookSecret  string `yaml:"webhook_secret"`
	TimeoutMinutes int    `yaml:"timeout_minutes"`
}

type WorkerConfig struct {
	ExpirationSweepMinutes int `yaml:"expiration_sweep_minutes"`
}

type LogConfig struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level"`
}

func (b BookingConfig) ClaimLockTTL() time.Duration {
	return time.Duration(b.ClaimLockSeconds) * time.Second
}

func (b BookingConfig) WorkerCacheTTL() time.Duration {
	return time.Duration(b.WorkerCacheSeconds) * time.Second
}

func (b BookingConfig) UnclaimedTTL() time.Duration {
	return time.Duration(b.UnclaimedTTLMinutes) * time.Minute
}

func (p PaymentsConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMinutes) * time.Minute
}

func (w WorkerConfig) SweepInterval() time.Duration {
	return time.Duration(w.ExpirationSweepMinutes) * time.Minute
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}

	return &cfg, nil
}

// Secrets are usually injected by the environment rather than committed to the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("PAYMENTS_WEBHOOK_SECRET"); v != "" {
		cfg.Payments.WebhookSecret = v
	}
	if v := os.Getenv("PAYMENTS_GATEWAY_API_KEY"); v != "" {
		cfg.Payments.GatewayAPIKey = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.Booking.ClaimLockSeconds <= 0 {
		cfg.Booking.ClaimLockSeconds = 10
	}
	if cfg.Booking.WorkerCacheSeconds <= 0 {
		cfg.Booking.WorkerCacheSeconds = 30
	}
	if cfg.Booking.UnclaimedTTLMinutes <= 0 {
		cfg.Booking.UnclaimedTTLMinutes = 60
	}
	if cfg.Matching.DefaultRadiusKm <= 0 {
		cfg.Matching.DefaultRadiusKm = 10
	}
	if cfg.Matching.MaxRadiusKm <= 0 {
		cfg.Matching.MaxRadiusKm = 50
	}
	if cfg.Payments.TimeoutMinutes <= 0 {
		cfg.Payments.TimeoutMinutes = 15
	}
	if cfg.Worker.ExpirationSweepMinutes <= 0 {
		cfg.Worker.ExpirationSweepMinutes = 1
	}
}
