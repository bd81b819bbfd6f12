package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Auth     AuthConfig     `yaml:"auth"`
	Booking  BookingConfig  `yaml:"booking"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
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

type StripeConfig struct {
	// SecretKey and WebhookSecret are normally supplied via environment,
	// the yaml values are a local-development fallback.
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

func (s StripeConfig) APIKey() string {
	if key := os.Getenv("STRIPE_SECRET_KEY"); key != "" {
		return key
	}
	return s.SecretKey
}

func (s StripeConfig) SigningSecret() string {
	if key := os.Getenv("STRIPE_WEBHOOK_SECRET"); key != "" {
		return key
	}
	return s.WebhookSecret
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	UnauthorizedPath string `yaml:"unauthorized_path"`
	SessionTTL       int    `yaml:"session_ttl_minutes"`
}

func (a AuthConfig) Secret() []byte {
	if key := os.Getenv("JWT_SECRET"); key != "" {
		return []byte(key)
	}
	return []byte(a.JWTSecret)
}

type BookingConfig struct {
	PendingTTLMinutes      int `yaml:"pending_ttl_minutes"`
	IntentMarkerTTL        int `yaml:"intent_marker_ttl_minutes"`
	ExpirationSweepMinutes int `yaml:"expiration_sweep_minutes"`
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

	return &cfg, nil
}
