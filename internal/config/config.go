package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string         `mapstructure:"env"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Events   EventsConfig   `mapstructure:"events"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout_seconds"`
	WriteTimeout int      `mapstructure:"write_timeout_seconds"`
	IdleTimeout  int      `mapstructure:"idle_timeout_seconds"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            string `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time_seconds"`
}

type JWTConfig struct {
	AccessSecret  string `mapstructure:"access_secret"`
	RefreshSecret string `mapstructure:"refresh_secret"`
	// Bootstrap shared secret gating first-SuperAdmin creation.
	SuperAdminKey    string `mapstructure:"superadmin_key"`
	AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLDays   int    `mapstructure:"refresh_ttl_days"`
}

type EventsConfig struct {
	// Backend selects the producer: "nats", "kafka" or "none".
	Backend      string   `mapstructure:"backend"`
	NATSURL      string   `mapstructure:"nats_url"`
	NATSSubject  string   `mapstructure:"nats_subject"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// OTLP gRPC collector endpoint; OTEL_EXPORTER_OTLP_ENDPOINT wins
	// when set.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func (c JWTConfig) AccessTTL() time.Duration {
	minutes := c.AccessTTLMinutes
	if minutes == 0 {
		minutes = 15
	}
	return time.Duration(minutes) * time.Minute
}

func (c JWTConfig) RefreshTTL() time.Duration {
	days := c.RefreshTTLDays
	if days == 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

func Load() (*Config, error) {
	// Get environment from ENV, default to "local"
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/configs")  // Kubernetes mount
	viper.AddConfigPath("./configs") // run from repo root
	viper.AddConfigPath("../configs")

	// Config file is optional - ENV variables can carry everything.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("No config file found (will use ENV variables): %v\n", err)
	}

	// Environment variable overrides take precedence over the file.
	viper.AutomaticEnv()

	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("jwt.access_secret", "JWT_SECRET")
	viper.BindEnv("jwt.refresh_secret", "REFRESH_TOKEN_SECRET")
	viper.BindEnv("jwt.superadmin_key", "SUPERADMIN_KEY")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Env = env

	if config.JWT.AccessSecret == "" || config.JWT.RefreshSecret == "" {
		return nil, fmt.Errorf("jwt access and refresh secrets must be set")
	}

	return &config, nil
}
