package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
}

type RealtimeConfig struct {
	KafkaBrokers string
	KafkaTopic   string
	TopicPrefix  string
	PollInterval time.Duration
}

type DispatchConfig struct {
	GeofenceRadiusMeters float64
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Realtime    RealtimeConfig
	Dispatch    DispatchConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Realtime: RealtimeConfig{
			KafkaBrokers: v.GetString("KAFKA_BROKERS"),
			KafkaTopic:   v.GetString("KAFKA_TOPIC"),
			TopicPrefix:  v.GetString("KAFKA_TOPIC_PREFIX"),
			PollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
		},
		Dispatch: DispatchConfig{
			GeofenceRadiusMeters: v.GetFloat64("GEOFENCE_RADIUS_M"),
		},
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7090
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Realtime.KafkaTopic == "" {
		cfg.Realtime.KafkaTopic = "dispatch-events"
	}
	if cfg.Realtime.PollInterval <= 0 {
		cfg.Realtime.PollInterval = time.Second
	}
	if cfg.Dispatch.GeofenceRadiusMeters <= 0 {
		cfg.Dispatch.GeofenceRadiusMeters = 100
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	return nil
}
