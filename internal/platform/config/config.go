// Package config loads gateway configuration from config files and the
// environment. Environment variables override file values so deployments
// can stay file-less.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration for the gateway.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Provider ProviderConfig `mapstructure:"provider"`
	Protocol ProtocolConfig `mapstructure:"protocol"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Crypto   CryptoConfig   `mapstructure:"crypto"`
	Recheck  RecheckConfig  `mapstructure:"recheck"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Uploads  UploadsConfig  `mapstructure:"uploads"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// ProviderConfig points at the upstream benefit-content service.
type ProviderConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// ProtocolConfig identifies this gateway on the network and carries the
// order-id prefix used at confirm time.
type ProtocolConfig struct {
	Domain        string `mapstructure:"domain"`
	BppID         string `mapstructure:"bpp_id"`
	BppURI        string `mapstructure:"bpp_uri"`
	OrderIDPrefix string `mapstructure:"order_id_prefix"`
}

type AuthConfig struct {
	JWTSigningKey string `mapstructure:"jwt_signing_key"`
}

type CryptoConfig struct {
	// EncryptionKey is the base64-encoded master key for at-rest
	// payload encryption. Empty disables encryption (dev only).
	EncryptionKey string `mapstructure:"encryption_key"`
}

type RecheckConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Staleness time.Duration `mapstructure:"staleness"`
	BatchSize int           `mapstructure:"batch_size"`
}

type AuditConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type UploadsConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load reads config.yaml (if present) and the environment, then applies
// defaults and validates the protocol identity fields.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.SetEnvPrefix("BG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Protocol.OrderIDPrefix == "" {
		cfg.Protocol.OrderIDPrefix = "TLEXP"
	}
	if cfg.Recheck.Interval == 0 {
		cfg.Recheck.Interval = 30 * time.Minute
	}
	if cfg.Recheck.Staleness == 0 {
		cfg.Recheck.Staleness = 24 * time.Hour
	}
	if cfg.Recheck.BatchSize == 0 {
		cfg.Recheck.BatchSize = 10
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = 5 * time.Minute
	}
	if cfg.Uploads.Dir == "" {
		cfg.Uploads.Dir = "uploads"
	}
	if cfg.Audit.Topic == "" {
		cfg.Audit.Topic = "benefit-gateway.audit"
	}
}

func validate(cfg *Config) error {
	var missing []string
	if strings.TrimSpace(cfg.Provider.URL) == "" {
		missing = append(missing, "provider.url")
	}
	if strings.TrimSpace(cfg.Protocol.Domain) == "" {
		missing = append(missing, "protocol.domain")
	}
	if strings.TrimSpace(cfg.Protocol.BppID) == "" {
		missing = append(missing, "protocol.bpp_id")
	}
	if strings.TrimSpace(cfg.Protocol.BppURI) == "" {
		missing = append(missing, "protocol.bpp_uri")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
