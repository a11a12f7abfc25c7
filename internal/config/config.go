package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Retention RetentionConfig `mapstructure:"retention"`
	Identity  IdentityConfig  `mapstructure:"identity"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type AuthConfig struct {
	// JWTSecret signs the HS256 device tokens accepted by the API.
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	// Path is the SQLite database file.
	Path string `mapstructure:"path"`
}

type KafkaConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Brokers         []string `mapstructure:"brokers"`
	ConsumerGroupID string   `mapstructure:"consumer_group_id"`
	Topics          []string `mapstructure:"topics"`
}

type RedisConfig struct {
	// Enabled switches the deferred-route queue from memory to Redis.
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type DirectoryConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Token    string        `mapstructure:"token"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type RetentionConfig struct {
	MaxPerChannel int           `mapstructure:"max_per_channel"`
	MaxTotal      int           `mapstructure:"max_total"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

type IdentityConfig struct {
	BucketWindow time.Duration `mapstructure:"bucket_window"`
}

// Load reads configuration from a .env file, environment variables and config files.
// Environment variables override file values. Prefix: NOTIFY_
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.env", "development")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "notifications")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.path", "notifications.db")
	v.SetDefault("kafka.enabled", true)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group_id", "notification-pipeline")
	v.SetDefault("kafka.topics", []string{"xmpp-events", "push-deliveries", "local-intents"})
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "notifications:pending-routes")
	v.SetDefault("directory.base_url", "http://localhost:8085")
	v.SetDefault("directory.token", "")
	v.SetDefault("directory.cache_ttl", 30*time.Second)
	v.SetDefault("retention.max_per_channel", 100)
	v.SetDefault("retention.max_total", 1000)
	v.SetDefault("retention.prune_interval", time.Hour)
	v.SetDefault("identity.bucket_window", time.Minute)

	// Environment variables (e.g. NOTIFY_DATABASE_HOST -> database.host)
	v.SetEnvPrefix("NOTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also support simple env vars without prefix for Docker Compose convenience
	_ = v.BindEnv("database.driver", "NOTIFY_DATABASE_DRIVER", "DB_DRIVER")
	_ = v.BindEnv("database.host", "NOTIFY_DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "NOTIFY_DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.name", "NOTIFY_DATABASE_NAME", "DB_NAME")
	_ = v.BindEnv("database.user", "NOTIFY_DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "NOTIFY_DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("kafka.brokers", "NOTIFY_KAFKA_BROKERS", "KAFKA_BROKERS")
	_ = v.BindEnv("redis.addr", "NOTIFY_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("auth.jwt_secret", "NOTIFY_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("server.port", "NOTIFY_SERVER_PORT", "PORT")

	// Try loading config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// Comma-separated env values arrive as a single element.
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.Kafka.Topics = splitList(cfg.Kafka.Topics)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	if c.Retention.MaxPerChannel < 0 || c.Retention.MaxTotal < 0 {
		return errors.New("retention limits must not be negative")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" dbname=" + d.Name +
		" user=" + d.User +
		" password=" + d.Password +
		" sslmode=disable"
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
