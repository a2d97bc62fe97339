package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Webhooks  WebhooksConfig  `mapstructure:"webhooks"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
	MigrationsDir  string `mapstructure:"migrations_dir"`
}

// QueueConfig selects the execution queue workflows are handed to.
// Driver is one of "nats", "kafka" or "log".
type QueueConfig struct {
	Driver string      `mapstructure:"driver"`
	NATS   NATSConfig  `mapstructure:"nats"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	Stream        string `mapstructure:"stream"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// RedisConfig is optional. When URL is empty rate limiting stays in-process.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type RateLimitConfig struct {
	WebhookPerMinute  int `mapstructure:"webhook_per_minute"`
	APIReadPerMinute  int `mapstructure:"api_read_per_minute"`
	APIWritePerMinute int `mapstructure:"api_write_per_minute"`
}

type DispatchConfig struct {
	EnqueueTimeout time.Duration `mapstructure:"enqueue_timeout"`
	BatchTimeout   time.Duration `mapstructure:"batch_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	// WorkflowCacheTTL caches dispatch candidates per organization. Zero disables it.
	WorkflowCacheTTL time.Duration `mapstructure:"workflow_cache_ttl"`
}

type WebhooksConfig struct {
	SigningSecret string `mapstructure:"signing_secret"`
}

type AuditConfig struct {
	Retention     time.Duration `mapstructure:"retention"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.url", "file:data/leadflow.db")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.migrations_dir", "migrations")

	v.SetDefault("queue.driver", "log")
	v.SetDefault("queue.nats.stream", "WORKFLOW_EXECUTIONS")
	v.SetDefault("queue.nats.subject_prefix", "workflows")
	v.SetDefault("queue.kafka.topic", "workflow-executions")

	v.SetDefault("jwt.access_token_ttl", time.Hour)

	v.SetDefault("rate_limit.webhook_per_minute", 600)
	v.SetDefault("rate_limit.api_read_per_minute", 1000)
	v.SetDefault("rate_limit.api_write_per_minute", 100)

	v.SetDefault("dispatch.enqueue_timeout", 5*time.Second)
	v.SetDefault("dispatch.batch_timeout", 25*time.Second)
	v.SetDefault("dispatch.max_concurrency", 1)

	v.SetDefault("audit.retention", 30*24*time.Hour)
	v.SetDefault("audit.prune_interval", time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
