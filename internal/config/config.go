// Package config carrega a configuração do BFF: valores padrão, arquivo YAML opcional e
// variáveis de ambiente CARPOOL_*, nesta ordem de precedência crescente.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Notifier NotifierConfig `yaml:"notifier"`
	Events   EventsConfig   `yaml:"events"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	App   string `yaml:"app"`
}

// GatewayConfig aponta para o serviço remoto de contas.
type GatewayConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig escolhe o meio persistente compartilhado pelos stores.
type StorageConfig struct {
	Backend     string `yaml:"backend"` // memory, file, redis, postgres, sqlite
	Namespace   string `yaml:"namespace"`
	Path        string `yaml:"path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	SQLitePath  string `yaml:"sqlite_path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type NotifierConfig struct {
	Backend string `yaml:"backend"` // channel, redis
	Topic   string `yaml:"topic"`
}

// EventsConfig escolhe o transporte dos eventos do marketplace. Group é o consumer group
// compartilhado pelas réplicas; Consumer identifica este processo dentro do grupo.
type EventsConfig struct {
	Backend      string   `yaml:"backend"` // simple, channel, redis, kafka
	KafkaBrokers []string `yaml:"kafka_brokers"`
	Group        string   `yaml:"group"`
	Consumer     string   `yaml:"consumer"`
}

func Default() Config {
	return Config{
		HTTP:    HTTPConfig{Addr: ":3000"},
		Log:     LogConfig{Level: "info", App: "carpool-bff"},
		Gateway: GatewayConfig{BaseURL: "http://localhost:8080/api/v1", Timeout: 10 * time.Second},
		Storage: StorageConfig{
			Backend:    "memory",
			Namespace:  "default",
			Path:       "./data",
			SQLitePath: "./data/carpool.db",
		},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Notifier: NotifierConfig{Backend: "channel", Topic: "session.changes"},
		Events: EventsConfig{
			Backend:  "simple",
			Group:    "carpool-bff",
			Consumer: defaultConsumer(),
		},
	}
}

// defaultConsumer usa hostname e pid para que réplicas no mesmo host não colidam.
func defaultConsumer() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "carpool-bff"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// Load aplica o arquivo em path (quando não vazio) e as variáveis de ambiente sobre Default
// e valida o resultado.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error

	cfg.HTTP.Addr = getEnv("CARPOOL_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Log.Level = getEnv("CARPOOL_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.App = getEnv("CARPOOL_LOG_APP", cfg.Log.App)
	cfg.Gateway.BaseURL = getEnv("CARPOOL_GATEWAY_BASE_URL", cfg.Gateway.BaseURL)
	cfg.Storage.Backend = getEnv("CARPOOL_STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.Namespace = getEnv("CARPOOL_STORAGE_NAMESPACE", cfg.Storage.Namespace)
	cfg.Storage.Path = getEnv("CARPOOL_STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.PostgresDSN = getEnv("CARPOOL_STORAGE_POSTGRES_DSN", cfg.Storage.PostgresDSN)
	cfg.Storage.SQLitePath = getEnv("CARPOOL_STORAGE_SQLITE_PATH", cfg.Storage.SQLitePath)
	cfg.Redis.Addr = getEnv("CARPOOL_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("CARPOOL_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Notifier.Backend = getEnv("CARPOOL_NOTIFIER_BACKEND", cfg.Notifier.Backend)
	cfg.Notifier.Topic = getEnv("CARPOOL_NOTIFIER_TOPIC", cfg.Notifier.Topic)
	cfg.Events.Backend = getEnv("CARPOOL_EVENTS_BACKEND", cfg.Events.Backend)
	cfg.Events.Group = getEnv("CARPOOL_EVENTS_GROUP", cfg.Events.Group)
	cfg.Events.Consumer = getEnv("CARPOOL_EVENTS_CONSUMER", cfg.Events.Consumer)

	if v := os.Getenv("CARPOOL_EVENTS_KAFKA_BROKERS"); v != "" {
		cfg.Events.KafkaBrokers = splitCSV(v)
	}

	if v := os.Getenv("CARPOOL_GATEWAY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CARPOOL_GATEWAY_TIMEOUT: %w", err))
		} else {
			cfg.Gateway.Timeout = d
		}
	}

	if v := os.Getenv("CARPOOL_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CARPOOL_REDIS_DB: %w", err))
		} else {
			cfg.Redis.DB = db
		}
	}

	return errors.Join(errs...)
}

// Validate devolve um único erro nomeando todas as configurações inválidas ou ausentes.
func (c Config) Validate() error {
	var invalid []string

	if c.HTTP.Addr == "" {
		invalid = append(invalid, "http.addr")
	}
	if c.Gateway.BaseURL == "" {
		invalid = append(invalid, "gateway.base_url")
	}
	if c.Gateway.Timeout <= 0 {
		invalid = append(invalid, "gateway.timeout")
	}
	if c.Storage.Namespace == "" {
		invalid = append(invalid, "storage.namespace")
	}

	switch c.Storage.Backend {
	case "memory":
	case "file":
		if c.Storage.Path == "" {
			invalid = append(invalid, "storage.path")
		}
	case "redis":
		if c.Redis.Addr == "" {
			invalid = append(invalid, "redis.addr")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			invalid = append(invalid, "storage.postgres_dsn")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			invalid = append(invalid, "storage.sqlite_path")
		}
	default:
		invalid = append(invalid, "storage.backend")
	}

	switch c.Notifier.Backend {
	case "channel", "redis":
	default:
		invalid = append(invalid, "notifier.backend")
	}
	if c.Notifier.Topic == "" {
		invalid = append(invalid, "notifier.topic")
	}

	switch c.Events.Backend {
	case "simple", "channel":
	case "redis":
		if c.Events.Group == "" {
			invalid = append(invalid, "events.group")
		}
		if c.Events.Consumer == "" {
			invalid = append(invalid, "events.consumer")
		}
	case "kafka":
		if len(c.Events.KafkaBrokers) == 0 {
			invalid = append(invalid, "events.kafka_brokers")
		}
		if c.Events.Group == "" {
			invalid = append(invalid, "events.group")
		}
	default:
		invalid = append(invalid, "events.backend")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid or missing settings: %s", strings.Join(invalid, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
