package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию клиента.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`

	Backend struct {
		URL         string        `envconfig:"BACKEND_URL" default:"http://localhost:3000"`
		APIPrefix   string        `envconfig:"BACKEND_API_PREFIX" default:"/api/"`
		HTTPTimeout time.Duration `envconfig:"BACKEND_HTTP_TIMEOUT" default:"10s"`
	} `envconfig:""`

	State struct {
		// Backend выбирает хранилище локального состояния: sqlite, redis или memory.
		Backend     string `envconfig:"STATE_BACKEND" default:"sqlite"`
		Path        string `envconfig:"STATE_PATH" default:"socialvibe.db"`
		RedisAddr   string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
		RedisPrefix string `envconfig:"REDIS_PREFIX" default:"socialvibe"`
	} `envconfig:""`

	Push struct {
		Reconnect      bool          `envconfig:"PUSH_RECONNECT" default:"true"`
		InitialBackoff time.Duration `envconfig:"PUSH_INITIAL_BACKOFF" default:"1s"`
		MaxBackoff     time.Duration `envconfig:"PUSH_MAX_BACKOFF" default:"30s"`
		MaxElapsed     time.Duration `envconfig:"PUSH_MAX_ELAPSED" default:"10m"`
		Buffer         int           `envconfig:"PUSH_BUFFER" default:"64"`
	} `envconfig:""`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:"127.0.0.1:8090"`
	// HTTPToken защищает локальный API; пустое значение отключает проверку.
	HTTPToken string `envconfig:"HTTP_TOKEN"`

	FeedPageSize int `envconfig:"FEED_PAGE_SIZE" default:"5"`
}

// LoadE загружает конфиг из окружения и возвращает ошибку.
func LoadE() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := LoadE()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
