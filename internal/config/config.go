// Package config предоставляет структуры и функции для парсинга и загрузки конфига.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — общая структура настроек API-сервиса.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitConnection        `yaml:"rabbit_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Inference               `yaml:"inference"`
	Interpret               `yaml:"interpret"`
	ImageStore              `yaml:"image_store"`
	FreeAnalysisLimit       int `yaml:"free_analysis_limit" env:"FREE_ANALYSIS_LIMIT" env-default:"3"`
}

// HTTPServer — настройки HTTP-сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:"0.0.0.0:8000"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection — настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env-default:"0"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// RabbitConnection — настройки подключения к RabbitMQ.
// Пустой URL отключает публикацию событий.
type RabbitConnection struct {
	RabbitURL      string `yaml:"rabbit_url" env:"RABBIT_URL"`
	EventsExchange string `yaml:"events_exchange" env-default:"skincoach.events"`
}

// JWTToken — параметры выпуска токенов доступа.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"1h"`
}

// Inference — настройки внешнего сервиса детекции состояний кожи.
type Inference struct {
	InferenceAPIURL string        `yaml:"inference_api_url" env:"INFERENCE_API_URL"`
	InferenceAPIKey string        `yaml:"inference_api_key" env:"INFERENCE_API_KEY"`
	ModelID         string        `yaml:"model_id" env:"INFERENCE_MODEL_ID"`
	TimeoutInfer    time.Duration `yaml:"timeoutinfer" env-default:"30s"`
}

// Interpret — настройки сервиса текстовой интерпретации скоров.
type Interpret struct {
	InterpretAPIURL string `yaml:"interpret_api_url" env:"INTERPRET_API_URL" env-default:"https://api.openai.com/v1"`
	InterpretAPIKey string `yaml:"interpret_api_key" env:"INTERPRET_API_KEY"`
	InterpretModel  string `yaml:"interpret_model" env-default:"gpt-4o"`
}

// ImageStore — настройки локального хранилища снимков.
type ImageStore struct {
	ImageSaveDir   string `yaml:"image_save_dir" env-default:"./static/images"`
	ImageURLPrefix string `yaml:"image_url_prefix" env-default:"/images"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и аварийно
// завершает процесс при любой ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

// ClientConfig — настройки консольного клиента.
type ClientConfig struct {
	BackendURL string        `yaml:"backend_url" env:"SKINCOACH_BACKEND_URL" env-default:"http://localhost:8000"`
	TokenPath  string        `yaml:"token_path" env:"SKINCOACH_TOKEN_PATH"`
	Timeout    time.Duration `yaml:"timeout" env-default:"30s"`
}

// LoadClient загружает конфиг клиента. Файл необязателен: при отсутствии
// CONFIG_PATH значения берутся из окружения и значений по умолчанию.
func LoadClient() (*ClientConfig, error) {
	var cfg ClientConfig
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
