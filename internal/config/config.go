package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DBDriver      string `yaml:"db_driver"`
	DBHost        string `yaml:"db_host"`
	DBPort        string `yaml:"db_port"`
	DBUser        string `yaml:"db_user"`
	DBPassword    string `yaml:"db_password"`
	DBName        string `yaml:"db_name"`
	RedisHost     string `yaml:"redis_host"`
	RedisPort     string `yaml:"redis_port"`
	SessionStore  string `yaml:"session_store"`
	SessionSecret string `yaml:"session_secret"`
	GinMode       string `yaml:"gin_mode"`
	LogLevel      string `yaml:"log_level"`
	Port          string `yaml:"port"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DBDriver:      "mysql",
		DBHost:        "localhost",
		DBPort:        "3306",
		DBUser:        "bountyuser",
		DBPassword:    "bountypassword",
		DBName:        "bounty_flow",
		RedisHost:     "localhost",
		RedisPort:     "6379",
		SessionStore:  "redis",
		SessionSecret: "default-secret-key-change-me",
		GinMode:       "debug",
		LogLevel:      "info",
		Port:          "8080",
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE, and finally the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.RedisHost = getEnv("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = getEnv("REDIS_PORT", cfg.RedisPort)
	cfg.SessionStore = getEnv("SESSION_STORE", cfg.SessionStore)
	cfg.SessionSecret = getEnv("SESSION_SECRET", cfg.SessionSecret)
	cfg.GinMode = getEnv("GIN_MODE", cfg.GinMode)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)

	switch cfg.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	switch cfg.SessionStore {
	case "redis", "cookie":
	default:
		return nil, fmt.Errorf("unsupported SESSION_STORE %q", cfg.SessionStore)
	}

	return cfg, nil
}

// mergeFile overlays non-empty values from a YAML file.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	mergeString(&c.DBDriver, file.DBDriver)
	mergeString(&c.DBHost, file.DBHost)
	mergeString(&c.DBPort, file.DBPort)
	mergeString(&c.DBUser, file.DBUser)
	mergeString(&c.DBPassword, file.DBPassword)
	mergeString(&c.DBName, file.DBName)
	mergeString(&c.RedisHost, file.RedisHost)
	mergeString(&c.RedisPort, file.RedisPort)
	mergeString(&c.SessionStore, file.SessionStore)
	mergeString(&c.SessionSecret, file.SessionSecret)
	mergeString(&c.GinMode, file.GinMode)
	mergeString(&c.LogLevel, file.LogLevel)
	mergeString(&c.Port, file.Port)
	mergeString(&c.OpenAIAPIKey, file.OpenAIAPIKey)
	return nil
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
