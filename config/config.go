package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	BackendFile = "file"
	BackendBolt = "bolt"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	CORS     CORSConfig
	Model    ModelConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port        int
	UploadDir   string
	MaxUploadMB int
}

// StoreConfig selects the backend holding prediction records.
type StoreConfig struct {
	Backend string
	Path    string
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

func (d DatabaseConfig) GetDSN() string {
	if d.Driver == DriverSQLite {
		return d.SQLitePath
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// MQTTConfig is disabled when URL is empty.
type MQTTConfig struct {
	URL         string
	TopicPrefix string
}

type CORSConfig struct {
	AllowedOrigins string
}

type ModelConfig struct {
	Path         string
	MetadataPath string
	LibraryPath  string
}

type LogConfig struct {
	Level  string
	Format string
}

func LoadConfig() (*Config, error) {
	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxUpload, err := getIntEnv("MAX_UPLOAD_MB", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}

	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	redisEnabled, err := getBoolEnv("REDIS_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_ENABLED: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        serverPort,
			UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
			MaxUploadMB: maxUpload,
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", BackendFile)),
			Path:    getEnv("STORE_PATH", "predictions.json"),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       dbPort,
			User:       getEnv("DB_USER", "plantdoc"),
			Password:   getEnv("DB_PASSWORD", "plantdoc_dev_password"),
			Name:       getEnv("DB_NAME", "plantdoc"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "notes.db"),
		},
		Redis: RedisConfig{
			Enabled:  redisEnabled,
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		MQTT: MQTTConfig{
			URL:         getEnv("MQTT_URL", ""),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "plantdoc"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Model: ModelConfig{
			Path:         getEnv("MODEL_PATH", "models/plantdnet.onnx"),
			MetadataPath: getEnv("MODEL_METADATA_PATH", "models/plantdnet_metadata.json"),
			LibraryPath:  getEnv("ONNXRUNTIME_LIB", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendBolt:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: want %q or %q", c.Store.Backend, BackendFile, BackendBolt)
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: want %q or %q", c.Database.Driver, DriverPostgres, DriverSQLite)
	}

	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid MAX_UPLOAD_MB %d: must be positive", c.Server.MaxUploadMB)
	}
	return nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}
