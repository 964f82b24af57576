package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Staging StagingConfig
	Client  ClientConfig
	DB      DatabaseConfig
	Redis   RedisConfig
	Janitor JanitorConfig
	Thumbnail ThumbnailConfig
}

type ServerConfig struct {
	Port             string
	Host             string
	Locale           string
	RunAutoMigration bool
}

// StagingConfig governs C1/C2: where uploads live while in flight and
// where they end up once finalized.
type StagingConfig struct {
	StagingDir            string
	MountPath             string
	MaxFileSize           int64 // bytes
	FilenameSanitizeRegex string
	StorageBackend        string // "local" | "s3"
	S3Bucket              string
	S3Region              string
}

// ClientConfig governs C6, the client-side scheduler's defaults.
type ClientConfig struct {
	Endpoint         string
	ChunkSize        int64
	RetryDelays      []time.Duration
	MaxFileSelection int
	MaxStreamCount   int
	WithFilename     string
	OnDuplicate      string
	DestinationPath  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	Enabled  bool
}

type RedisConfig struct {
	Addr    string
	Enabled bool
}

type JanitorConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

type ThumbnailConfig struct {
	MaxDim int
}

func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:             getEnv("SERVER_PORT", "3000"),
			Host:             getEnv("SERVER_HOST", "localhost"),
			Locale:           getEnv("SERVER_LOCALE", "en"),
			RunAutoMigration: getEnvAsBool("RUN_AUTO_MIGRATION", false),
		},
		Staging: StagingConfig{
			StagingDir:            getEnv("STAGING_DIR", "./staging"),
			MountPath:             getEnv("MOUNT_PATH", "./uploads"),
			MaxFileSize:           getEnvAsInt64("MAX_FILE_SIZE", 20*1024*1024*1024), // 20 GiB
			FilenameSanitizeRegex: getEnv("FILENAME_SANITIZE_REGEX", `[^A-Za-z0-9._-]`),
			StorageBackend:        getEnv("STORAGE_BACKEND", "local"),
			S3Bucket:              getEnv("S3_BUCKET", ""),
			S3Region:              getEnv("S3_REGION", "us-east-1"),
		},
		Client: ClientConfig{
			Endpoint:         getEnv("CLIENT_ENDPOINT", "/api/upload/"),
			ChunkSize:        getEnvAsInt64("CLIENT_CHUNK_SIZE", 8*1024*1024),
			RetryDelays:      []time.Duration{0, time.Second, 3 * time.Second, 5 * time.Second},
			MaxFileSelection: int(getEnvAsInt64("CLIENT_MAX_FILE_SELECTION", 60)),
			MaxStreamCount:   int(getEnvAsInt64("CLIENT_MAX_STREAM_COUNT", 8)),
			WithFilename:     getEnv("CLIENT_WITH_FILENAME", "original"),
			OnDuplicate:      getEnv("CLIENT_ON_DUPLICATE", "prevent"),
			DestinationPath:  getEnv("CLIENT_DESTINATION_PATH", ""),
		},
		DB: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "tusflow"),
			Enabled:  getEnvAsBool("LEDGER_ENABLED", true),
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_HOST", "localhost") + ":" + getEnv("REDIS_PORT", "6379"),
			Enabled: getEnvAsBool("NOTIFIER_ENABLED", true),
		},
		Janitor: JanitorConfig{
			Interval: getEnvAsDuration("JANITOR_INTERVAL", 5*time.Minute),
			MaxAge:   getEnvAsDuration("JANITOR_MAX_AGE", 24*time.Hour),
		},
		Thumbnail: ThumbnailConfig{
			MaxDim: int(getEnvAsInt64("THUMBNAIL_MAX_DIM", 320)),
		},
	}

	if err := os.MkdirAll(cfg.Staging.StagingDir, 0755); err != nil {
		panic(err)
	}
	if err := os.MkdirAll(cfg.Staging.MountPath, 0755); err != nil {
		panic(err)
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
