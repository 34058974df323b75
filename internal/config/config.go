package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	JWT      JWTConfig
	Uploads  UploadConfig
	Presence PresenceConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type StoreConfig struct {
	// Path of the JSON database file, used when DatabaseURL is empty.
	Path string
	// DatabaseURL switches the store to the Postgres backend when set.
	DatabaseURL string
}

type JWTConfig struct {
	Secret    []byte
	ExpiresIn time.Duration
}

type UploadConfig struct {
	Dir     string
	MaxSize int64
}

type PresenceConfig struct {
	// Grace is the wait between a disconnect and the final room_users
	// broadcast for the room the connection occupied.
	Grace time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", ":8080"),
			ReadTimeout:  getDurationOrDefault("READ_TIMEOUT", "15s"),
			WriteTimeout: getDurationOrDefault("WRITE_TIMEOUT", "15s"),
		},
		Store: StoreConfig{
			Path:        getEnvOrDefault("STORE_PATH", "safechat.json"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		JWT: JWTConfig{
			Secret:    []byte(getEnvOrFatal("JWT_SECRET")),
			ExpiresIn: getDurationOrDefault("JWT_EXPIRES_IN", "24h"),
		},
		Uploads: UploadConfig{
			Dir:     getEnvOrDefault("UPLOAD_DIR", "uploads"),
			MaxSize: getInt64OrDefault("MAX_UPLOAD_SIZE", 10<<20),
		},
		Presence: PresenceConfig{
			Grace: getDurationOrDefault("PRESENCE_GRACE", "500ms"),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrFatal(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("%s environment variable is required", key)
	}
	return value
}

func getDurationOrDefault(key, defaultValue string) time.Duration {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Invalid duration for %s: %v", key, err)
	}
	return duration
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Fatalf("Invalid integer for %s: %v", key, err)
	}
	return intValue
}
