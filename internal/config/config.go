package config

import (
	"log"
	"os"
	"time"
)

// Store backends selectable via CHAT_STORE.
const (
	StoreMemory  = "memory"
	StoreSurreal = "surreal"
)

// Config holds all configuration for the chat server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// JWTSecret signs and verifies bearer tokens.
	JWTSecret string

	// StoreBackend selects the message store implementation.
	StoreBackend string

	// StoreTimeout bounds every message-store call made on behalf of a
	// session, so a slow store cannot stall a club's event sequencing.
	StoreTimeout time.Duration

	// SurrealDB connection settings, required when StoreBackend is "surreal".
	DBUrl  string
	DBNs   string
	DBDb   string
	DBUser string
	DBPass string
}

// New loads configuration from environment variables.
func New() *Config {
	cfg := &Config{
		Addr:         getEnv("CHAT_ADDR", ":8080"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		StoreBackend: getEnv("CHAT_STORE", StoreSurreal),
		StoreTimeout: getDuration("CHAT_STORE_TIMEOUT", 5*time.Second),
		DBUrl:        os.Getenv("SURREAL_URL"),
		DBUser:       os.Getenv("SURREAL_USER"),
		DBPass:       os.Getenv("SURREAL_PASS"),
		DBNs:         os.Getenv("SURREAL_NS"),
		DBDb:         os.Getenv("SURREAL_DB"),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("Required environment variable JWT_SECRET is not set.")
	}
	if cfg.StoreBackend == StoreSurreal && (cfg.DBUrl == "" || cfg.DBNs == "" || cfg.DBDb == "") {
		log.Fatal("Required environment variables SURREAL_URL, SURREAL_NS, or SURREAL_DB are not set.")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid duration in %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
