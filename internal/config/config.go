package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	MongoURI       string
	MongoDB        string
	RedisAddr      string
	HTTPPort       string
	JWTSecret      string
	ReaperInterval time.Duration
	AllowedOrigins []string
}

func Load() *Config {
	return &Config{
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getEnv("MONGO_DB", "skillduel"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		HTTPPort:       getEnv("PORT", "8080"),
		JWTSecret:      getEnv("JWT_SECRET", "super-secret-key-change-in-production"),
		ReaperInterval: time.Duration(getEnvInt("REAPER_INTERVAL_SEC", 30)) * time.Second,
		AllowedOrigins: []string{getEnv("CORS_ALLOWED_ORIGINS", "*")},
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
