package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port            string
	AllowedOrigin   string
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTLSeconds int
	AuthSecret      string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	cacheTTL, err := strconv.Atoi(getEnv("CACHE_TTL_SECONDS", "300"))
	if err != nil || cacheTTL < 1 {
		cacheTTL = 300
	}

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		AllowedOrigin:   getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         redisDB,
		CacheTTLSeconds: cacheTTL,
		AuthSecret:      strings.TrimSpace(os.Getenv("AUTH_SECRET")),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
