package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	StoreID               string
	CatalogPageSize       int
	CatalogTTLSeconds     int
	SessionTTLMinutes     int
	AuthSecret            string
	AccessTokenTTLMinutes int
}

func Load() Config {
	// Local development reads a .env file when present; real deployments set
	// the environment directly.
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	pageSize, err := strconv.Atoi(getEnv("CATALOG_PAGE_SIZE", "10"))
	if err != nil || pageSize < 1 {
		pageSize = 10
	}
	catalogTTL, err := strconv.Atoi(getEnv("CATALOG_TTL_SECONDS", "15"))
	if err != nil || catalogTTL < 1 {
		catalogTTL = 15
	}
	sessionTTL, err := strconv.Atoi(getEnv("SESSION_TTL_MINUTES", "30"))
	if err != nil || sessionTTL < 1 {
		sessionTTL = 30
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		StoreID:               getEnv("DEFAULT_STORE_ID", "main-store"),
		CatalogPageSize:       pageSize,
		CatalogTTLSeconds:     catalogTTL,
		SessionTTLMinutes:     sessionTTL,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
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
