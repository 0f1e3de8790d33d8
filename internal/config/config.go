package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds process settings that are not owned by pkg/database or pkg/utilities.
type Config struct {
	HTTPAddr string
	Env      string
	Backend  string

	// identity provider
	JWTKey            string
	Issuer            string
	AuthorizedParties []string
	SecretKey         string
	APIURL            string
	IdentityCacheTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string
	KafkaTopic   string
}

// ConfigFromEnv reads config from environment variables. Call godotenv.Load first
// if a .env file should be honoured.
func ConfigFromEnv() Config {
	cfg := Config{
		HTTPAddr:          getenv("HTTP_ADDR", "0.0.0.0:8431"),
		Env:               getenv("APP_ENV", "development"),
		Backend:           strings.ToLower(getenv("STORE_BACKEND", BackendMongo)),
		JWTKey:            os.Getenv("CLERK_JWT_KEY"),
		Issuer:            os.Getenv("CLERK_ISSUER"),
		AuthorizedParties: splitList(os.Getenv("CLERK_AUTHORIZED_PARTIES")),
		SecretKey:         os.Getenv("CLERK_SECRET_KEY"),
		APIURL:            getenv("CLERK_API_URL", "https://api.clerk.com"),
		IdentityCacheTTL:  time.Minute,
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        getenv("KAFKA_TOPIC", "storefront.profiles"),
	}
	if v := os.Getenv("IDENTITY_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.IdentityCacheTTL = d
		}
	}
	if v, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		cfg.RedisDB = v
	}
	return cfg
}

// Validate reports the first missing or invalid setting for serving HTTP.
func (c Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if c.JWTKey == "" {
		return errors.New("CLERK_JWT_KEY is required")
	}
	if c.SecretKey == "" {
		return errors.New("CLERK_SECRET_KEY is required")
	}
	if c.IdentityCacheTTL < 0 {
		return errors.New("IDENTITY_CACHE_TTL must not be negative")
	}
	return nil
}

// ValidateStore checks only the storage settings; the maintenance commands need no more.
func (c Config) ValidateStore() error {
	switch c.Backend {
	case BackendMongo, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND %q: want mongo, postgres or memory", c.Backend)
	}
	if c.Backend == BackendMongo && os.Getenv("MONGO_URI") == "" && c.IsProduction() {
		return errors.New("MONGO_URI is required in production")
	}
	if c.Backend == BackendPostgres && os.Getenv("DATABASE_URL") == "" && c.IsProduction() {
		return errors.New("DATABASE_URL is required in production")
	}
	return nil
}

func (c Config) IsProduction() bool { return c.Env == "production" }

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
