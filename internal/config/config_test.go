package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "APP_ENV", "STORE_BACKEND", "CLERK_AUTHORIZED_PARTIES", "KAFKA_BROKERS", "KAFKA_TOPIC", "IDENTITY_CACHE_TTL", "REDIS_DB"} {
		t.Setenv(k, "")
	}
	cfg := ConfigFromEnv()
	assert.Equal(t, "0.0.0.0:8431", cfg.HTTPAddr)
	assert.Equal(t, BackendMongo, cfg.Backend)
	assert.Equal(t, "storefront.profiles", cfg.KafkaTopic)
	assert.Equal(t, time.Minute, cfg.IdentityCacheTTL)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestConfigFromEnvLists(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("CLERK_AUTHORIZED_PARTIES", "https://shop.example, ,https://admin.example")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("IDENTITY_CACHE_TTL", "30s")
	t.Setenv("REDIS_DB", "2")

	cfg := ConfigFromEnv()
	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.AuthorizedParties)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.IdentityCacheTTL)
	assert.Equal(t, 2, cfg.RedisDB)
}

func TestValidate(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	base := Config{Backend: BackendMemory, JWTKey: "pem", SecretKey: "sk"}
	require.NoError(t, base.Validate())

	bad := base
	bad.Backend = "sqlite"
	assert.Error(t, bad.Validate())

	noKey := base
	noKey.JWTKey = ""
	assert.ErrorContains(t, noKey.Validate(), "CLERK_JWT_KEY")

	prod := base
	prod.Backend = BackendMongo
	prod.Env = "production"
	assert.ErrorContains(t, prod.Validate(), "MONGO_URI")
}

func TestValidateStoreIgnoresIdentitySettings(t *testing.T) {
	cfg := Config{Backend: BackendPostgres}
	assert.NoError(t, cfg.ValidateStore())
	assert.Error(t, cfg.Validate())
}
