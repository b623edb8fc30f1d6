package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AGENT_SWEEP_INTERVAL", "not-a-duration")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://localhost:9090", cfg.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.AgentSweepInterval)
	assert.Equal(t, 24*time.Hour, cfg.MatchExpiryInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.MatchTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.KafkaBrokers)
	require.NoError(t, cfg.Validate())
}

func TestLoadLists(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")

	cfg := Load()

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestValidateProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	cfg := Load()
	assert.Error(t, cfg.Validate(), "default secret must be rejected")

	cfg.JWTSecret = "rotated"
	assert.NoError(t, cfg.Validate())

	cfg.EnableEmailNotifications = true
	assert.Error(t, cfg.Validate(), "mock email in production")

	cfg.EmailProvider = "sendgrid"
	cfg.SendGridAPIKey = "key"
	assert.NoError(t, cfg.Validate())
}

func TestValidateStorage(t *testing.T) {
	cfg := Load()
	cfg.UseS3 = true
	cfg.AWSAccessKeyID = ""

	assert.Error(t, cfg.Validate())
}

func TestValidateAITimeout(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.Validate())

	cfg.AITimeout = 0
	assert.Error(t, cfg.Validate())

	cfg.AITimeout = -time.Second
	assert.Error(t, cfg.Validate())
}
