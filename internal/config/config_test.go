package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	conf, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", conf.API.Port)
	assert.Equal(t, 5, conf.Ticket.ValidityDays)
	assert.Equal(t, 7, conf.Ticket.RenewalWindowDays)
	assert.Equal(t, 7, conf.Ticket.FallbackOffsetDays)
	assert.Equal(t, "00:00", conf.Scheduler.RunAt)
	assert.Equal(t, 10*time.Minute, conf.Redis.LockTTL)
	assert.Empty(t, conf.Kafka.Brokers)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, `
api:
  port: "9000"
  jwt_signing_key: "from-file"
postgres:
  host: "db"
scheduler:
  run_at: "01:30"
  time_zone: "UTC"
`)
	t.Setenv("API_JWT_SIGNING_KEY", "from-env")

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", conf.API.Port)
	assert.Equal(t, "from-env", conf.API.JWTSigningKey)
	assert.Equal(t, "db", conf.Postgres.Host)

	hour, minute, err := conf.Scheduler.ParseRunAt()
	require.NoError(t, err)
	assert.Equal(t, 1, hour)
	assert.Equal(t, 30, minute)

	loc, err := conf.Scheduler.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_InvalidRunAt(t *testing.T) {
	path := writeFile(t, "scheduler:\n  run_at: \"midnight\"\n")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidRunAt)
}

func TestPostgresConfig_DSN(t *testing.T) {
	c := &PostgresConfig{Host: "h", Port: "5432", User: "u", Password: "p", DB: "d", SSLMode: "disable"}

	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", c.DSN())
}
