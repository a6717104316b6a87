package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "revenue_ledger", cfg.Database.DBName)
	assert.Equal(t, int64(50000), cfg.Ledger.MinPayout)
	assert.Equal(t, "0.70", cfg.Ledger.DefaultInstructorPercent)
	assert.Equal(t, 60*time.Second, cfg.Gateway.TimestampDrift)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9090
ledger:
  min_payout: 100000
  default_instructor_percent: "0.65"
gateway:
  hmac_secret: "topsecret"
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(100000), cfg.Ledger.MinPayout)
	assert.Equal(t, "topsecret", cfg.Gateway.HMACSecret)

	pct, err := cfg.Ledger.InstructorPercent()
	require.NoError(t, err)
	assert.True(t, pct.Equal(decimal.RequireFromString("0.65")))
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RVL_LEDGER_MIN_PAYOUT", "75000")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(75000), cfg.Ledger.MinPayout)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5433, User: "app", Password: "pw",
		DBName: "ledger", SSLMode: "require",
	}
	assert.Equal(t, "postgres://app:pw@db:5433/ledger?sslmode=require", d.DSN())
}

func TestLedgerConfig_InstructorPercent_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "seventy"},
		{"negative", "-0.1"},
		{"above one", "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := LedgerConfig{DefaultInstructorPercent: tt.value}
			_, err := l.InstructorPercent()
			assert.Error(t, err)
		})
	}
}
