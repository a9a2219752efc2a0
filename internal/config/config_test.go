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

const testYAML = `
app:
  env: dev
postgres:
  host: db.local
  user: app
  db: shop
  sslMode: require
auth:
  jwtSecret: from-file
payment:
  keyId: rzp_test
  keySecret: file-secret
order:
  cancellationWindow: 6h
  taxRate: 0.18
  shippingFee: "499.00"
frontend:
  url: http://localhost:3000
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(body), 0o600))
	return dir
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := writeConfig(t, testYAML)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("POSTGRES_SSLMODE", "disable")
	t.Setenv("PORT", "9090")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "db.local", cfg.Postgres.Host)
	assert.Equal(t, 6*time.Hour, cfg.Order.CancellationWindow)
	assert.True(t, decimal.RequireFromString("0.18").Equal(cfg.Order.TaxRate))
	assert.True(t, decimal.RequireFromString("499").Equal(cfg.Order.ShippingFee))
}

func TestLoad_Defaults(t *testing.T) {
	dir := writeConfig(t, testYAML)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 8*time.Hour, cfg.Admin.TokenTTL)
	assert.Equal(t, "admin-token", cfg.Admin.CookieName)
	assert.Equal(t, CouponPolicySingleUse, cfg.Coupon.PerUserPolicy)
	assert.True(t, decimal.RequireFromString("0.05").Equal(cfg.Order.CancellationFeeRate))
	assert.Equal(t, "INR", cfg.Payment.Currency)
}

func TestValidate_RequiredKeys(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	assert.ErrorContains(t, cfg.Validate(), "jwtSecret")

	cfg.Auth.JWTSecret = "x"
	cfg.Postgres.URL = "postgres://localhost/db"
	assert.ErrorContains(t, cfg.Validate(), "keySecret")

	cfg.Payment.KeySecret = "s"
	cfg.Frontend.URL = "http://localhost:3000"
	assert.NoError(t, cfg.Validate())

	cfg.Coupon.PerUserPolicy = "sometimes"
	assert.Error(t, cfg.Validate())
}

func TestCanonicalizeEnvKey(t *testing.T) {
	existing := map[string]any{
		"postgres": map[string]any{"sslMode": "disable", "host": "x"},
		"order":    map[string]any{"taxRate": 0.18},
	}

	assert.Equal(t, "postgres.sslMode", canonicalizeEnvKey("POSTGRES_SSLMODE", existing))
	assert.Equal(t, "postgres.host", canonicalizeEnvKey("POSTGRES_HOST", existing))
	assert.Equal(t, "order.taxRate", canonicalizeEnvKey("ORDER_TAXRATE", existing))
	assert.Equal(t, "unknown.key", canonicalizeEnvKey("UNKNOWN_KEY", existing))
}
