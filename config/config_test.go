package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultbank/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vaultbank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		path := writeConfig(t, `
listen: ":9090"
bank_capacity_usd: "1000000000000000000000"
withdrawal_threshold_usd: "500000000000000000000"
heartbeat_seconds: 1800
cache:
  redis_addr: "localhost:6379"
  ttl_seconds: 10
auth:
  admins: [alice]
  super_admins: [root]
feeds:
  - asset: native
    url: http://feeds.local/native
  - asset: tokenA
    url: http://feeds.local/tokenA
    decimals: 6
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Listen)
		assert.Equal(t, 30*time.Minute, cfg.Heartbeat())
		assert.Equal(t, 10*time.Second, cfg.QuoteTTL())
		assert.Equal(t, []string{"alice"}, cfg.Auth.Admins)
		require.Len(t, cfg.Feeds, 2)
		assert.Equal(t, int32(6), cfg.Feeds[1].Decimals)
		assert.True(t, cfg.BankCapacity().GreaterThan(cfg.WithdrawalThreshold()))
	})

	t.Run("defaults fill gaps", func(t *testing.T) {
		path := writeConfig(t, `
bank_capacity_usd: "1000"
withdrawal_threshold_usd: "500"
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Listen)
		assert.Equal(t, time.Hour, cfg.Heartbeat())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"zero capacity", "bank_capacity_usd: \"0\"\nwithdrawal_threshold_usd: \"500\"\n"},
		{"zero threshold", "bank_capacity_usd: \"1000\"\nwithdrawal_threshold_usd: \"0\"\n"},
		{"capacity below threshold", "bank_capacity_usd: \"100\"\nwithdrawal_threshold_usd: \"500\"\n"},
		{"unparseable capacity", "bank_capacity_usd: \"lots\"\nwithdrawal_threshold_usd: \"500\"\n"},
		{"feed missing url", "bank_capacity_usd: \"1000\"\nwithdrawal_threshold_usd: \"500\"\nfeeds:\n  - asset: tokenA\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.ErrorIs(t, err, domain.ErrInitializationFailed)
		})
	}
}
