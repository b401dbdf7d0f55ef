package application

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultbank/domain"
	"vaultbank/infrastructure/oracle"
)

func newAdminFixture(t *testing.T) (*Admin, *domain.Ledger, *oracle.Gateway, *captureSink) {
	t.Helper()
	ledger, err := domain.NewLedger(usd(1000), usd(500))
	require.NoError(t, err)

	gw := oracle.New(oracle.Config{Heartbeat: time.Hour})
	auth := NewStaticAuthority([]string{"admin"}, []string{"root"})
	sink := &captureSink{}
	return NewAdmin(ledger, gw, auth, sink, nil, zerolog.Nop()), ledger, gw, sink
}

func TestAdmin_AddFeed(t *testing.T) {
	t.Run("admin registers a feed", func(t *testing.T) {
		admin, _, gw, sink := newAdminFixture(t)

		err := admin.AddFeed("admin", "tokenA", oracle.NewFixedFeed(usd(1), 0, time.Now()))
		require.NoError(t, err)
		assert.True(t, gw.Registered("tokenA"))
		require.Len(t, sink.events, 1)
		assert.Equal(t, EventFeedUpdated, sink.events[0].Kind)
	})

	t.Run("non-admin denied", func(t *testing.T) {
		admin, _, gw, sink := newAdminFixture(t)

		err := admin.AddFeed("mallory", "tokenA", oracle.NewFixedFeed(usd(1), 0, time.Now()))
		require.ErrorIs(t, err, domain.ErrNotAuthorized)
		assert.False(t, gw.Registered("tokenA"))
		assert.Empty(t, sink.events)
	})
}

func TestAdmin_SetBankCapacity(t *testing.T) {
	t.Run("capacity below holdings fails", func(t *testing.T) {
		admin, ledger, _, sink := newAdminFixture(t)
		ledger.Credit("alice", "tokenA", usd(300))

		err := admin.SetBankCapacity("admin", usd(200))
		require.ErrorIs(t, err, domain.ErrInvalidBankCapacity)
		assert.True(t, ledger.BankCapacity().Equal(usd(1000)))
		assert.Empty(t, sink.events)
	})

	t.Run("valid update emits event", func(t *testing.T) {
		admin, ledger, _, sink := newAdminFixture(t)

		require.NoError(t, admin.SetBankCapacity("admin", usd(2000)))
		assert.True(t, ledger.BankCapacity().Equal(usd(2000)))
		require.Len(t, sink.events, 1)
		assert.Equal(t, EventCapacityUpdated, sink.events[0].Kind)
	})

	t.Run("super admin also holds admin capability", func(t *testing.T) {
		admin, _, _, _ := newAdminFixture(t)
		require.NoError(t, admin.SetBankCapacity("root", usd(2000)))
	})
}

func TestAdmin_SetWithdrawalThreshold(t *testing.T) {
	admin, ledger, _, sink := newAdminFixture(t)

	require.ErrorIs(t, admin.SetWithdrawalThreshold("admin", usd(0)), domain.ErrInvalidAmount)
	require.NoError(t, admin.SetWithdrawalThreshold("admin", usd(50)))
	assert.True(t, ledger.WithdrawalThreshold().Equal(usd(50)))
	require.Len(t, sink.events, 1)
	assert.Equal(t, EventThresholdUpdated, sink.events[0].Kind)
}

func TestAdmin_GrantRevoke(t *testing.T) {
	t.Run("grant requires super admin", func(t *testing.T) {
		admin, _, _, sink := newAdminFixture(t)

		require.ErrorIs(t, admin.GrantAdmin("admin", "newbie"), domain.ErrNotAuthorized)
		require.NoError(t, admin.GrantAdmin("root", "newbie"))
		require.NoError(t, admin.SetBankCapacity("newbie", usd(1500)))
		require.Len(t, sink.events, 2)
		assert.Equal(t, EventAdminGranted, sink.events[0].Kind)
	})

	t.Run("revoke removes the capability", func(t *testing.T) {
		admin, _, _, _ := newAdminFixture(t)

		require.NoError(t, admin.RevokeAdmin("root", "admin"))
		require.ErrorIs(t, admin.SetBankCapacity("admin", usd(1500)), domain.ErrNotAuthorized)
	})
}
