package application

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"vaultbank/domain"
)

// TransferAgent moves actual asset value. It is an external, untrusted
// collaborator: its calls may hand control to arbitrary code, which is why
// the orchestrator only invokes it at the interaction step, after checks and
// ledger effects.
type TransferAgent interface {
	// PullIn takes amount of asset from user into custody. Not called for
	// the native asset, whose value arrives attached to the operation.
	PullIn(ctx context.Context, user string, asset domain.Asset, amount decimal.Decimal) error
	// PayOut releases amount of asset from custody to user.
	PayOut(ctx context.Context, user string, asset domain.Asset, amount decimal.Decimal) error
}

// LogTransfers is a TransferAgent that records the movement and succeeds.
// It is the wiring point where a deployment plugs in its real settlement
// backend.
type LogTransfers struct {
	Log zerolog.Logger
}

func (t LogTransfers) PullIn(_ context.Context, user string, asset domain.Asset, amount decimal.Decimal) error {
	t.Log.Info().Str("user", user).Str("asset", string(asset)).Str("amount", amount.String()).Msg("pull into custody")
	return nil
}

func (t LogTransfers) PayOut(_ context.Context, user string, asset domain.Asset, amount decimal.Decimal) error {
	t.Log.Info().Str("user", user).Str("asset", string(asset)).Str("amount", amount.String()).Msg("pay out of custody")
	return nil
}
