package application

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"vaultbank/domain"
	"vaultbank/telemetry"
)

// Bank orchestrates deposits and withdrawals over the ledger, converter and
// transfer agent under checks-effects-interactions ordering: validate, then
// mutate the ledger, and only then touch external code. A single system-wide
// in-progress latch rejects reentrant invocation from within a transfer.
type Bank struct {
	ledger    *domain.Ledger
	converter *domain.Converter
	transfers TransferAgent
	events    EventSink
	metrics   *telemetry.Metrics
	log       zerolog.Logger

	inProgress atomic.Bool
}

func NewBank(ledger *domain.Ledger, converter *domain.Converter, transfers TransferAgent, events EventSink, metrics *telemetry.Metrics, log zerolog.Logger) *Bank {
	if events == nil {
		events = NopSink{}
	}
	if metrics == nil {
		metrics = telemetry.Nop()
	}
	b := &Bank{
		ledger:    ledger,
		converter: converter,
		transfers: transfers,
		events:    events,
		metrics:   metrics,
		log:       log,
	}
	b.metrics.BankCapacityUSD.Set(ledger.BankCapacity().InexactFloat64())
	return b
}

// enter claims the in-progress latch. A nested call while an operation is
// mid-flight fails immediately instead of proceeding.
func (b *Bank) enter() error {
	if !b.inProgress.CompareAndSwap(false, true) {
		return domain.ErrReentrantCall
	}
	return nil
}

func (b *Bank) exit() { b.inProgress.Store(false) }

// Deposit credits user's vault with the USD-equivalent of amount. For the
// native asset, sent is the value that actually arrived with the call and
// must equal amount; for tokens the amount is pulled from the user after all
// checks pass. On any failure the ledger is untouched.
func (b *Bank) Deposit(ctx context.Context, user string, asset domain.Asset, amount, sent decimal.Decimal) (decimal.Decimal, error) {
	if err := b.enter(); err != nil {
		return decimal.Zero, err
	}
	defer b.exit()

	usd, err := b.deposit(ctx, user, asset, amount, sent)
	if err != nil {
		b.metrics.DepositsRejected.WithLabelValues(telemetry.Reason(err)).Inc()
		return decimal.Zero, err
	}

	b.metrics.DepositsAccepted.Inc()
	b.metrics.DepositTotalUSD.Set(b.ledger.DepositTotal().InexactFloat64())

	e := newEvent(EventDepositAccepted)
	e.User, e.Asset, e.Amount, e.USDValue = user, asset, amount, usd
	b.events.Publish(e)
	b.log.Info().Str("user", user).Str("asset", string(asset)).
		Str("amount", amount.String()).Str("usd", usd.String()).Msg("deposit accepted")
	return usd, nil
}

func (b *Bank) deposit(ctx context.Context, user string, asset domain.Asset, amount, sent decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: deposit amount must be positive", domain.ErrInvalidAmount)
	}
	if asset.IsNative() && !sent.Equal(amount) {
		return decimal.Zero, fmt.Errorf("%w: declared %s, received %s", domain.ErrAmountMismatch, amount, sent)
	}

	usd, err := b.converter.ToUSD(ctx, asset, amount)
	if err != nil {
		return decimal.Zero, err
	}

	if err := domain.CheckDeposit(b.ledger.DepositTotal(), b.ledger.BankCapacity(), usd); err != nil {
		return decimal.Zero, err
	}

	// Custody must actually hold the tokens before the ledger says so.
	if !asset.IsNative() {
		if err := b.transfers.PullIn(ctx, user, asset, amount); err != nil {
			return decimal.Zero, fmt.Errorf("%w: pull: %v", domain.ErrTransferFailed, err)
		}
	}

	b.ledger.Credit(user, asset, usd)
	return usd, nil
}

// Withdraw debits the USD-equivalent of amount from user's vault and
// releases the asset. The ledger is debited before the outbound transfer;
// if the transfer fails, the debit is undone and the whole operation fails
// as if it never ran.
func (b *Bank) Withdraw(ctx context.Context, user string, asset domain.Asset, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := b.enter(); err != nil {
		return decimal.Zero, err
	}
	defer b.exit()

	usd, err := b.withdraw(ctx, user, asset, amount)
	if err != nil {
		b.metrics.WithdrawalsRejected.WithLabelValues(telemetry.Reason(err)).Inc()
		return decimal.Zero, err
	}

	b.metrics.WithdrawalsAccepted.Inc()
	b.metrics.DepositTotalUSD.Set(b.ledger.DepositTotal().InexactFloat64())

	e := newEvent(EventWithdrawalAccepted)
	e.User, e.Asset, e.Amount, e.USDValue = user, asset, amount, usd
	b.events.Publish(e)
	b.log.Info().Str("user", user).Str("asset", string(asset)).
		Str("amount", amount.String()).Str("usd", usd.String()).Msg("withdrawal accepted")
	return usd, nil
}

func (b *Bank) withdraw(ctx context.Context, user string, asset domain.Asset, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: withdrawal amount must be positive", domain.ErrInvalidAmount)
	}

	usd, err := b.converter.ToUSD(ctx, asset, amount)
	if err != nil {
		return decimal.Zero, err
	}

	if err := domain.CheckWithdrawal(usd, b.ledger.WithdrawalThreshold(), b.ledger.Balance(user, asset)); err != nil {
		return decimal.Zero, err
	}

	b.ledger.Debit(user, asset, usd)

	if err := b.transfers.PayOut(ctx, user, asset, amount); err != nil {
		b.ledger.UndoDebit(user, asset, usd)
		return decimal.Zero, fmt.Errorf("%w: payout: %v", domain.ErrTransferFailed, err)
	}
	return usd, nil
}

// Balance returns user's USD-equivalent balance in asset.
func (b *Bank) Balance(user string, asset domain.Asset) decimal.Decimal {
	return b.ledger.Balance(user, asset)
}

// Stats is a point-in-time view of the global parameters and counters.
type Stats struct {
	DepositTotal        decimal.Decimal `json:"deposit_total"`
	BankCapacity        decimal.Decimal `json:"bank_capacity"`
	WithdrawalThreshold decimal.Decimal `json:"withdrawal_threshold"`
	DepositCount        uint64          `json:"deposit_count"`
	WithdrawCount       uint64          `json:"withdraw_count"`
}

func (b *Bank) Stats() Stats {
	return Stats{
		DepositTotal:        b.ledger.DepositTotal(),
		BankCapacity:        b.ledger.BankCapacity(),
		WithdrawalThreshold: b.ledger.WithdrawalThreshold(),
		DepositCount:        b.ledger.DepositCount(),
		WithdrawCount:       b.ledger.WithdrawCount(),
	}
}
