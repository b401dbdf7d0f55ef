package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"vaultbank/domain"
)

// Metrics carries the operational counters and gauges for the ledger.
type Metrics struct {
	DepositsAccepted    prometheus.Counter
	DepositsRejected    *prometheus.CounterVec
	WithdrawalsAccepted prometheus.Counter
	WithdrawalsRejected *prometheus.CounterVec
	OracleReads         *prometheus.CounterVec
	DepositTotalUSD     prometheus.Gauge
	BankCapacityUSD     prometheus.Gauge
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DepositsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "vaultbank_deposits_accepted_total",
			Help: "Deposits credited to the ledger.",
		}),
		DepositsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultbank_deposits_rejected_total",
			Help: "Deposits rejected, by reason.",
		}, []string{"reason"}),
		WithdrawalsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "vaultbank_withdrawals_accepted_total",
			Help: "Withdrawals debited and paid out.",
		}),
		WithdrawalsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultbank_withdrawals_rejected_total",
			Help: "Withdrawals rejected, by reason.",
		}, []string{"reason"}),
		OracleReads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultbank_oracle_reads_total",
			Help: "Oracle gateway reads, by outcome.",
		}, []string{"outcome"}),
		DepositTotalUSD: f.NewGauge(prometheus.GaugeOpts{
			Name: "vaultbank_deposit_total_usd",
			Help: "Current USD-equivalent holdings across all vaults.",
		}),
		BankCapacityUSD: f.NewGauge(prometheus.GaugeOpts{
			Name: "vaultbank_bank_capacity_usd",
			Help: "Configured global capacity ceiling.",
		}),
	}
}

// Nop returns metrics wired to a discarded registry, for tests and optional
// wiring.
func Nop() *Metrics { return New(prometheus.NewRegistry()) }

// Reason maps a terminal operation error to a stable metric label.
func Reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, domain.ErrDepositRejected):
		return "capacity_exceeded"
	case errors.Is(err, domain.ErrWithdrawalRejected):
		return "limit_exceeded"
	case errors.Is(err, domain.ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, domain.ErrOracleUnavailable):
		return "oracle_unavailable"
	case errors.Is(err, domain.ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, domain.ErrStalePrice):
		return "stale_price"
	case errors.Is(err, domain.ErrUnsupportedDecimals):
		return "unsupported_decimals"
	case errors.Is(err, domain.ErrReentrantCall):
		return "reentrant"
	default:
		return "other"
	}
}
