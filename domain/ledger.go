package domain

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Ledger is the authoritative record of custody: per-(user, asset)
// USD-equivalent balances plus the global parameters and counters. Balances
// are never aggregated or exchanged across assets. All mutation goes through
// Credit/Debit and the two setters; views take the read lock, so they never
// observe a half-applied operation.
type Ledger struct {
	mu sync.RWMutex

	vault map[string]map[Asset]decimal.Decimal

	bankCapacity        decimal.Decimal
	withdrawalThreshold decimal.Decimal
	depositTotal        decimal.Decimal
	depositCount        uint64
	withdrawCount       uint64
}

// NewLedger validates the construction-time parameters: both must be
// positive and the capacity must not start below the threshold.
func NewLedger(bankCapacity, withdrawalThreshold decimal.Decimal) (*Ledger, error) {
	switch {
	case bankCapacity.Sign() <= 0:
		return nil, fmt.Errorf("%w: bank capacity must be positive", ErrInitializationFailed)
	case withdrawalThreshold.Sign() <= 0:
		return nil, fmt.Errorf("%w: withdrawal threshold must be positive", ErrInitializationFailed)
	case bankCapacity.LessThan(withdrawalThreshold):
		return nil, fmt.Errorf("%w: capacity %s below threshold %s",
			ErrInitializationFailed, bankCapacity, withdrawalThreshold)
	}
	return &Ledger{
		vault:               make(map[string]map[Asset]decimal.Decimal),
		bankCapacity:        bankCapacity,
		withdrawalThreshold: withdrawalThreshold,
		depositTotal:        decimal.Zero,
	}, nil
}

// Credit increases the (user, asset) balance and the running total, and
// counts the deposit. The caller has already passed CheckDeposit.
func (l *Ledger) Credit(user string, asset Asset, usdValue decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	byAsset := l.entry(user)
	byAsset[asset] = byAsset[asset].Add(usdValue)
	l.depositTotal = l.depositTotal.Add(usdValue)
	l.depositCount++
}

// entry returns the user's balance map, creating it on first touch. Entries
// persist for the lifetime of the instance; there is no deletion.
func (l *Ledger) entry(user string) map[Asset]decimal.Decimal {
	byAsset, ok := l.vault[user]
	if !ok {
		byAsset = make(map[Asset]decimal.Decimal)
		l.vault[user] = byAsset
	}
	return byAsset
}

// Debit decreases the (user, asset) balance and the running total, and
// counts the withdrawal. Sufficiency is the caller's contract: Debit itself
// does not re-check, so it must only run after CheckWithdrawal.
func (l *Ledger) Debit(user string, asset Asset, usdValue decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	byAsset := l.entry(user)
	byAsset[asset] = byAsset[asset].Sub(usdValue)
	l.depositTotal = l.depositTotal.Sub(usdValue)
	l.withdrawCount++
}

// UndoDebit compensates a Debit whose outbound transfer failed, restoring
// the balance, the total, and the withdrawal count as if the operation
// never ran.
func (l *Ledger) UndoDebit(user string, asset Asset, usdValue decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	byAsset := l.entry(user)
	byAsset[asset] = byAsset[asset].Add(usdValue)
	l.depositTotal = l.depositTotal.Add(usdValue)
	l.withdrawCount--
}

// Balance reads the (user, asset) balance; absent entries read as zero.
func (l *Ledger) Balance(user string, asset Asset) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.vault[user][asset]
}

func (l *Ledger) DepositTotal() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.depositTotal
}

func (l *Ledger) BankCapacity() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bankCapacity
}

func (l *Ledger) WithdrawalThreshold() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.withdrawalThreshold
}

func (l *Ledger) DepositCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.depositCount
}

func (l *Ledger) WithdrawCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.withdrawCount
}

// SetBankCapacity lowers or raises the global ceiling. The ceiling can never
// drop to or below what the ledger already holds.
func (l *Ledger) SetBankCapacity(newCapacity decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if newCapacity.LessThanOrEqual(l.depositTotal) {
		return fmt.Errorf("%w: %s <= holdings %s", ErrInvalidBankCapacity, newCapacity, l.depositTotal)
	}
	l.bankCapacity = newCapacity
	return nil
}

// SetWithdrawalThreshold replaces the per-operation ceiling.
func (l *Ledger) SetWithdrawalThreshold(newThreshold decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if newThreshold.Sign() <= 0 {
		return fmt.Errorf("%w: threshold must be positive", ErrInvalidAmount)
	}
	l.withdrawalThreshold = newThreshold
	return nil
}

// VaultSum recomputes the total across every vault entry. It exists for
// audit checks against DepositTotal.
func (l *Ledger) VaultSum() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sum := decimal.Zero
	for _, byAsset := range l.vault {
		for _, bal := range byAsset {
			sum = sum.Add(bal)
		}
	}
	return sum
}
