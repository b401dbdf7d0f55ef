package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Capacity guards are pure decisions over current state; they never mutate.

// CheckDeposit rejects a deposit whose USD value would push total holdings
// above the bank capacity.
func CheckDeposit(depositTotal, bankCapacity, usdValue decimal.Decimal) error {
	if depositTotal.Add(usdValue).GreaterThan(bankCapacity) {
		return fmt.Errorf("%w: total %s + %s > capacity %s",
			ErrDepositRejected, depositTotal, usdValue, bankCapacity)
	}
	return nil
}

// CheckWithdrawal rejects a withdrawal that exceeds either the per-operation
// threshold or the caller's balance.
func CheckWithdrawal(usdValue, threshold, balance decimal.Decimal) error {
	if usdValue.GreaterThan(threshold) {
		return fmt.Errorf("%w: %s exceeds threshold %s", ErrWithdrawalRejected, usdValue, threshold)
	}
	if usdValue.GreaterThan(balance) {
		return fmt.Errorf("%w: %s exceeds balance %s", ErrWithdrawalRejected, usdValue, balance)
	}
	return nil
}
