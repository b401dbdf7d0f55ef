package domain

import "errors"

// Operation-terminal errors. Every rejected operation leaves the ledger
// untouched; callers match with errors.Is.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrAmountMismatch       = errors.New("declared amount does not match transferred value")
	ErrDepositRejected      = errors.New("deposit rejected: bank capacity exceeded")
	ErrWithdrawalRejected   = errors.New("withdrawal rejected")
	ErrTransferFailed       = errors.New("asset transfer failed")
	ErrInitializationFailed = errors.New("initialization failed")
	ErrInvalidBankCapacity  = errors.New("bank capacity below current holdings")
	ErrOracleUnavailable    = errors.New("no price feed registered")
	ErrInvalidPrice         = errors.New("oracle returned invalid price")
	ErrStalePrice           = errors.New("oracle price is stale")
	ErrUnsupportedDecimals  = errors.New("price and asset decimals sum below accounting precision")
	ErrReentrantCall        = errors.New("operation already in progress")
	ErrNotAuthorized        = errors.New("caller lacks required capability")
)
