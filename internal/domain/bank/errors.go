package bank

import "errors"

var (
	ErrNoProvider     = errors.New("no wallet provider")
	ErrNoAccounts     = errors.New("wallet returned no accounts")
	ErrUserRejected   = errors.New("request rejected by user")
	ErrNotConnected   = errors.New("wallet not connected")
	ErrWriteInFlight  = errors.New("another transaction is still pending")
	ErrUnknownField   = errors.New("unknown form field")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNameTooLong    = errors.New("bank name must be less than 32 bytes")
	ErrInvalidBytes32 = errors.New("invalid bytes32 string")
	ErrReverted       = errors.New("transaction reverted")
)
