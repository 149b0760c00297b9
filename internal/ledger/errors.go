package ledger

import "errors"

var (
	// ErrInvalidAmount: zero, negative, sub-cent or non-finite amount.
	ErrInvalidAmount = errors.New("invalid amount")

	ErrInvalidKind        = errors.New("invalid transaction type")
	ErrInvalidCreditLimit = errors.New("credit limit must not be negative")

	// ErrNotInitialized means onboarding has not completed for this session.
	ErrNotInitialized = errors.New("ledger not initialized")

	// ErrAlreadyInitialized is returned instead of overwriting an existing ledger.
	ErrAlreadyInitialized = errors.New("ledger already initialized")
)
