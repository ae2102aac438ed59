package bankapi

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidRequest    = errors.New("payment request unknown, expired or already used")
	ErrInvalidAmount     = errors.New("amount must be positive")
)
