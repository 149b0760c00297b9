package models

import "github.com/shopspring/decimal"

// User is the single account holder of a session.
type User struct {
	Name        string          `json:"name"`
	CURP        string          `json:"curp"`
	Balance     decimal.Decimal `json:"balance"`
	CreditLimit decimal.Decimal `json:"creditLimit"`
}
