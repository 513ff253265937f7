package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AppliedCode is the immutable per-code amount snapshot copied onto an order
// at finalization. Orders never re-derive these from the live engine.
type AppliedCode struct {
	CodeID uuid.UUID       `json:"code_id"`
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

// AppliedCodes preserves user-entry order; stored as a JSONB column.
type AppliedCodes []AppliedCode
