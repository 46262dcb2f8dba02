package domain

import (
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Transaction is a single shared expense paid by one participant.
type Transaction struct {
	TransactionID string          `json:"transactionID"`
	Amount        decimal.Decimal `json:"amount"` // Positive value
	CurrencyCode  string          `json:"currencyCode"`
	Category      string          `json:"category"` // Normalized at write time
	Description   string          `json:"description"`
	Payer         Role            `json:"payer"`
	OccurredOn    time.Time       `json:"occurredOn"`
	Settled       bool            `json:"settled"`
	SettledAt     *time.Time      `json:"settledAt,omitempty"`
	Split         *Split          `json:"split,omitempty"` // Snapshot taken at creation; nil on legacy rows
	ReceiptRef    string          `json:"receiptRef,omitempty"`
	AuditFields
}

// Validate checks the invariants a transaction must satisfy before it is written.
func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return apperrors.Validationf("amount must be greater than zero")
	}
	if !t.Payer.Valid() {
		return apperrors.Validationf("unknown payer %q", string(t.Payer))
	}
	if t.CurrencyCode == "" {
		return apperrors.Validationf("currency is required")
	}
	if t.Split != nil {
		if err := t.Split.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// EffectiveSplit returns the stored snapshot or fallback when none was stored.
func (t Transaction) EffectiveSplit(fallback Split) Split {
	if t.Split != nil {
		return *t.Split
	}
	return fallback
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	UnsettledOnly bool
	Category      string
	Search        string
	Payer         Role
	Limit         int
}

// TransactionEdit carries the fields an explicit edit may change. Nil fields stay unchanged.
type TransactionEdit struct {
	Amount   *decimal.Decimal
	Category *string
	Split    *Split
}

// IsEmpty reports whether the edit changes nothing.
func (e TransactionEdit) IsEmpty() bool {
	return e.Amount == nil && e.Category == nil && e.Split == nil
}
