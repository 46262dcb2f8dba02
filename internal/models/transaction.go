package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a row of the transactions table.
// The split columns are NULL on rows written before split snapshots existed.
type Transaction struct {
	TransactionID string              `db:"transaction_id"`
	Amount        decimal.Decimal     `db:"amount"`
	CurrencyCode  string              `db:"currency_code"`
	Category      string              `db:"category"`
	Description   string              `db:"description"`
	Payer         string              `db:"payer"`
	OccurredOn    time.Time           `db:"occurred_on"`
	Settled       bool                `db:"settled"`
	SettledAt     *time.Time          `db:"settled_at"`
	SplitA        decimal.NullDecimal `db:"split_a"`
	SplitB        decimal.NullDecimal `db:"split_b"`
	ReceiptRef    *string             `db:"receipt_ref"`
	AuditFields
}
