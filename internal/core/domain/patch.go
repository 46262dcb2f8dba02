package domain

import (
	"strings"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/shopspring/decimal"
)

const (
	// PatchCategory marks transactions inserted by a balance patch.
	PatchCategory = "Balance Patch"
	// PatchDescriptionPrefix starts the description of every patch transaction.
	PatchDescriptionPrefix = "Balance patch"
)

// PatchComponent says that Debtor should owe the other participant Amount.
type PatchComponent struct {
	Debtor      Role            `json:"debtor"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// PatchTarget is the owed position a balance patch should produce.
type PatchTarget struct {
	Components []PatchComponent `json:"components"`
}

// Validate checks that every component is usable.
func (p PatchTarget) Validate() error {
	if len(p.Components) == 0 {
		return apperrors.Validationf("patch needs at least one component")
	}
	for i, c := range p.Components {
		if !c.Debtor.Valid() {
			return apperrors.Validationf("component %d: unknown debtor %q", i+1, string(c.Debtor))
		}
		if !c.Amount.IsPositive() {
			return apperrors.Validationf("component %d: amount must be greater than zero", i+1)
		}
	}
	return nil
}

// Transactions builds the transactions that reproduce the target on an otherwise settled
// ledger: the creditor pays the full amount and the debtor carries all of it.
func (p PatchTarget) Transactions(now time.Time, currency string) []Transaction {
	txns := make([]Transaction, 0, len(p.Components))
	for _, c := range p.Components {
		split := Split{A: decimal.Zero, B: decimal.NewFromInt(1)}
		if c.Debtor == RoleA {
			split = Split{A: decimal.NewFromInt(1), B: decimal.Zero}
		}
		desc := PatchDescriptionPrefix
		if d := strings.TrimSpace(c.Description); d != "" {
			desc += ": " + d
		}
		txns = append(txns, Transaction{
			Amount:       c.Amount,
			CurrencyCode: currency,
			Category:     PatchCategory,
			Description:  desc,
			Payer:        c.Debtor.Other(),
			OccurredOn:   now,
			Split:        &split,
		})
	}
	return txns
}
