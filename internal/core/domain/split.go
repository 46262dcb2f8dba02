package domain

import (
	"fmt"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/shopspring/decimal"
)

// SplitEpsilon is the tolerance applied when checking that both shares add up to one.
var SplitEpsilon = decimal.NewFromFloat(0.0001)

var one = decimal.NewFromInt(1)

// Split is the share of a cost carried by each participant. A + B == 1.
type Split struct {
	A decimal.Decimal `json:"a"`
	B decimal.Decimal `json:"b"`
}

// NewSplit builds a split from float shares.
func NewSplit(a, b float64) Split {
	return Split{A: decimal.NewFromFloat(a), B: decimal.NewFromFloat(b)}
}

// SplitFromA builds a split where B carries the remainder of A.
func SplitFromA(a decimal.Decimal) Split {
	return Split{A: a, B: one.Sub(a)}
}

// EqualSplit is the 50/50 split.
func EqualSplit() Split {
	return NewSplit(0.5, 0.5)
}

// Validate checks range and sum.
func (s Split) Validate() error {
	if s.A.IsNegative() || s.A.GreaterThan(one) || s.B.IsNegative() || s.B.GreaterThan(one) {
		return apperrors.Validationf("split percentages must be between 0 and 1 (got %s/%s)", s.A.String(), s.B.String())
	}
	if s.A.Add(s.B).Sub(one).Abs().GreaterThan(SplitEpsilon) {
		return apperrors.Validationf("split percentages must add up to 100%% (got %s)", s.A.Add(s.B).Mul(decimal.NewFromInt(100)).String())
	}
	return nil
}

// Share returns the fraction carried by role.
func (s Split) Share(role Role) decimal.Decimal {
	if role == RoleA {
		return s.A
	}
	return s.B
}

// Equal compares both shares numerically.
func (s Split) Equal(o Split) bool {
	return s.A.Equal(o.A) && s.B.Equal(o.B)
}

// String renders the split as "60/40".
func (s Split) String() string {
	hundred := decimal.NewFromInt(100)
	return fmt.Sprintf("%s/%s", s.A.Mul(hundred).Round(1).String(), s.B.Mul(hundred).Round(1).String())
}

// SplitRule is a category override as shown to users.
type SplitRule struct {
	Category  string `json:"category"`
	Split     Split  `json:"split"`
	IsDefault bool   `json:"isDefault"`
}
