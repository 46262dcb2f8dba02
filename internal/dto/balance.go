package dto

import (
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BalanceResponse is the outstanding balance between the two participants.
type BalanceResponse struct {
	AOwes            decimal.Decimal `json:"aOwes"`
	BOwes            decimal.Decimal `json:"bOwes"`
	Anomalous        bool            `json:"anomalous"`
	TransactionCount int             `json:"transactionCount"`
	Message          string          `json:"message"`
}

// ParticipantTotalsResponse is what one participant paid and carries.
type ParticipantTotalsResponse struct {
	Paid  decimal.Decimal `json:"paid"`
	Share decimal.Decimal `json:"share"`
}

// DetailedBalanceResponse adds per-participant totals to the balance.
type DetailedBalanceResponse struct {
	BalanceResponse
	A            ParticipantTotalsResponse `json:"a"`
	B            ParticipantTotalsResponse `json:"b"`
	TotalSpent   decimal.Decimal           `json:"totalSpent"`
	AverageSplit SplitResponse             `json:"averageSplit"`
}

// SettleResponse reports how many transactions a settlement closed.
type SettleResponse struct {
	Settled int64 `json:"settled"`
}

// PatchComponentRequest says that Debtor should owe the other participant Amount.
type PatchComponentRequest struct {
	Debtor      string          `json:"debtor" binding:"required,role"`
	Amount      decimal.Decimal `json:"amount" binding:"gt=0"`
	Description string          `json:"description" binding:"max=200"`
}

// PatchBalanceRequest is the owed position a patch should produce.
type PatchBalanceRequest struct {
	Components []PatchComponentRequest `json:"components" binding:"required,min=1,max=2,dive"`
}

// PatchBalanceResponse reports how many patch transactions were inserted.
type PatchBalanceResponse struct {
	Inserted int `json:"inserted"`
}

func ToBalanceResponse(b domain.Balance, message string) BalanceResponse {
	return BalanceResponse{
		AOwes:            b.AOwes,
		BOwes:            b.BOwes,
		Anomalous:        b.Anomalous,
		TransactionCount: b.TransactionCount,
		Message:          message,
	}
}

func ToDetailedBalanceResponse(d domain.DetailedBalance, message string) DetailedBalanceResponse {
	return DetailedBalanceResponse{
		BalanceResponse: ToBalanceResponse(d.Balance, message),
		A:               ParticipantTotalsResponse{Paid: d.A.Paid, Share: d.A.Share},
		B:               ParticipantTotalsResponse{Paid: d.B.Paid, Share: d.B.Share},
		TotalSpent:      d.TotalSpent,
		AverageSplit:    ToSplitResponse(d.AverageSplit),
	}
}

// ToPatchTarget converts the request into the domain patch target.
func (r PatchBalanceRequest) ToPatchTarget() domain.PatchTarget {
	target := domain.PatchTarget{Components: make([]domain.PatchComponent, 0, len(r.Components))}
	for _, c := range r.Components {
		target.Components = append(target.Components, domain.PatchComponent{
			Debtor:      domain.Role(c.Debtor),
			Amount:      c.Amount,
			Description: c.Description,
		})
	}
	return target
}
