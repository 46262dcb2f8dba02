package dto

import (
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SplitRuleResponse is one category override, or the default.
type SplitRuleResponse struct {
	Category  string        `json:"category"`
	Split     SplitResponse `json:"split"`
	IsDefault bool          `json:"isDefault"`
}

// UpdateSplitRuleRequest sets the share of participant A; B carries the rest.
type UpdateSplitRuleRequest struct {
	SplitA decimal.Decimal `json:"splitA" binding:"gte=0,lte=1"`
}

func ToSplitRuleResponses(rules []domain.SplitRule) []SplitRuleResponse {
	resp := make([]SplitRuleResponse, 0, len(rules))
	for _, r := range rules {
		resp = append(resp, SplitRuleResponse{Category: r.Category, Split: ToSplitResponse(r.Split), IsDefault: r.IsDefault})
	}
	return resp
}
