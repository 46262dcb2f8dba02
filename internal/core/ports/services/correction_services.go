package services

import (
	"context"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
)

// CorrectionOutcome reports what happened to one interpreted action.
type CorrectionOutcome struct {
	Action  domain.CorrectionAction
	Applied bool
	Message string
}

// CorrectionSvc turns free-text correction requests into transaction edits.
type CorrectionSvc interface {
	// Correct interprets text against the most recent unsettled transactions and applies the result.
	Correct(ctx context.Context, text string, actor string) ([]CorrectionOutcome, error)
}
