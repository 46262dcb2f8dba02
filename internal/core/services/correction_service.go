package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/core/ports/gateways"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

const (
	// MinCorrectionConfidence is the interpretation confidence below which nothing is applied.
	MinCorrectionConfidence = 0.5

	correctionCandidates = 10
)

// correctionService implements portssvc.CorrectionSvc
type correctionService struct {
	BaseService
	extractor gateways.ReceiptExtractor
	ledger    portssvc.TransactionSvc
}

// NewCorrectionService creates the free-text correction service.
func NewCorrectionService(extractor gateways.ReceiptExtractor, ledger portssvc.TransactionSvc) portssvc.CorrectionSvc {
	return &correctionService{extractor: extractor, ledger: ledger}
}

var _ portssvc.CorrectionSvc = (*correctionService)(nil)

func (s *correctionService) Correct(ctx context.Context, text string, actor string) ([]portssvc.CorrectionOutcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validationf("tell me what to change, e.g. \"make the last one 60/40\"")
	}

	candidates, _, err := s.ledger.ListTransactions(ctx, domain.TransactionFilter{UnsettledOnly: true, Limit: correctionCandidates}, nil)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, apperrors.NotFoundf("there are no unsettled transactions to correct")
	}

	plan, err := s.extractor.InterpretCorrection(ctx, text, candidates)
	if err != nil {
		s.LogError(ctx, err, "Correction interpretation failed")
		return nil, err
	}
	s.LogInfo(ctx, "Correction interpreted",
		slog.Int("actions", len(plan.Actions)),
		slog.Float64("confidence", plan.Confidence))

	outcomes := make([]portssvc.CorrectionOutcome, 0, len(plan.Actions))
	if plan.Confidence < MinCorrectionConfidence {
		for _, action := range plan.Actions {
			outcomes = append(outcomes, portssvc.CorrectionOutcome{Action: action, Message: unknownMessage(action)})
		}
		if len(outcomes) == 0 {
			outcomes = append(outcomes, portssvc.CorrectionOutcome{Action: domain.CorrectionAction{Kind: domain.CorrectionUnknown}, Message: unknownMessage(domain.CorrectionAction{})})
		}
		return outcomes, nil
	}

	for _, action := range plan.Actions {
		outcomes = append(outcomes, s.apply(ctx, action, candidates, actor))
	}
	return outcomes, nil
}

func (s *correctionService) apply(ctx context.Context, action domain.CorrectionAction, candidates []domain.Transaction, actor string) portssvc.CorrectionOutcome {
	outcome := portssvc.CorrectionOutcome{Action: action}
	if action.Kind == domain.CorrectionUnknown || action.Kind == "" {
		outcome.Message = unknownMessage(action)
		return outcome
	}

	target, ok := pickCandidate(action.TransactionID, candidates)
	if !ok {
		outcome.Message = fmt.Sprintf("I couldn't find transaction %s among the recent unsettled ones.", shortID(action.TransactionID))
		return outcome
	}
	outcome.Action.TransactionID = target.TransactionID

	var err error
	switch action.Kind {
	case domain.CorrectionDelete:
		_, err = s.ledger.DeleteTransaction(ctx, target.TransactionID, actor)
	case domain.CorrectionUpdateAmount:
		if action.Data.Amount == nil {
			err = apperrors.Validationf("no new amount given")
			break
		}
		_, err = s.ledger.EditTransaction(ctx, target.TransactionID, domain.TransactionEdit{Amount: action.Data.Amount}, actor)
	case domain.CorrectionUpdateCategory:
		if strings.TrimSpace(action.Data.Category) == "" {
			err = apperrors.Validationf("no new category given")
			break
		}
		category := action.Data.Category
		_, err = s.ledger.EditTransaction(ctx, target.TransactionID, domain.TransactionEdit{Category: &category}, actor)
	case domain.CorrectionUpdateSplit:
		var split domain.Split
		split, err = splitFromCorrection(action.Data)
		if err == nil {
			_, err = s.ledger.EditTransaction(ctx, target.TransactionID, domain.TransactionEdit{Split: &split}, actor)
		}
	default:
		outcome.Message = unknownMessage(action)
		return outcome
	}

	if err != nil {
		outcome.Message = apperrors.UserMessage(err, "Something went wrong while applying the change.")
		return outcome
	}
	outcome.Applied = true
	outcome.Message = action.StatusMessage
	if outcome.Message == "" {
		outcome.Message = fmt.Sprintf("Done: %s on %s.", strings.ToLower(strings.ReplaceAll(string(action.Kind), "_", " ")), shortID(target.TransactionID))
	}
	return outcome
}

// pickCandidate finds the referenced transaction by full id or id prefix; an empty id means the most recent.
func pickCandidate(id string, candidates []domain.Transaction) (domain.Transaction, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return candidates[0], true
	}
	for _, c := range candidates {
		if c.TransactionID == id || strings.HasPrefix(c.TransactionID, id) {
			return c, true
		}
	}
	return domain.Transaction{}, false
}

// splitFromCorrection accepts fractions or percentages for either share.
func splitFromCorrection(data domain.CorrectionData) (domain.Split, error) {
	hundred := decimal.NewFromInt(100)
	asFraction := func(d decimal.Decimal) decimal.Decimal {
		if d.GreaterThan(decimal.NewFromInt(1)) {
			return d.Div(hundred)
		}
		return d
	}

	var split domain.Split
	switch {
	case data.SplitA != nil && data.SplitB != nil:
		split = domain.Split{A: asFraction(*data.SplitA), B: asFraction(*data.SplitB)}
	case data.SplitA != nil:
		split = domain.SplitFromA(asFraction(*data.SplitA))
	case data.SplitB != nil:
		b := asFraction(*data.SplitB)
		split = domain.Split{A: decimal.NewFromInt(1).Sub(b), B: b}
	default:
		return domain.Split{}, apperrors.Validationf("no new split given")
	}
	return split, split.Validate()
}

func unknownMessage(action domain.CorrectionAction) string {
	if action.StatusMessage != "" {
		return action.StatusMessage
	}
	return "Sorry, I couldn't understand that correction. Try something like \"change the last one to 60/40\"."
}
