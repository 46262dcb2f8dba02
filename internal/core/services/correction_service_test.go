package services_test

import (
	"context"
	"testing"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type CorrectionServiceTestSuite struct {
	suite.Suite
	mockExtractor *MockReceiptExtractor
	mockLedger    *MockTransactionSvc
	service       portssvc.CorrectionSvc
	ctx           context.Context
	candidates    []domain.Transaction
}

func TestCorrectionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CorrectionServiceTestSuite))
}

func (suite *CorrectionServiceTestSuite) SetupTest() {
	suite.mockExtractor = new(MockReceiptExtractor)
	suite.mockLedger = new(MockTransactionSvc)
	suite.service = services.NewCorrectionService(suite.mockExtractor, suite.mockLedger)
	suite.ctx = context.Background()
	suite.candidates = []domain.Transaction{
		{TransactionID: "3f2a9c1e-aaaa-bbbb-cccc-000000000001", Amount: decimal.NewFromInt(40), Category: "Food", Payer: domain.RoleA},
		{TransactionID: "77b0d4e2-aaaa-bbbb-cccc-000000000002", Amount: decimal.NewFromInt(15), Category: "Transport", Payer: domain.RoleB},
	}
}

func (suite *CorrectionServiceTestSuite) expectCandidates() {
	suite.mockLedger.On("ListTransactions", suite.ctx, mock.MatchedBy(func(f domain.TransactionFilter) bool {
		return f.UnsettledOnly && f.Limit == 10
	}), (*string)(nil)).Return(suite.candidates, nil, nil).Once()
}

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func (suite *CorrectionServiceTestSuite) TestCorrect_LowConfidenceAppliesNothing() {
	suite.expectCandidates()
	suite.mockExtractor.On("InterpretCorrection", suite.ctx, "make it fair", suite.candidates).Return(domain.CorrectionPlan{
		Actions:    []domain.CorrectionAction{{Kind: domain.CorrectionUpdateSplit, Data: domain.CorrectionData{SplitA: decPtr(50)}}},
		Confidence: 0.3,
	}, nil).Once()

	outcomes, err := suite.service.Correct(suite.ctx, "make it fair", "A")

	suite.Require().NoError(err)
	suite.Require().Len(outcomes, 1)
	suite.False(outcomes[0].Applied)
	suite.Contains(outcomes[0].Message, "couldn't understand")
	suite.mockLedger.AssertNotCalled(suite.T(), "EditTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *CorrectionServiceTestSuite) TestCorrect_SplitAsPercentagesOnLatest() {
	suite.expectCandidates()
	suite.mockExtractor.On("InterpretCorrection", suite.ctx, "last one 60/40", suite.candidates).Return(domain.CorrectionPlan{
		Actions: []domain.CorrectionAction{{
			Kind:          domain.CorrectionUpdateSplit,
			Data:          domain.CorrectionData{SplitA: decPtr(60), SplitB: decPtr(40)},
			StatusMessage: "Split updated to 60/40",
		}},
		Confidence: 0.9,
	}, nil).Once()
	suite.mockLedger.On("EditTransaction", suite.ctx, suite.candidates[0].TransactionID, mock.MatchedBy(func(e domain.TransactionEdit) bool {
		return e.Split != nil && e.Split.Equal(domain.NewSplit(0.6, 0.4)) && e.Amount == nil && e.Category == nil
	}), "A").Return(&suite.candidates[0], nil).Once()

	outcomes, err := suite.service.Correct(suite.ctx, "last one 60/40", "A")

	suite.Require().NoError(err)
	suite.Require().Len(outcomes, 1)
	suite.True(outcomes[0].Applied)
	suite.Equal("Split updated to 60/40", outcomes[0].Message)
	suite.mockLedger.AssertExpectations(suite.T())
}

func (suite *CorrectionServiceTestSuite) TestCorrect_DeleteByIDPrefix() {
	suite.expectCandidates()
	suite.mockExtractor.On("InterpretCorrection", suite.ctx, "delete 77b0d4e2", suite.candidates).Return(domain.CorrectionPlan{
		Actions:    []domain.CorrectionAction{{Kind: domain.CorrectionDelete, TransactionID: "77b0d4e2"}},
		Confidence: 0.95,
	}, nil).Once()
	suite.mockLedger.On("DeleteTransaction", suite.ctx, suite.candidates[1].TransactionID, "B").Return(&suite.candidates[1], nil).Once()

	outcomes, err := suite.service.Correct(suite.ctx, "delete 77b0d4e2", "B")

	suite.Require().NoError(err)
	suite.Require().Len(outcomes, 1)
	suite.True(outcomes[0].Applied)
	suite.Equal(suite.candidates[1].TransactionID, outcomes[0].Action.TransactionID)
	suite.Contains(outcomes[0].Message, "77b0d4e2")
}

func (suite *CorrectionServiceTestSuite) TestCorrect_UnknownTransaction() {
	suite.expectCandidates()
	suite.mockExtractor.On("InterpretCorrection", suite.ctx, "fix ffff", suite.candidates).Return(domain.CorrectionPlan{
		Actions:    []domain.CorrectionAction{{Kind: domain.CorrectionUpdateAmount, TransactionID: "ffff0000", Data: domain.CorrectionData{Amount: decPtr(12)}}},
		Confidence: 0.8,
	}, nil).Once()

	outcomes, err := suite.service.Correct(suite.ctx, "fix ffff", "A")

	suite.Require().NoError(err)
	suite.False(outcomes[0].Applied)
	suite.Contains(outcomes[0].Message, "couldn't find")
	suite.mockLedger.AssertNotCalled(suite.T(), "EditTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *CorrectionServiceTestSuite) TestCorrect_LedgerRejectionIsReported() {
	suite.expectCandidates()
	suite.mockExtractor.On("InterpretCorrection", suite.ctx, "that was groceries", suite.candidates).Return(domain.CorrectionPlan{
		Actions:    []domain.CorrectionAction{{Kind: domain.CorrectionUpdateCategory, Data: domain.CorrectionData{Category: "groceries"}}},
		Confidence: 0.7,
	}, nil).Once()
	suite.mockLedger.On("EditTransaction", suite.ctx, suite.candidates[0].TransactionID, mock.Anything, "A").
		Return(nil, apperrors.Validationf("transaction 3f2a9c1e is already settled and cannot be changed")).Once()

	outcomes, err := suite.service.Correct(suite.ctx, "that was groceries", "A")

	suite.Require().NoError(err)
	suite.False(outcomes[0].Applied)
	suite.Contains(outcomes[0].Message, "already settled")
}

func (suite *CorrectionServiceTestSuite) TestCorrect_NoCandidates() {
	suite.mockLedger.On("ListTransactions", suite.ctx, mock.Anything, (*string)(nil)).Return([]domain.Transaction{}, nil, nil).Once()

	_, err := suite.service.Correct(suite.ctx, "delete the last one", "A")

	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockExtractor.AssertNotCalled(suite.T(), "InterpretCorrection", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *CorrectionServiceTestSuite) TestCorrect_EmptyText() {
	_, err := suite.service.Correct(suite.ctx, "   ", "A")
	suite.ErrorIs(err, apperrors.ErrValidation)
}
