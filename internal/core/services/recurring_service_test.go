package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/core/services"
	"github.com/SscSPs/shared_expense_bot/pkg/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type RecurringServiceTestSuite struct {
	suite.Suite
	mockScheduleRepo *MockScheduleRepository
	mockLedger       *MockLedgerWriter
	clock            *clock.ManualClock
	service          portssvc.RecurringSvc
	ctx              context.Context
}

func TestRecurringServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RecurringServiceTestSuite))
}

func (suite *RecurringServiceTestSuite) SetupTest() {
	suite.mockScheduleRepo = new(MockScheduleRepository)
	suite.mockLedger = new(MockLedgerWriter)
	suite.clock = clock.NewManual(time.Date(2026, time.May, 15, 9, 0, 0, 0, time.UTC))
	suite.service = services.NewRecurringService(suite.mockScheduleRepo, suite.mockLedger, services.WithRecurringClock(suite.clock))
	suite.ctx = context.Background()
}

func rent(day int, lastFired *time.Time) domain.RecurringExpense {
	return domain.RecurringExpense{
		ScheduleID:  "sched-rent",
		Description: "Rent",
		Category:    "Rent",
		Amount:      decimal.NewFromInt(900),
		DayOfMonth:  day,
		Payer:       domain.RoleA,
		Active:      true,
		LastFiredOn: lastFired,
	}
}

func (suite *RecurringServiceTestSuite) TestCreateSchedule_DayStillAhead() {
	suite.mockScheduleRepo.On("SaveSchedule", suite.ctx, mock.MatchedBy(func(s domain.RecurringExpense) bool {
		return s.ScheduleID != "" && s.Active && s.LastFiredOn == nil && s.CreatedBy == "A"
	})).Return(nil).Once()

	created, err := suite.service.CreateSchedule(suite.ctx, rent(20, nil), "A")

	suite.Require().NoError(err)
	suite.Nil(created.LastFiredOn)
	suite.mockScheduleRepo.AssertExpectations(suite.T())
}

func (suite *RecurringServiceTestSuite) TestCreateSchedule_DayAlreadyPassedStartsNextMonth() {
	suite.mockScheduleRepo.On("SaveSchedule", suite.ctx, mock.AnythingOfType("domain.RecurringExpense")).Return(nil).Once()

	created, err := suite.service.CreateSchedule(suite.ctx, rent(1, nil), "A")

	suite.Require().NoError(err)
	suite.Require().NotNil(created.LastFiredOn)
	suite.False(created.DueOn(suite.clock.Now()))
	suite.True(created.DueOn(time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)))
}

func (suite *RecurringServiceTestSuite) TestCreateSchedule_Invalid() {
	_, err := suite.service.CreateSchedule(suite.ctx, rent(32, nil), "A")
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockScheduleRepo.AssertNotCalled(suite.T(), "SaveSchedule", mock.Anything, mock.Anything)
}

func (suite *RecurringServiceTestSuite) TestFireDue_CommitsOnlyDueSchedules() {
	now := suite.clock.Now()
	lastMonth := time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC)
	thisMonth := time.Date(2026, time.May, 10, 0, 0, 0, 0, time.UTC)

	due := rent(10, &lastMonth)
	notYet := rent(20, &lastMonth)
	notYet.ScheduleID = "sched-later"
	alreadyFired := rent(10, &thisMonth)
	alreadyFired.ScheduleID = "sched-done"

	suite.mockScheduleRepo.On("ListActiveSchedules", suite.ctx).Return([]domain.RecurringExpense{due, notYet, alreadyFired}, nil).Once()
	suite.mockScheduleRepo.On("ClaimScheduleRun", suite.ctx, "sched-rent", now).Return(true, nil).Once()
	suite.mockLedger.On("CommitExpense", suite.ctx, mock.MatchedBy(func(in portssvc.ExpenseInput) bool {
		return in.Payer == domain.RoleA &&
			in.Amount.Equal(decimal.NewFromInt(900)) &&
			in.Actor == domain.SystemActor &&
			in.OccurredOn != nil && in.OccurredOn.Equal(now)
	})).Return(&portssvc.CommitResult{Transaction: domain.Transaction{TransactionID: "tx-rent"}}, nil).Once()

	fired, err := suite.service.FireDue(suite.ctx, now)

	suite.Require().NoError(err)
	suite.Require().Len(fired, 1)
	suite.Equal("sched-rent", fired[0].Schedule.ScheduleID)
	suite.Equal("tx-rent", fired[0].Result.Transaction.TransactionID)
	suite.mockScheduleRepo.AssertNotCalled(suite.T(), "ClaimScheduleRun", mock.Anything, "sched-later", mock.Anything)
	suite.mockScheduleRepo.AssertNotCalled(suite.T(), "ClaimScheduleRun", mock.Anything, "sched-done", mock.Anything)
	suite.mockLedger.AssertExpectations(suite.T())
}

func (suite *RecurringServiceTestSuite) TestFireDue_ClaimedElsewhere() {
	now := suite.clock.Now()
	suite.mockScheduleRepo.On("ListActiveSchedules", suite.ctx).Return([]domain.RecurringExpense{rent(10, nil)}, nil).Once()
	suite.mockScheduleRepo.On("ClaimScheduleRun", suite.ctx, "sched-rent", now).Return(false, nil).Once()

	fired, err := suite.service.FireDue(suite.ctx, now)

	suite.Require().NoError(err)
	suite.Empty(fired)
	suite.mockLedger.AssertNotCalled(suite.T(), "CommitExpense", mock.Anything, mock.Anything)
}

func (suite *RecurringServiceTestSuite) TestFireDue_CommitFailureReleasesClaim() {
	now := suite.clock.Now()
	lastMonth := time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC)
	suite.mockScheduleRepo.On("ListActiveSchedules", suite.ctx).Return([]domain.RecurringExpense{rent(10, &lastMonth)}, nil).Once()
	suite.mockScheduleRepo.On("ClaimScheduleRun", suite.ctx, "sched-rent", now).Return(true, nil).Once()
	suite.mockLedger.On("CommitExpense", suite.ctx, mock.Anything).Return(nil, apperrors.Storage("save", errors.New("down"))).Once()
	suite.mockScheduleRepo.On("ReleaseScheduleRun", suite.ctx, "sched-rent", &lastMonth).Return(nil).Once()

	fired, err := suite.service.FireDue(suite.ctx, now)

	suite.ErrorIs(err, apperrors.ErrStorage)
	suite.Empty(fired)
	suite.mockScheduleRepo.AssertExpectations(suite.T())
}

func (suite *RecurringServiceTestSuite) TestDeleteSchedule_Unknown() {
	suite.mockScheduleRepo.On("FindScheduleByID", suite.ctx, "nope").Return(nil, apperrors.ErrNotFound).Once()

	err := suite.service.DeleteSchedule(suite.ctx, "nope", "B")

	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockScheduleRepo.AssertNotCalled(suite.T(), "DeactivateSchedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *RecurringServiceTestSuite) TestDeleteSchedule() {
	schedule := rent(10, nil)
	suite.mockScheduleRepo.On("FindScheduleByID", suite.ctx, "sched-rent").Return(&schedule, nil).Once()
	suite.mockScheduleRepo.On("DeactivateSchedule", suite.ctx, "sched-rent", "B", suite.clock.Now()).Return(nil).Once()

	suite.Require().NoError(suite.service.DeleteSchedule(suite.ctx, "sched-rent", "B"))
	suite.mockScheduleRepo.AssertExpectations(suite.T())
}
