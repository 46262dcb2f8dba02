package services_test

import (
	"context"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/core/ports/gateways"
	portsrepo "github.com/SscSPs/shared_expense_bot/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// --- Mock TransactionRepository ---
type MockTransactionRepository struct {
	mock.Mock
}

var _ portsrepo.TransactionRepositoryWithTx = (*MockTransactionRepository)(nil)

func (m *MockTransactionRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockTransactionRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindUnsettledTransactions(ctx context.Context) ([]domain.Transaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListTransactions(ctx context.Context, filter domain.TransactionFilter, nextToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, filter, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.Transaction), returnedNextToken, args.Error(2)
}

func (m *MockTransactionRepository) FindLatestUnsettledByCreator(ctx context.Context, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SaveTransaction(ctx context.Context, transaction domain.Transaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) UpdateTransaction(ctx context.Context, transaction domain.Transaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) DeleteTransaction(ctx context.Context, transactionID string) error {
	args := m.Called(ctx, transactionID)
	return args.Error(0)
}

func (m *MockTransactionRepository) SettleAllInTx(ctx context.Context, tx pgx.Tx, settledAt time.Time, settledBy string) (int64, error) {
	args := m.Called(ctx, tx, settledAt, settledBy)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) CountUnsettledPatchesInTx(ctx context.Context, tx pgx.Tx) (int, error) {
	args := m.Called(ctx, tx)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRepository) InsertTransactionsInTx(ctx context.Context, tx pgx.Tx, transactions []domain.Transaction) error {
	args := m.Called(ctx, tx, transactions)
	return args.Error(0)
}

// --- Mock SettingsRepository ---
type MockSettingsRepository struct {
	mock.Mock
}

var _ portsrepo.SettingsRepository = (*MockSettingsRepository)(nil)

func (m *MockSettingsRepository) GetSetting(ctx context.Context, key string) (*string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func (m *MockSettingsRepository) PutSetting(ctx context.Context, key string, value string, updatedBy string, now time.Time) error {
	args := m.Called(ctx, key, value, updatedBy, now)
	return args.Error(0)
}

func (m *MockSettingsRepository) DeleteSetting(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// --- Mock ScheduleRepository ---
type MockScheduleRepository struct {
	mock.Mock
}

var _ portsrepo.ScheduleRepositoryFacade = (*MockScheduleRepository)(nil)

func (m *MockScheduleRepository) FindScheduleByID(ctx context.Context, scheduleID string) (*domain.RecurringExpense, error) {
	args := m.Called(ctx, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecurringExpense), args.Error(1)
}

func (m *MockScheduleRepository) ListActiveSchedules(ctx context.Context) ([]domain.RecurringExpense, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RecurringExpense), args.Error(1)
}

func (m *MockScheduleRepository) SaveSchedule(ctx context.Context, schedule domain.RecurringExpense) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockScheduleRepository) DeactivateSchedule(ctx context.Context, scheduleID string, updatedBy string, now time.Time) error {
	args := m.Called(ctx, scheduleID, updatedBy, now)
	return args.Error(0)
}

func (m *MockScheduleRepository) ClaimScheduleRun(ctx context.Context, scheduleID string, firedOn time.Time) (bool, error) {
	args := m.Called(ctx, scheduleID, firedOn)
	return args.Bool(0), args.Error(1)
}

func (m *MockScheduleRepository) ReleaseScheduleRun(ctx context.Context, scheduleID string, previous *time.Time) error {
	args := m.Called(ctx, scheduleID, previous)
	return args.Error(0)
}

// --- Mock ParticipantRepository ---
type MockParticipantRepository struct {
	mock.Mock
}

var _ portsrepo.ParticipantRepository = (*MockParticipantRepository)(nil)

func (m *MockParticipantRepository) FindParticipantByRole(ctx context.Context, role domain.Role) (*domain.Participant, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Participant), args.Error(1)
}

func (m *MockParticipantRepository) ListParticipants(ctx context.Context) ([]domain.Participant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Participant), args.Error(1)
}

func (m *MockParticipantRepository) UpsertParticipant(ctx context.Context, participant domain.Participant) error {
	args := m.Called(ctx, participant)
	return args.Error(0)
}

// --- Mock LedgerWriterSvc (as used by the recurring service) ---
type MockLedgerWriter struct {
	mock.Mock
}

var _ portssvc.LedgerWriterSvc = (*MockLedgerWriter)(nil)

func (m *MockLedgerWriter) CommitExpense(ctx context.Context, input portssvc.ExpenseInput) (*portssvc.CommitResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.CommitResult), args.Error(1)
}

func (m *MockLedgerWriter) SettleAll(ctx context.Context, actor string) (int64, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerWriter) PatchBalance(ctx context.Context, target domain.PatchTarget, actor string) (int, error) {
	args := m.Called(ctx, target, actor)
	return args.Int(0), args.Error(1)
}

// --- Mock TransactionSvc (as used by the correction service) ---
type MockTransactionSvc struct {
	mock.Mock
}

var _ portssvc.TransactionSvc = (*MockTransactionSvc)(nil)

func (m *MockTransactionSvc) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionSvc) ListTransactions(ctx context.Context, filter domain.TransactionFilter, nextToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, filter, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.Transaction), nil, args.Error(2)
}

func (m *MockTransactionSvc) EditTransaction(ctx context.Context, transactionID string, edit domain.TransactionEdit, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, edit, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionSvc) DeleteTransaction(ctx context.Context, transactionID string, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionSvc) UndoLast(ctx context.Context, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// --- Mock ReceiptExtractor ---
type MockReceiptExtractor struct {
	mock.Mock
}

var _ gateways.ReceiptExtractor = (*MockReceiptExtractor)(nil)

func (m *MockReceiptExtractor) Extract(ctx context.Context, images []domain.ReceiptImage) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}

func (m *MockReceiptExtractor) InterpretCorrection(ctx context.Context, text string, candidates []domain.Transaction) (domain.CorrectionPlan, error) {
	args := m.Called(ctx, text, candidates)
	return args.Get(0).(domain.CorrectionPlan), args.Error(1)
}

func strPtr(s string) *string {
	return &s
}
