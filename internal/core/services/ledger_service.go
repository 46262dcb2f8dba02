package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	portsrepo "github.com/SscSPs/shared_expense_bot/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/utils"
	"github.com/SscSPs/shared_expense_bot/pkg/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultCategory is used when an expense arrives without one.
	DefaultCategory = "Other"

	defaultListLimit = 20
	maxListLimit     = 100
)

// ledgerService implements portssvc.LedgerSvcFacade
type ledgerService struct {
	BaseService
	txRepo       portsrepo.TransactionRepositoryWithTx
	splitRules   portssvc.SplitRuleSvc
	participants portssvc.ParticipantSvc
	currency     string
}

// LedgerOption configures the ledger service
type LedgerOption func(*ledgerService)

// WithLedgerClock injects the clock used for occurrence and audit timestamps.
func WithLedgerClock(c clock.Clock) LedgerOption {
	return func(s *ledgerService) {
		s.Clock = c
	}
}

// WithLedgerCurrency sets the single currency all transactions are recorded in.
func WithLedgerCurrency(code string) LedgerOption {
	return func(s *ledgerService) {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			s.currency = code
		}
	}
}

// NewLedgerService creates the ledger engine.
func NewLedgerService(
	txRepo portsrepo.TransactionRepositoryWithTx,
	splitRules portssvc.SplitRuleSvc,
	participants portssvc.ParticipantSvc,
	options ...LedgerOption,
) portssvc.LedgerSvcFacade {
	svc := &ledgerService{
		txRepo:       txRepo,
		splitRules:   splitRules,
		participants: participants,
		currency:     "EUR",
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

func (s *ledgerService) TransactionOwed(amount decimal.Decimal, payer domain.Role, split *domain.Split) domain.Owed {
	effective := s.splitRules.Default()
	if split != nil {
		effective = *split
	}
	return domain.OwedFor(amount, payer, effective)
}

func (s *ledgerService) OutstandingBalance(ctx context.Context) (*domain.Balance, error) {
	txns, err := s.txRepo.FindUnsettledTransactions(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to load unsettled transactions")
		return nil, err
	}
	bal := domain.ComputeBalance(txns, s.splitRules.Default())
	if bal.Anomalous {
		s.LogWarn(ctx, "Both participants have a negative net",
			slog.String("a_owes", bal.AOwes.String()),
			slog.String("b_owes", bal.BOwes.String()))
	}
	return &bal, nil
}

func (s *ledgerService) DetailedBalance(ctx context.Context) (*domain.DetailedBalance, error) {
	txns, err := s.txRepo.FindUnsettledTransactions(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to load unsettled transactions")
		return nil, err
	}
	detailed := domain.ComputeDetailedBalance(txns, s.splitRules.Default())
	return &detailed, nil
}

func (s *ledgerService) SettlementMessage(bal domain.Balance) string {
	nameA := s.participants.Name(domain.RoleA)
	nameB := s.participants.Name(domain.RoleB)
	money := func(d decimal.Decimal) string { return utils.FormatMoney(d, s.currency) }

	switch {
	case bal.IsSettled():
		return "All settled up! Nobody owes anything."
	case bal.Anomalous:
		return fmt.Sprintf("⚠️ Unusual balance: %s owes %s and %s owes %s. Please review recent transactions.",
			nameA, money(bal.AOwes), nameB, money(bal.BOwes))
	case bal.AOwes.IsPositive():
		return fmt.Sprintf("%s owes %s %s", nameA, nameB, money(bal.AOwes))
	default:
		return fmt.Sprintf("%s owes %s %s", nameB, nameA, money(bal.BOwes))
	}
}

func (s *ledgerService) CommitExpense(ctx context.Context, input portssvc.ExpenseInput) (*portssvc.CommitResult, error) {
	if _, ok := s.participants.ByRole(input.Payer); !ok || !input.Payer.Valid() {
		err := apperrors.NotFoundf("participant %s is not registered", string(input.Payer))
		s.LogError(ctx, err, "Payer not found", slog.String("payer", string(input.Payer)))
		return nil, err
	}

	category := s.splitRules.NormalizeCategory(input.Category)
	if category == "" {
		category = DefaultCategory
	}
	split := s.splitRules.Resolve(ctx, category)

	now := s.Now()
	occurredOn := now
	if input.OccurredOn != nil && !input.OccurredOn.IsZero() {
		occurredOn = input.OccurredOn.UTC()
	}
	actor := input.Actor
	if actor == "" {
		actor = string(input.Payer)
	}

	txn := domain.Transaction{
		TransactionID: uuid.NewString(),
		Amount:        input.Amount.Round(2),
		CurrencyCode:  s.currency,
		Category:      category,
		Description:   strings.TrimSpace(input.Description),
		Payer:         input.Payer,
		OccurredOn:    occurredOn,
		Split:         &split,
		ReceiptRef:    input.ReceiptRef,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor,
			LastUpdatedAt: now,
			LastUpdatedBy: actor,
		},
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	if err := s.txRepo.SaveTransaction(ctx, txn); err != nil {
		s.LogError(ctx, err, "Failed to save transaction",
			slog.String("transaction_id", txn.TransactionID))
		return nil, err
	}
	s.LogInfo(ctx, "Expense committed",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("payer", string(txn.Payer)),
		slog.String("amount", txn.Amount.String()),
		slog.String("category", txn.Category),
		slog.String("split", split.String()))

	result := &portssvc.CommitResult{Transaction: txn}
	bal, err := s.OutstandingBalance(ctx)
	if err != nil {
		// The expense is stored; only the refreshed balance is missing.
		result.Message = "Balance is temporarily unavailable."
		return result, nil
	}
	result.Balance = *bal
	result.Message = s.SettlementMessage(*bal)
	return result, nil
}

func (s *ledgerService) SettleAll(ctx context.Context, actor string) (int64, error) {
	tx, err := s.txRepo.Begin(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to begin settle transaction")
		return 0, err
	}
	defer s.txRepo.Rollback(ctx, tx)

	count, err := s.txRepo.SettleAllInTx(ctx, tx, s.Now(), actor)
	if err != nil {
		s.LogError(ctx, err, "Failed to settle transactions")
		return 0, err
	}
	if err := s.txRepo.Commit(ctx, tx); err != nil {
		s.LogError(ctx, err, "Failed to commit settlement")
		return 0, err
	}

	s.LogInfo(ctx, "Ledger settled", slog.Int64("settled", count), slog.String("actor", actor))
	return count, nil
}

func (s *ledgerService) PatchBalance(ctx context.Context, target domain.PatchTarget, actor string) (int, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}

	now := s.Now()
	txns := target.Transactions(now, s.currency)
	for i := range txns {
		txns[i].TransactionID = uuid.NewString()
		txns[i].Amount = txns[i].Amount.Round(2)
		txns[i].AuditFields = domain.AuditFields{CreatedAt: now, CreatedBy: actor, LastUpdatedAt: now, LastUpdatedBy: actor}
		if err := txns[i].Validate(); err != nil {
			return 0, err
		}
	}

	tx, err := s.txRepo.Begin(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to begin patch transaction")
		return 0, err
	}
	defer s.txRepo.Rollback(ctx, tx)

	existing, err := s.txRepo.CountUnsettledPatchesInTx(ctx, tx)
	if err != nil {
		s.LogError(ctx, err, "Failed to check for existing patch")
		return 0, err
	}
	if existing > 0 {
		s.LogInfo(ctx, "Balance patch already applied", slog.Int("existing", existing))
		return 0, apperrors.NewAppError(http.StatusConflict, "balance patch already applied", nil)
	}

	if _, err := s.txRepo.SettleAllInTx(ctx, tx, now, actor); err != nil {
		s.LogError(ctx, err, "Failed to settle before patch")
		return 0, err
	}
	if err := s.txRepo.InsertTransactionsInTx(ctx, tx, txns); err != nil {
		s.LogError(ctx, err, "Failed to insert patch transactions")
		return 0, err
	}
	if err := s.txRepo.Commit(ctx, tx); err != nil {
		s.LogError(ctx, err, "Failed to commit patch")
		return 0, err
	}

	s.LogInfo(ctx, "Balance patch applied", slog.Int("transactions", len(txns)), slog.String("actor", actor))
	return len(txns), nil
}

func (s *ledgerService) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		s.LogError(ctx, err, "Failed to find transaction", slog.String("transaction_id", transactionID))
		return nil, err
	}
	return txn, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, filter domain.TransactionFilter, nextToken *string) ([]domain.Transaction, *string, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Category != "" {
		filter.Category = s.splitRules.NormalizeCategory(filter.Category)
	}
	filter.Search = strings.TrimSpace(filter.Search)

	txns, next, err := s.txRepo.ListTransactions(ctx, filter, nextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions")
		return nil, nil, err
	}
	return txns, next, nil
}

func (s *ledgerService) EditTransaction(ctx context.Context, transactionID string, edit domain.TransactionEdit, actor string) (*domain.Transaction, error) {
	if edit.IsEmpty() {
		return nil, apperrors.Validationf("nothing to change")
	}
	txn, err := s.editable(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if edit.Amount != nil {
		txn.Amount = edit.Amount.Round(2)
	}
	if edit.Category != nil {
		category := s.splitRules.NormalizeCategory(*edit.Category)
		if category == "" {
			return nil, apperrors.Validationf("category is required")
		}
		if category != txn.Category && edit.Split == nil {
			split := s.splitRules.Resolve(ctx, category)
			txn.Split = &split
		}
		txn.Category = category
	}
	if edit.Split != nil {
		split := *edit.Split
		txn.Split = &split
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	txn.LastUpdatedAt = s.Now()
	txn.LastUpdatedBy = actor
	if err := s.txRepo.UpdateTransaction(ctx, *txn); err != nil {
		s.LogError(ctx, err, "Failed to update transaction", slog.String("transaction_id", transactionID))
		return nil, err
	}
	s.LogInfo(ctx, "Transaction edited", slog.String("transaction_id", transactionID), slog.String("actor", actor))
	return txn, nil
}

func (s *ledgerService) DeleteTransaction(ctx context.Context, transactionID string, actor string) (*domain.Transaction, error) {
	txn, err := s.editable(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := s.txRepo.DeleteTransaction(ctx, transactionID); err != nil {
		s.LogError(ctx, err, "Failed to delete transaction", slog.String("transaction_id", transactionID))
		return nil, err
	}
	s.LogInfo(ctx, "Transaction deleted", slog.String("transaction_id", transactionID), slog.String("actor", actor))
	return txn, nil
}

func (s *ledgerService) UndoLast(ctx context.Context, actor string) (*domain.Transaction, error) {
	txn, err := s.txRepo.FindLatestUnsettledByCreator(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := s.txRepo.DeleteTransaction(ctx, txn.TransactionID); err != nil {
		s.LogError(ctx, err, "Failed to undo transaction", slog.String("transaction_id", txn.TransactionID))
		return nil, err
	}
	s.LogInfo(ctx, "Transaction undone", slog.String("transaction_id", txn.TransactionID), slog.String("actor", actor))
	return txn, nil
}

// editable loads a transaction that may still be changed. Settled transactions are immutable.
func (s *ledgerService) editable(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Settled {
		return nil, apperrors.Validationf("transaction %s is already settled and cannot be changed", shortID(transactionID))
	}
	return txn, nil
}

// shortID is the prefix of an id shown to users.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
