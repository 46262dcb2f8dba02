package services

import (
	"context"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ExpenseInput is everything needed to commit one expense.
type ExpenseInput struct {
	Payer       domain.Role
	Amount      decimal.Decimal
	Category    string
	Description string
	OccurredOn  *time.Time // defaults to now
	ReceiptRef  string
	Actor       string // recorded as CreatedBy
}

// CommitResult is the committed transaction plus the refreshed balance.
type CommitResult struct {
	Transaction domain.Transaction
	Balance     domain.Balance
	Message     string
}

// LedgerCalculatorSvc defines the balance computations.
type LedgerCalculatorSvc interface {
	// TransactionOwed computes what a single transaction leaves owing. A nil split uses the default.
	TransactionOwed(amount decimal.Decimal, payer domain.Role, split *domain.Split) domain.Owed

	// OutstandingBalance computes the balance over all unsettled transactions.
	OutstandingBalance(ctx context.Context) (*domain.Balance, error)

	// DetailedBalance computes the balance plus per-participant totals and the average split.
	DetailedBalance(ctx context.Context) (*domain.DetailedBalance, error)

	// SettlementMessage renders who owes whom.
	SettlementMessage(balance domain.Balance) string
}

// LedgerWriterSvc defines the write paths of the ledger.
type LedgerWriterSvc interface {
	// CommitExpense resolves the split for the category and writes the transaction with a split snapshot.
	CommitExpense(ctx context.Context, input ExpenseInput) (*CommitResult, error)

	// SettleAll atomically marks every unsettled transaction settled and returns how many changed.
	SettleAll(ctx context.Context, actor string) (int64, error)

	// PatchBalance settles everything and inserts transactions that reproduce target, atomically.
	// It returns ErrAlreadyApplied when an unsettled patch transaction already exists.
	PatchBalance(ctx context.Context, target domain.PatchTarget, actor string) (int, error)
}

// TransactionSvc defines inspection and explicit edits of single transactions.
type TransactionSvc interface {
	// GetTransaction retrieves a transaction by ID.
	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// ListTransactions retrieves a page of transactions matching filter.
	ListTransactions(ctx context.Context, filter domain.TransactionFilter, nextToken *string) ([]domain.Transaction, *string, error)

	// EditTransaction applies edit to an unsettled transaction.
	EditTransaction(ctx context.Context, transactionID string, edit domain.TransactionEdit, actor string) (*domain.Transaction, error)

	// DeleteTransaction removes an unsettled transaction.
	DeleteTransaction(ctx context.Context, transactionID string, actor string) (*domain.Transaction, error)

	// UndoLast deletes the most recent unsettled transaction created by actor.
	UndoLast(ctx context.Context, actor string) (*domain.Transaction, error)
}

// LedgerSvcFacade combines all ledger-related service interfaces
type LedgerSvcFacade interface {
	LedgerCalculatorSvc
	LedgerWriterSvc
	TransactionSvc
}
