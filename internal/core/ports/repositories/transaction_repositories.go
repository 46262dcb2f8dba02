package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// TransactionReader defines read operations for expense transactions
type TransactionReader interface {
	// FindTransactionByID retrieves a specific transaction by its unique identifier.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindUnsettledTransactions retrieves every transaction that has not been settled yet.
	FindUnsettledTransactions(ctx context.Context) ([]domain.Transaction, error)

	// ListTransactions retrieves a page of transactions matching filter, newest first, using token-based pagination.
	// It returns the transactions, a token for the next page, and an error.
	ListTransactions(ctx context.Context, filter domain.TransactionFilter, nextToken *string) ([]domain.Transaction, *string, error)

	// FindLatestUnsettledByCreator retrieves the most recent unsettled transaction created by actor.
	FindLatestUnsettledByCreator(ctx context.Context, actor string) (*domain.Transaction, error)
}

// TransactionWriter defines write operations for expense transactions
type TransactionWriter interface {
	// SaveTransaction persists a new transaction.
	SaveTransaction(ctx context.Context, transaction domain.Transaction) error

	// UpdateTransaction updates amount, category, description and split of an unsettled transaction.
	UpdateTransaction(ctx context.Context, transaction domain.Transaction) error

	// DeleteTransaction removes a transaction.
	DeleteTransaction(ctx context.Context, transactionID string) error
}

// TransactionTxSupport defines operations that run inside a caller-owned database transaction
type TransactionTxSupport interface {
	// SettleAllInTx flips every unsettled transaction to settled and returns how many changed.
	SettleAllInTx(ctx context.Context, tx pgx.Tx, settledAt time.Time, settledBy string) (int64, error)

	// CountUnsettledPatchesInTx counts unsettled transactions that a balance patch produced.
	CountUnsettledPatchesInTx(ctx context.Context, tx pgx.Tx) (int, error)

	// InsertTransactionsInTx persists several transactions in one batch.
	InsertTransactionsInTx(ctx context.Context, tx pgx.Tx, transactions []domain.Transaction) error
}

// TransactionRepositoryFacade combines all transaction-related repository interfaces
type TransactionRepositoryFacade interface {
	TransactionReader
	TransactionWriter
	TransactionTxSupport
}

// TransactionRepositoryWithTx extends TransactionRepositoryFacade with transaction capabilities
type TransactionRepositoryWithTx interface {
	TransactionRepositoryFacade
	TransactionManager
}
