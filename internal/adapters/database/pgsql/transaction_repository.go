package pgsql

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	portsrepo "github.com/SscSPs/shared_expense_bot/internal/core/ports/repositories"
	"github.com/SscSPs/shared_expense_bot/internal/models"
	"github.com/SscSPs/shared_expense_bot/internal/utils/mapping"
	"github.com/SscSPs/shared_expense_bot/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultPageSize = 20

const transactionColumns = `transaction_id, amount, currency_code, category, description, payer, occurred_on,
	settled, settled_at, split_a, split_b, receipt_ref, created_at, created_by, last_updated_at, last_updated_by`

const insertTransactionQuery = `
	INSERT INTO transactions (` + transactionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
`

type PgxTransactionRepository struct {
	BaseRepository
}

// newPgxTransactionRepository creates a new repository for expense transactions.
func newPgxTransactionRepository(pool *pgxpool.Pool) portsrepo.TransactionRepositoryWithTx {
	return &PgxTransactionRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxTransactionRepository implements portsrepo.TransactionRepositoryWithTx
var _ portsrepo.TransactionRepositoryWithTx = (*PgxTransactionRepository)(nil)

func insertArgs(m models.Transaction) []any {
	return []any{
		m.TransactionID,
		m.Amount,
		m.CurrencyCode,
		m.Category,
		m.Description,
		m.Payer,
		m.OccurredOn,
		m.Settled,
		m.SettledAt,
		m.SplitA,
		m.SplitB,
		m.ReceiptRef,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	}
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.TransactionID,
		&t.Amount,
		&t.CurrencyCode,
		&t.Category,
		&t.Description,
		&t.Payer,
		&t.OccurredOn,
		&t.Settled,
		&t.SettledAt,
		&t.SplitA,
		&t.SplitB,
		&t.ReceiptRef,
		&t.CreatedAt,
		&t.CreatedBy,
		&t.LastUpdatedAt,
		&t.LastUpdatedBy,
	)
	return t, err
}

func collectTransactions(rows pgx.Rows, what string) ([]models.Transaction, error) {
	defer rows.Close()
	var transactions []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan "+what+" row", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating "+what+" rows", err)
	}
	return transactions, nil
}

// SaveTransaction persists a new transaction.
func (r *PgxTransactionRepository) SaveTransaction(ctx context.Context, transaction domain.Transaction) error {
	m := mapping.ToModelTransaction(transaction)
	if _, err := r.Pool.Exec(ctx, insertTransactionQuery, insertArgs(m)...); err != nil {
		return apperrors.NewAppError(500, "failed to insert transaction "+m.TransactionID, err)
	}
	return nil
}

// InsertTransactionsInTx queues every insert into one batch on tx.
func (r *PgxTransactionRepository) InsertTransactionsInTx(ctx context.Context, tx pgx.Tx, transactions []domain.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, txn := range transactions {
		batch.Queue(insertTransactionQuery, insertArgs(mapping.ToModelTransaction(txn))...)
	}
	// Close reports the first failed command of the batch.
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return apperrors.NewAppError(500, "failed to execute transaction insert batch", err)
	}
	return nil
}

// FindTransactionByID retrieves a transaction by its ID.
func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1;`
	m, err := scanTransaction(r.Pool.QueryRow(ctx, query, transactionID))
	if err != nil {
		return nil, notFoundOr(err, "transaction "+transactionID)
	}
	d := mapping.ToDomainTransaction(m)
	return &d, nil
}

// FindUnsettledTransactions retrieves every unsettled transaction in creation order.
func (r *PgxTransactionRepository) FindUnsettledTransactions(ctx context.Context) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE settled = FALSE ORDER BY created_at, transaction_id;`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query unsettled transactions", err)
	}
	transactions, err := collectTransactions(rows, "unsettled transaction")
	if err != nil {
		return nil, err
	}
	return mapping.ToDomainTransactionSlice(transactions), nil
}

// FindLatestUnsettledByCreator retrieves the newest unsettled transaction created by actor.
func (r *PgxTransactionRepository) FindLatestUnsettledByCreator(ctx context.Context, actor string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE settled = FALSE AND created_by = $1
		ORDER BY created_at DESC, transaction_id DESC
		LIMIT 1;`
	m, err := scanTransaction(r.Pool.QueryRow(ctx, query, actor))
	if err != nil {
		return nil, notFoundOr(err, "unsettled transaction by "+actor)
	}
	d := mapping.ToDomainTransaction(m)
	return &d, nil
}

// ListTransactions retrieves a page of transactions matching filter, newest first, using
// token-based pagination. It returns the transactions, a token for the next page, and an error.
func (r *PgxTransactionRepository) ListTransactions(ctx context.Context, filter domain.TransactionFilter, nextToken *string) ([]domain.Transaction, *string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.UnsettledOnly {
		where = append(where, "settled = FALSE")
	}
	if filter.Category != "" {
		where = append(where, "lower(category) = lower("+arg(filter.Category)+")")
	}
	if filter.Payer != "" {
		where = append(where, "payer = "+arg(string(filter.Payer)))
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		p := arg(pattern)
		where = append(where, "(description ILIKE "+p+" OR category ILIKE "+p+")")
	}
	if nextToken != nil && *nextToken != "" {
		cursor, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", err)
		}
		// Tuple comparison keeps the order stable across pages.
		where = append(where, "(occurred_on, created_at, transaction_id) < ("+
			arg(cursor.OccurredOn)+", "+arg(cursor.CreatedAt)+", "+arg(cursor.ID)+")")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_on DESC, created_at DESC, transaction_id DESC LIMIT " + arg(fetchLimit) + ";"

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to list transactions", err)
	}
	transactions, err := collectTransactions(rows, "transaction")
	if err != nil {
		return nil, nil, err
	}

	var nextTokenVal *string
	if len(transactions) > limit {
		// The token points to the last item included in this page.
		last := transactions[limit-1]
		token := pagination.EncodeToken(pagination.Cursor{OccurredOn: last.OccurredOn, CreatedAt: last.CreatedAt, ID: last.TransactionID})
		nextTokenVal = &token
		transactions = transactions[:limit]
	}
	return mapping.ToDomainTransactionSlice(transactions), nextTokenVal, nil
}

// UpdateTransaction rewrites the editable fields of an unsettled transaction.
func (r *PgxTransactionRepository) UpdateTransaction(ctx context.Context, transaction domain.Transaction) error {
	m := mapping.ToModelTransaction(transaction)
	query := `
		UPDATE transactions
		SET amount = $2, category = $3, description = $4, split_a = $5, split_b = $6,
		    last_updated_at = $7, last_updated_by = $8
		WHERE transaction_id = $1 AND settled = FALSE;
	`
	tag, err := r.Pool.Exec(ctx, query,
		m.TransactionID,
		m.Amount,
		m.Category,
		m.Description,
		m.SplitA,
		m.SplitB,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update transaction "+m.TransactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewAppError(404, "unsettled transaction "+m.TransactionID+" not found", nil)
	}
	return nil
}

// DeleteTransaction removes an unsettled transaction.
func (r *PgxTransactionRepository) DeleteTransaction(ctx context.Context, transactionID string) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM transactions WHERE transaction_id = $1 AND settled = FALSE;`, transactionID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to delete transaction "+transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewAppError(404, "unsettled transaction "+transactionID+" not found", nil)
	}
	return nil
}

// SettleAllInTx flips every unsettled transaction to settled and returns how many changed.
func (r *PgxTransactionRepository) SettleAllInTx(ctx context.Context, tx pgx.Tx, settledAt time.Time, settledBy string) (int64, error) {
	query := `
		UPDATE transactions
		SET settled = TRUE, settled_at = $1, last_updated_at = $1, last_updated_by = $2
		WHERE settled = FALSE;
	`
	tag, err := tx.Exec(ctx, query, settledAt, settledBy)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to settle transactions", err)
	}
	return tag.RowsAffected(), nil
}

// CountUnsettledPatchesInTx counts unsettled balance patch transactions, locking nothing. A
// patch is recognised by its category or, if the category was edited, by its description.
func (r *PgxTransactionRepository) CountUnsettledPatchesInTx(ctx context.Context, tx pgx.Tx) (int, error) {
	query := `
		SELECT COUNT(*) FROM transactions
		WHERE settled = FALSE AND (category = $1 OR description LIKE $2);
	`
	var count int
	err := tx.QueryRow(ctx, query, domain.PatchCategory, escapeLike(domain.PatchDescriptionPrefix)+"%").Scan(&count)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to count unsettled balance patches", err)
	}
	return count, nil
}

// escapeLike escapes the ILIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
