package dto

import (
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SplitResponse is a cost split as shares of A and B.
type SplitResponse struct {
	A decimal.Decimal `json:"a"`
	B decimal.Decimal `json:"b"`
}

// TransactionResponse defines the data returned for a transaction.
type TransactionResponse struct {
	TransactionID string          `json:"transactionID"`
	Amount        decimal.Decimal `json:"amount"`
	CurrencyCode  string          `json:"currencyCode"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Payer         string          `json:"payer"`
	OccurredOn    time.Time       `json:"occurredOn"`
	Settled       bool            `json:"settled"`
	SettledAt     *time.Time      `json:"settledAt,omitempty"`
	Split         *SplitResponse  `json:"split,omitempty"`
	ReceiptRef    string          `json:"receiptRef,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	CreatedBy     string          `json:"createdBy"`
}

// ListTransactionsParams are the query parameters of the transaction listing.
type ListTransactionsParams struct {
	Unsettled bool   `form:"unsettled"`
	Category  string `form:"category" binding:"max=100"`
	Payer     string `form:"payer" binding:"omitempty,role"`
	Search    string `form:"q" binding:"max=100"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	NextToken string `form:"nextToken"`
}

// ListTransactionsResponse is one page of transactions.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// EditTransactionRequest changes the given fields of an unsettled transaction.
type EditTransactionRequest struct {
	Amount   *decimal.Decimal `json:"amount" binding:"omitempty,gt=0"`
	Category *string          `json:"category" binding:"omitempty,min=1,max=100"`
	SplitA   *decimal.Decimal `json:"splitA" binding:"omitempty,gte=0,lte=1"`
}

func ToSplitResponse(s domain.Split) SplitResponse {
	return SplitResponse{A: s.A, B: s.B}
}

func ToTransactionResponse(t domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		TransactionID: t.TransactionID,
		Amount:        t.Amount,
		CurrencyCode:  t.CurrencyCode,
		Category:      t.Category,
		Description:   t.Description,
		Payer:         string(t.Payer),
		OccurredOn:    t.OccurredOn,
		Settled:       t.Settled,
		SettledAt:     t.SettledAt,
		ReceiptRef:    t.ReceiptRef,
		CreatedAt:     t.CreatedAt,
		CreatedBy:     t.CreatedBy,
	}
	if t.Split != nil {
		s := ToSplitResponse(*t.Split)
		resp.Split = &s
	}
	return resp
}

func ToListTransactionsResponse(txns []domain.Transaction, nextToken *string) ListTransactionsResponse {
	resp := ListTransactionsResponse{Transactions: make([]TransactionResponse, 0, len(txns)), NextToken: nextToken}
	for _, t := range txns {
		resp.Transactions = append(resp.Transactions, ToTransactionResponse(t))
	}
	return resp
}

// ToFilter converts the query into a listing filter.
func (p ListTransactionsParams) ToFilter() domain.TransactionFilter {
	return domain.TransactionFilter{
		UnsettledOnly: p.Unsettled,
		Category:      p.Category,
		Payer:         domain.Role(p.Payer),
		Search:        p.Search,
		Limit:         p.Limit,
	}
}

// ToEdit converts the request into a domain edit.
func (r EditTransactionRequest) ToEdit() domain.TransactionEdit {
	edit := domain.TransactionEdit{Amount: r.Amount, Category: r.Category}
	if r.SplitA != nil {
		s := domain.SplitFromA(*r.SplitA)
		edit.Split = &s
	}
	return edit
}
