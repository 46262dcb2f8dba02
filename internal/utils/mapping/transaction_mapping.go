package mapping

import (
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/models"
	"github.com/shopspring/decimal"
)

// ToModelTransaction converts a domain Transaction to a model Transaction
func ToModelTransaction(d domain.Transaction) models.Transaction {
	m := models.Transaction{
		TransactionID: d.TransactionID,
		Amount:        d.Amount,
		CurrencyCode:  d.CurrencyCode,
		Category:      d.Category,
		Description:   d.Description,
		Payer:         string(d.Payer),
		OccurredOn:    d.OccurredOn,
		Settled:       d.Settled,
		SettledAt:     d.SettledAt,
		AuditFields:   ToModelAuditFields(d.AuditFields),
	}
	if d.Split != nil {
		m.SplitA = decimal.NewNullDecimal(d.Split.A)
		m.SplitB = decimal.NewNullDecimal(d.Split.B)
	}
	if d.ReceiptRef != "" {
		ref := d.ReceiptRef
		m.ReceiptRef = &ref
	}
	return m
}

// ToDomainTransaction converts a model Transaction to a domain Transaction
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	d := domain.Transaction{
		TransactionID: m.TransactionID,
		Amount:        m.Amount,
		CurrencyCode:  m.CurrencyCode,
		Category:      m.Category,
		Description:   m.Description,
		Payer:         domain.Role(m.Payer),
		OccurredOn:    m.OccurredOn,
		Settled:       m.Settled,
		SettledAt:     m.SettledAt,
		AuditFields:   ToDomainAuditFields(m.AuditFields),
	}
	// A half-written snapshot is treated as missing so the default split applies.
	if m.SplitA.Valid && m.SplitB.Valid {
		d.Split = &domain.Split{A: m.SplitA.Decimal, B: m.SplitB.Decimal}
	}
	if m.ReceiptRef != nil {
		d.ReceiptRef = *m.ReceiptRef
	}
	return d
}

// ToDomainTransactionSlice converts a slice of model Transactions to domain Transactions
func ToDomainTransactionSlice(ms []models.Transaction) []domain.Transaction {
	ds := make([]domain.Transaction, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTransaction(m)
	}
	return ds
}
