package mapping

import (
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/models"
)

// ToModelRecurringExpense converts a domain RecurringExpense to a model RecurringExpense
func ToModelRecurringExpense(d domain.RecurringExpense) models.RecurringExpense {
	return models.RecurringExpense{
		ScheduleID:  d.ScheduleID,
		ChatID:      d.ChatID,
		Description: d.Description,
		Category:    d.Category,
		Amount:      d.Amount,
		DayOfMonth:  d.DayOfMonth,
		Payer:       string(d.Payer),
		Active:      d.Active,
		LastFiredOn: d.LastFiredOn,
		AuditFields: ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainRecurringExpense converts a model RecurringExpense to a domain RecurringExpense
func ToDomainRecurringExpense(m models.RecurringExpense) domain.RecurringExpense {
	return domain.RecurringExpense{
		ScheduleID:  m.ScheduleID,
		ChatID:      m.ChatID,
		Description: m.Description,
		Category:    m.Category,
		Amount:      m.Amount,
		DayOfMonth:  m.DayOfMonth,
		Payer:       domain.Role(m.Payer),
		Active:      m.Active,
		LastFiredOn: m.LastFiredOn,
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
}
