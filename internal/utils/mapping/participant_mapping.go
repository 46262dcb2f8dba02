package mapping

import (
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/models"
)

// ToModelParticipant converts a domain Participant to a model Participant
func ToModelParticipant(d domain.Participant) models.Participant {
	m := models.Participant{
		Role:        string(d.Role),
		DisplayName: d.DisplayName,
		AuditFields: ToModelAuditFields(d.AuditFields),
	}
	if d.TelegramUserID != 0 {
		id := d.TelegramUserID
		m.TelegramUserID = &id
	}
	return m
}

// ToDomainParticipant converts a model Participant to a domain Participant
func ToDomainParticipant(m models.Participant) domain.Participant {
	d := domain.Participant{
		Role:        domain.Role(m.Role),
		DisplayName: m.DisplayName,
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
	if m.TelegramUserID != nil {
		d.TelegramUserID = *m.TelegramUserID
	}
	return d
}
