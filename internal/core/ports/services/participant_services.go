package services

import "github.com/SscSPs/shared_expense_bot/internal/core/domain"

// ParticipantSvc resolves chat users to ledger roles. Participants are loaded once at startup.
type ParticipantSvc interface {
	// ByTelegramID returns the participant with the given chat user id.
	ByTelegramID(userID int64) (domain.Participant, bool)

	// ByRole returns the participant holding role.
	ByRole(role domain.Role) (domain.Participant, bool)

	// Name returns the display name for role.
	Name(role domain.Role) string

	// All returns both participants in role order.
	All() []domain.Participant
}
