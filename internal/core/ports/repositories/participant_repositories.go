package repositories

import (
	"context"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
)

// ParticipantRepository defines persistence operations for the two participants.
type ParticipantRepository interface {
	// FindParticipantByRole retrieves the participant holding role.
	FindParticipantByRole(ctx context.Context, role domain.Role) (*domain.Participant, error)

	// ListParticipants retrieves both participants.
	ListParticipants(ctx context.Context) ([]domain.Participant, error)

	// UpsertParticipant inserts or refreshes a participant identity.
	UpsertParticipant(ctx context.Context, participant domain.Participant) error
}
