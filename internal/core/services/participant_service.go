package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	portsrepo "github.com/SscSPs/shared_expense_bot/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
)

// participantDirectory implements portssvc.ParticipantSvc over a snapshot taken at startup.
type participantDirectory struct {
	byRole     map[domain.Role]domain.Participant
	byTelegram map[int64]domain.Participant
}

// NewParticipantDirectory stores the configured identities and loads both participants.
// It fails when either role has no identity.
func NewParticipantDirectory(ctx context.Context, repo portsrepo.ParticipantRepository, configured []domain.Participant) (portssvc.ParticipantSvc, error) {
	base := BaseService{}
	for _, p := range configured {
		if !p.Role.Valid() || p.TelegramUserID == 0 {
			continue
		}
		now := base.Now()
		p.AuditFields = domain.AuditFields{CreatedAt: now, CreatedBy: domain.SystemActor, LastUpdatedAt: now, LastUpdatedBy: domain.SystemActor}
		if err := repo.UpsertParticipant(ctx, p); err != nil {
			base.LogError(ctx, err, "Failed to store participant", slog.String("role", string(p.Role)))
			return nil, err
		}
	}

	stored, err := repo.ListParticipants(ctx)
	if err != nil {
		base.LogError(ctx, err, "Failed to load participants")
		return nil, err
	}
	return NewStaticParticipants(stored)
}

// NewStaticParticipants builds the directory from a fixed list.
func NewStaticParticipants(participants []domain.Participant) (portssvc.ParticipantSvc, error) {
	dir := &participantDirectory{
		byRole:     make(map[domain.Role]domain.Participant, 2),
		byTelegram: make(map[int64]domain.Participant, 2),
	}
	for _, p := range participants {
		if !p.Role.Valid() {
			continue
		}
		dir.byRole[p.Role] = p
		if p.TelegramUserID != 0 {
			dir.byTelegram[p.TelegramUserID] = p
		}
	}
	for _, role := range domain.Roles {
		if _, ok := dir.byRole[role]; !ok {
			return nil, apperrors.NotFoundf("participant %s is not configured", string(role))
		}
	}
	return dir, nil
}

var _ portssvc.ParticipantSvc = (*participantDirectory)(nil)

func (d *participantDirectory) ByTelegramID(userID int64) (domain.Participant, bool) {
	p, ok := d.byTelegram[userID]
	return p, ok
}

func (d *participantDirectory) ByRole(role domain.Role) (domain.Participant, bool) {
	p, ok := d.byRole[role]
	return p, ok
}

func (d *participantDirectory) Name(role domain.Role) string {
	if p, ok := d.byRole[role]; ok {
		return p.Name()
	}
	return domain.Participant{Role: role}.Name()
}

func (d *participantDirectory) All() []domain.Participant {
	all := make([]domain.Participant, 0, len(domain.Roles))
	for _, role := range domain.Roles {
		if p, ok := d.byRole[role]; ok {
			all = append(all, p)
		}
	}
	return all
}
