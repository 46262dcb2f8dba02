package pgsql

import (
	"context"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	portsrepo "github.com/SscSPs/shared_expense_bot/internal/core/ports/repositories"
	"github.com/SscSPs/shared_expense_bot/internal/models"
	"github.com/SscSPs/shared_expense_bot/internal/utils/mapping"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxParticipantRepository struct {
	BaseRepository
}

func newPgxParticipantRepository(pool *pgxpool.Pool) portsrepo.ParticipantRepository {
	return &PgxParticipantRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.ParticipantRepository = (*PgxParticipantRepository)(nil)

// UpsertParticipant inserts the participant or refreshes its chat identity and name.
func (r *PgxParticipantRepository) UpsertParticipant(ctx context.Context, participant domain.Participant) error {
	m := mapping.ToModelParticipant(participant)
	query := `
		INSERT INTO participants (role, telegram_user_id, display_name, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (role) DO UPDATE
		SET telegram_user_id = EXCLUDED.telegram_user_id,
		    display_name = EXCLUDED.display_name,
		    last_updated_at = EXCLUDED.last_updated_at,
		    last_updated_by = EXCLUDED.last_updated_by;
	`
	_, err := r.Pool.Exec(ctx, query,
		m.Role,
		m.TelegramUserID,
		m.DisplayName,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to upsert participant "+m.Role, err)
	}
	return nil
}

// FindParticipantByRole retrieves the participant holding role.
func (r *PgxParticipantRepository) FindParticipantByRole(ctx context.Context, role domain.Role) (*domain.Participant, error) {
	query := `
		SELECT role, telegram_user_id, display_name, created_at, created_by, last_updated_at, last_updated_by
		FROM participants
		WHERE role = $1;
	`
	var m models.Participant
	err := r.Pool.QueryRow(ctx, query, string(role)).Scan(
		&m.Role,
		&m.TelegramUserID,
		&m.DisplayName,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, notFoundOr(err, "participant "+string(role))
	}
	d := mapping.ToDomainParticipant(m)
	return &d, nil
}

// ListParticipants retrieves both participants in role order.
func (r *PgxParticipantRepository) ListParticipants(ctx context.Context) ([]domain.Participant, error) {
	query := `
		SELECT role, telegram_user_id, display_name, created_at, created_by, last_updated_at, last_updated_by
		FROM participants
		ORDER BY role;
	`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query participants", err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var m models.Participant
		if err := rows.Scan(
			&m.Role,
			&m.TelegramUserID,
			&m.DisplayName,
			&m.CreatedAt,
			&m.CreatedBy,
			&m.LastUpdatedAt,
			&m.LastUpdatedBy,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan participant row", err)
		}
		participants = append(participants, mapping.ToDomainParticipant(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating participant rows", err)
	}
	return participants, nil
}
