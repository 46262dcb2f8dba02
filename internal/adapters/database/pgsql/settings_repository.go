package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	portsrepo "github.com/SscSPs/shared_expense_bot/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxSettingsRepository struct {
	BaseRepository
}

func newPgxSettingsRepository(pool *pgxpool.Pool) portsrepo.SettingsRepository {
	return &PgxSettingsRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.SettingsRepository = (*PgxSettingsRepository)(nil)

// GetSetting returns the stored value. A NULL value comes back as nil without an error.
func (r *PgxSettingsRepository) GetSetting(ctx context.Context, key string) (*string, error) {
	var value *string
	err := r.Pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1;`, key).Scan(&value)
	if err != nil {
		return nil, notFoundOr(err, "setting "+key)
	}
	return value, nil
}

// PutSetting inserts or replaces the value stored under key.
func (r *PgxSettingsRepository) PutSetting(ctx context.Context, key string, value string, updatedBy string, now time.Time) error {
	query := `
		INSERT INTO settings (key, value, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    last_updated_at = EXCLUDED.last_updated_at,
		    last_updated_by = EXCLUDED.last_updated_by;
	`
	if _, err := r.Pool.Exec(ctx, query, key, value, now, updatedBy); err != nil {
		return apperrors.NewAppError(500, "failed to store setting "+key, err)
	}
	return nil
}

// DeleteSetting removes key.
func (r *PgxSettingsRepository) DeleteSetting(ctx context.Context, key string) error {
	if _, err := r.Pool.Exec(ctx, `DELETE FROM settings WHERE key = $1;`, key); err != nil {
		return apperrors.NewAppError(500, "failed to delete setting "+key, err)
	}
	return nil
}
