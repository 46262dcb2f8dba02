package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	portsrepo "github.com/SscSPs/shared_expense_bot/internal/core/ports/repositories"
	"github.com/SscSPs/shared_expense_bot/internal/models"
	"github.com/SscSPs/shared_expense_bot/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const scheduleColumns = `schedule_id, chat_id, description, category, amount, day_of_month, payer, active,
	last_fired_on, created_at, created_by, last_updated_at, last_updated_by`

type PgxScheduleRepository struct {
	BaseRepository
}

func newPgxScheduleRepository(pool *pgxpool.Pool) portsrepo.ScheduleRepositoryFacade {
	return &PgxScheduleRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.ScheduleRepositoryFacade = (*PgxScheduleRepository)(nil)

func scanSchedule(row pgx.Row) (models.RecurringExpense, error) {
	var m models.RecurringExpense
	err := row.Scan(
		&m.ScheduleID,
		&m.ChatID,
		&m.Description,
		&m.Category,
		&m.Amount,
		&m.DayOfMonth,
		&m.Payer,
		&m.Active,
		&m.LastFiredOn,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// SaveSchedule persists a new schedule.
func (r *PgxScheduleRepository) SaveSchedule(ctx context.Context, schedule domain.RecurringExpense) error {
	m := mapping.ToModelRecurringExpense(schedule)
	query := `
		INSERT INTO recurring_expenses (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.ScheduleID,
		m.ChatID,
		m.Description,
		m.Category,
		m.Amount,
		m.DayOfMonth,
		m.Payer,
		m.Active,
		m.LastFiredOn,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert recurring expense "+m.ScheduleID, err)
	}
	return nil
}

// FindScheduleByID retrieves a schedule by its identifier.
func (r *PgxScheduleRepository) FindScheduleByID(ctx context.Context, scheduleID string) (*domain.RecurringExpense, error) {
	query := `SELECT ` + scheduleColumns + ` FROM recurring_expenses WHERE schedule_id = $1;`
	m, err := scanSchedule(r.Pool.QueryRow(ctx, query, scheduleID))
	if err != nil {
		return nil, notFoundOr(err, "recurring expense "+scheduleID)
	}
	d := mapping.ToDomainRecurringExpense(m)
	return &d, nil
}

// ListActiveSchedules retrieves every active schedule ordered by day.
func (r *PgxScheduleRepository) ListActiveSchedules(ctx context.Context) ([]domain.RecurringExpense, error) {
	query := `SELECT ` + scheduleColumns + ` FROM recurring_expenses WHERE active = TRUE ORDER BY day_of_month, created_at;`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query recurring expenses", err)
	}
	defer rows.Close()

	var schedules []domain.RecurringExpense
	for rows.Next() {
		m, err := scanSchedule(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan recurring expense row", err)
		}
		schedules = append(schedules, mapping.ToDomainRecurringExpense(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating recurring expense rows", err)
	}
	return schedules, nil
}

// DeactivateSchedule marks a schedule inactive.
func (r *PgxScheduleRepository) DeactivateSchedule(ctx context.Context, scheduleID string, updatedBy string, now time.Time) error {
	query := `
		UPDATE recurring_expenses
		SET active = FALSE, last_updated_at = $2, last_updated_by = $3
		WHERE schedule_id = $1 AND active = TRUE;
	`
	tag, err := r.Pool.Exec(ctx, query, scheduleID, now, updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to deactivate recurring expense "+scheduleID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewAppError(404, "recurring expense "+scheduleID+" not found", nil)
	}
	return nil
}

// ClaimScheduleRun stamps last_fired_on unless the schedule already fired in firedOn's month.
// Of several concurrent claims only one sees a changed row.
func (r *PgxScheduleRepository) ClaimScheduleRun(ctx context.Context, scheduleID string, firedOn time.Time) (bool, error) {
	query := `
		UPDATE recurring_expenses
		SET last_fired_on = $2
		WHERE schedule_id = $1
		  AND active = TRUE
		  AND (last_fired_on IS NULL OR date_trunc('month', last_fired_on) <> date_trunc('month', $2::timestamptz));
	`
	tag, err := r.Pool.Exec(ctx, query, scheduleID, firedOn)
	if err != nil {
		return false, apperrors.NewAppError(500, "failed to claim recurring expense "+scheduleID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseScheduleRun restores the previous last-fired date after a failed run.
func (r *PgxScheduleRepository) ReleaseScheduleRun(ctx context.Context, scheduleID string, previous *time.Time) error {
	if _, err := r.Pool.Exec(ctx, `UPDATE recurring_expenses SET last_fired_on = $2 WHERE schedule_id = $1;`, scheduleID, previous); err != nil {
		return apperrors.NewAppError(500, "failed to release recurring expense "+scheduleID, err)
	}
	return nil
}
