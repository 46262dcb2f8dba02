package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
)

// ScheduleReader defines read operations for recurring expense schedules
type ScheduleReader interface {
	// FindScheduleByID retrieves a schedule by its identifier.
	FindScheduleByID(ctx context.Context, scheduleID string) (*domain.RecurringExpense, error)

	// ListActiveSchedules retrieves every active schedule.
	ListActiveSchedules(ctx context.Context) ([]domain.RecurringExpense, error)
}

// ScheduleWriter defines write operations for recurring expense schedules
type ScheduleWriter interface {
	// SaveSchedule persists a new schedule.
	SaveSchedule(ctx context.Context, schedule domain.RecurringExpense) error

	// DeactivateSchedule marks a schedule inactive.
	DeactivateSchedule(ctx context.Context, scheduleID string, updatedBy string, now time.Time) error

	// ClaimScheduleRun records that the schedule fired on firedOn. It returns false when the
	// schedule already fired in the same calendar month, so concurrent ticks fire at most once.
	ClaimScheduleRun(ctx context.Context, scheduleID string, firedOn time.Time) (bool, error)

	// ReleaseScheduleRun restores the previous last-fired date after a failed run.
	ReleaseScheduleRun(ctx context.Context, scheduleID string, previous *time.Time) error
}

// ScheduleRepositoryFacade combines all schedule-related repository interfaces
type ScheduleRepositoryFacade interface {
	ScheduleReader
	ScheduleWriter
}
