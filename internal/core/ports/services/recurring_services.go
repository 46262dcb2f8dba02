package services

import (
	"context"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
)

// RecurringSvc manages monthly recurring expenses.
type RecurringSvc interface {
	// CreateSchedule validates and stores a new schedule.
	CreateSchedule(ctx context.Context, schedule domain.RecurringExpense, actor string) (*domain.RecurringExpense, error)

	// ListSchedules returns the active schedules.
	ListSchedules(ctx context.Context) ([]domain.RecurringExpense, error)

	// DeleteSchedule deactivates a schedule.
	DeleteSchedule(ctx context.Context, scheduleID string, actor string) error

	// FireDue commits an expense for every schedule due on now and returns the results.
	FireDue(ctx context.Context, now time.Time) ([]FiredSchedule, error)
}

// FiredSchedule pairs a schedule with the expense it produced.
type FiredSchedule struct {
	Schedule domain.RecurringExpense
	Result   *CommitResult
}
