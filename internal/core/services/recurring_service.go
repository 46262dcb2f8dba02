package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	portsrepo "github.com/SscSPs/shared_expense_bot/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/pkg/clock"
	"github.com/google/uuid"
)

// recurringService implements portssvc.RecurringSvc
type recurringService struct {
	BaseService
	scheduleRepo portsrepo.ScheduleRepositoryFacade
	ledger       portssvc.LedgerWriterSvc
}

// RecurringOption configures the recurring service
type RecurringOption func(*recurringService)

// WithRecurringClock injects the clock used when creating schedules.
func WithRecurringClock(c clock.Clock) RecurringOption {
	return func(s *recurringService) {
		s.Clock = c
	}
}

// NewRecurringService creates the recurring expense service. Firing goes through ledger.CommitExpense.
func NewRecurringService(scheduleRepo portsrepo.ScheduleRepositoryFacade, ledger portssvc.LedgerWriterSvc, options ...RecurringOption) portssvc.RecurringSvc {
	svc := &recurringService{
		scheduleRepo: scheduleRepo,
		ledger:       ledger,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.RecurringSvc = (*recurringService)(nil)

// CreateSchedule stores the schedule. When this month's day has already passed, the schedule
// starts with next month so creating it never charges immediately.
func (s *recurringService) CreateSchedule(ctx context.Context, schedule domain.RecurringExpense, actor string) (*domain.RecurringExpense, error) {
	schedule.Description = strings.TrimSpace(schedule.Description)
	schedule.Amount = schedule.Amount.Round(2)
	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	now := s.Now()
	schedule.ScheduleID = uuid.NewString()
	schedule.Active = true
	schedule.LastFiredOn = nil
	if schedule.DueOn(now) {
		schedule.LastFiredOn = &now
	}
	schedule.AuditFields = domain.AuditFields{CreatedAt: now, CreatedBy: actor, LastUpdatedAt: now, LastUpdatedBy: actor}

	if err := s.scheduleRepo.SaveSchedule(ctx, schedule); err != nil {
		s.LogError(ctx, err, "Failed to save recurring schedule", slog.String("schedule_id", schedule.ScheduleID))
		return nil, err
	}
	s.LogInfo(ctx, "Recurring schedule created",
		slog.String("schedule_id", schedule.ScheduleID),
		slog.Int("day_of_month", schedule.DayOfMonth))
	return &schedule, nil
}

func (s *recurringService) ListSchedules(ctx context.Context) ([]domain.RecurringExpense, error) {
	schedules, err := s.scheduleRepo.ListActiveSchedules(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list recurring schedules")
		return nil, err
	}
	return schedules, nil
}

func (s *recurringService) DeleteSchedule(ctx context.Context, scheduleID string, actor string) error {
	if _, err := s.scheduleRepo.FindScheduleByID(ctx, scheduleID); err != nil {
		return err
	}
	if err := s.scheduleRepo.DeactivateSchedule(ctx, scheduleID, actor, s.Now()); err != nil {
		s.LogError(ctx, err, "Failed to deactivate schedule", slog.String("schedule_id", scheduleID))
		return err
	}
	s.LogInfo(ctx, "Recurring schedule deleted", slog.String("schedule_id", scheduleID))
	return nil
}

// FireDue commits every due schedule. A schedule is claimed before committing so it fires at
// most once per month; a failed commit releases the claim for the next tick.
func (s *recurringService) FireDue(ctx context.Context, now time.Time) ([]portssvc.FiredSchedule, error) {
	schedules, err := s.scheduleRepo.ListActiveSchedules(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list recurring schedules")
		return nil, err
	}

	var fired []portssvc.FiredSchedule
	var errs []error
	for _, schedule := range schedules {
		if !schedule.DueOn(now) {
			continue
		}
		claimed, err := s.scheduleRepo.ClaimScheduleRun(ctx, schedule.ScheduleID, now)
		if err != nil {
			s.LogError(ctx, err, "Failed to claim schedule run", slog.String("schedule_id", schedule.ScheduleID))
			errs = append(errs, err)
			continue
		}
		if !claimed {
			continue
		}

		occurredOn := now
		result, err := s.ledger.CommitExpense(ctx, portssvc.ExpenseInput{
			Payer:       schedule.Payer,
			Amount:      schedule.Amount,
			Category:    schedule.Category,
			Description: schedule.Description,
			OccurredOn:  &occurredOn,
			Actor:       domain.SystemActor,
		})
		if err != nil {
			s.LogError(ctx, err, "Failed to commit recurring expense", slog.String("schedule_id", schedule.ScheduleID))
			if relErr := s.scheduleRepo.ReleaseScheduleRun(ctx, schedule.ScheduleID, schedule.LastFiredOn); relErr != nil {
				s.LogError(ctx, relErr, "Failed to release schedule run", slog.String("schedule_id", schedule.ScheduleID))
			}
			errs = append(errs, err)
			continue
		}

		schedule.LastFiredOn = &occurredOn
		fired = append(fired, portssvc.FiredSchedule{Schedule: schedule, Result: result})
		s.LogInfo(ctx, "Recurring expense fired",
			slog.String("schedule_id", schedule.ScheduleID),
			slog.String("transaction_id", result.Transaction.TransactionID))
	}
	return fired, errors.Join(errs...)
}
