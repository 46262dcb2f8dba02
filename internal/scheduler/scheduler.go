// Package scheduler runs the periodic jobs of the bot: firing recurring expenses and
// posting balance reports.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/middleware"
	"github.com/SscSPs/shared_expense_bot/pkg/clock"
)

// Notifier posts job results to the chat.
type Notifier interface {
	AnnounceRecurring(ctx context.Context, fired []portssvc.FiredSchedule, fallbackChat int64)
	ReportBalance(ctx context.Context, chatID int64) error
}

// Config sets the job intervals. A zero interval disables the job.
type Config struct {
	RecurringCheckInterval time.Duration
	BalanceReportInterval  time.Duration
	ReportChatID           int64
}

// Scheduler owns the job tickers.
type Scheduler struct {
	recurring portssvc.RecurringSvc
	notifier  Notifier
	clock     clock.Clock
	cfg       Config
}

// New creates a scheduler.
func New(recurring portssvc.RecurringSvc, notifier Notifier, clk clock.Clock, cfg Config) *Scheduler {
	if clk == nil {
		clk = clock.NewReal()
	}
	return &Scheduler{recurring: recurring, notifier: notifier, clock: clk, cfg: cfg}
}

// Run starts the enabled jobs and blocks until ctx is cancelled and they have returned.
// Recurring expenses are checked once immediately so a restart on the due day does not miss them.
func (s *Scheduler) Run(ctx context.Context) {
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("component", "scheduler"))
	ctx = middleware.WithLogger(ctx, logger)

	var wg sync.WaitGroup
	if s.cfg.RecurringCheckInterval > 0 {
		s.FireRecurring(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			every(ctx, s.cfg.RecurringCheckInterval, s.FireRecurring)
		}()
	}
	if s.cfg.BalanceReportInterval > 0 && s.cfg.ReportChatID != 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			every(ctx, s.cfg.BalanceReportInterval, s.ReportBalance)
		}()
	} else if s.cfg.BalanceReportInterval > 0 {
		logger.Warn("Balance reports are enabled but REPORT_CHAT_ID is not set")
	}

	logger.Info("Scheduler started",
		slog.Duration("recurring_interval", s.cfg.RecurringCheckInterval),
		slog.Duration("report_interval", s.cfg.BalanceReportInterval))
	wg.Wait()
	logger.Info("Scheduler stopped")
}

func every(ctx context.Context, interval time.Duration, job func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}

// FireRecurring commits every due recurring expense and announces the results.
func (s *Scheduler) FireRecurring(ctx context.Context) {
	logger := middleware.GetLoggerFromCtx(ctx)
	fired, err := s.recurring.FireDue(ctx, s.clock.Now())
	if err != nil {
		// FireDue still returns what it committed before the failure.
		logger.Error("Recurring expense run failed", slog.String("error", err.Error()))
	}
	if len(fired) == 0 {
		return
	}
	logger.Info("Recurring expenses committed", slog.Int("count", len(fired)))
	s.notifier.AnnounceRecurring(ctx, fired, s.cfg.ReportChatID)
}

// ReportBalance posts the outstanding balance to the report chat.
func (s *Scheduler) ReportBalance(ctx context.Context) {
	if err := s.notifier.ReportBalance(ctx, s.cfg.ReportChatID); err != nil {
		middleware.GetLoggerFromCtx(ctx).Error("Balance report failed", slog.String("error", err.Error()))
	}
}
