package services

import (
	"context"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/core/ports/gateways"
	portsrepo "github.com/SscSPs/shared_expense_bot/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/platform/config"
	"github.com/SscSPs/shared_expense_bot/pkg/clock"
	"github.com/shopspring/decimal"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(ctx context.Context, cfg *config.Config, repos portsrepo.RepositoryProvider, extractor gateways.ReceiptExtractor, clk clock.Clock) (*portssvc.ServiceContainer, error) {
	container := &portssvc.ServiceContainer{}

	// Participants are resolved once; every other service depends on them
	participants, err := NewParticipantDirectory(ctx, repos.ParticipantRepo, []domain.Participant{
		{Role: domain.RoleA, TelegramUserID: cfg.ParticipantATelegramID, DisplayName: cfg.ParticipantAName},
		{Role: domain.RoleB, TelegramUserID: cfg.ParticipantBTelegramID, DisplayName: cfg.ParticipantBName},
	})
	if err != nil {
		return nil, err
	}
	container.Participants = participants

	defaultSplit := domain.SplitFromA(decimal.NewFromFloat(cfg.DefaultSplitA))
	container.SplitRules = NewSplitRuleService(
		repos.SettingsRepo,
		defaultSplit,
		WithSplitCacheTTL(cfg.SplitCacheTTL),
		WithSplitRuleClock(clk),
	)

	container.Ledger = NewLedgerService(
		repos.TransactionRepo,
		container.SplitRules,
		container.Participants,
		WithLedgerCurrency(cfg.Currency),
		WithLedgerClock(clk),
	)

	container.Recurring = NewRecurringService(repos.ScheduleRepo, container.Ledger, WithRecurringClock(clk))
	container.Corrections = NewCorrectionService(extractor, container.Ledger)

	return container, nil
}
