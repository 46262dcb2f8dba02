package conversation

import (
	"context"
	"log/slog"

	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/middleware"
)

// AnnounceRecurring posts the expenses committed by recurring schedules to the chat each
// schedule was created in. Schedules without a chat go to fallbackChat; with no fallback
// they are only logged.
func (m *Machine) AnnounceRecurring(ctx context.Context, fired []portssvc.FiredSchedule, fallbackChat int64) {
	byChat := make(map[int64][]*portssvc.CommitResult)
	var order []int64
	for _, f := range fired {
		if f.Result == nil {
			continue
		}
		chatID := f.Schedule.ChatID
		if chatID == 0 {
			chatID = fallbackChat
		}
		if chatID == 0 {
			middleware.GetLoggerFromCtx(ctx).Info("Recurring expense committed without a chat to notify",
				slog.String("schedule_id", f.Schedule.ScheduleID))
			continue
		}
		if _, seen := byChat[chatID]; !seen {
			order = append(order, chatID)
		}
		byChat[chatID] = append(byChat[chatID], f.Result)
	}
	for _, chatID := range order {
		m.send(ctx, chatID, msgRecurringFired+"\n"+committedText(byChat[chatID], m.name), nil)
	}
}

// ReportBalance posts the outstanding balance to chatID. Nothing is sent when everything is settled.
func (m *Machine) ReportBalance(ctx context.Context, chatID int64) error {
	bal, err := m.services.Ledger.OutstandingBalance(ctx)
	if err != nil {
		return err
	}
	if bal.TransactionCount == 0 {
		return nil
	}
	m.send(ctx, chatID, msgBalanceReport+"\n"+m.services.Ledger.SettlementMessage(*bal), nil)
	return nil
}
