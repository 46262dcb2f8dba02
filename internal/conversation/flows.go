package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/middleware"
	"github.com/shopspring/decimal"
)

// manualStep advances a step-by-step /add. Invalid input repeats the same question.
func (m *Machine) manualStep(ctx context.Context, sess *Session, ev Event, entry ManualEntry, text string, sender domain.Role) {
	switch entry.Step {
	case ManualAmount:
		amount, err := ParseAmount(text)
		if err != nil {
			m.retry(ctx, ev, err, msgAskAmount)
			return
		}
		sess.Enter(ManualEntry{Step: ManualCategory, Amount: amount})
		m.send(ctx, ev.ChatID, msgAskCategory, nil)
	case ManualCategory:
		category := m.services.SplitRules.NormalizeCategory(text)
		if category == "" {
			m.send(ctx, ev.ChatID, msgAskCategory, nil)
			return
		}
		sess.Enter(ManualEntry{Step: ManualDescription, Amount: entry.Amount, Category: category})
		m.send(ctx, ev.ChatID, msgAskDescription, nil)
	case ManualDescription:
		description := strings.TrimSpace(text)
		if description == "-" {
			description = ""
		}
		sess.Enter(ManualEntry{Step: ManualPayer, Amount: entry.Amount, Category: entry.Category, Description: description})
		m.send(ctx, ev.ChatID, "💳 Who paid?", payerKeyboard("mp", "", m.services.Participants.All()))
	case ManualPayer:
		payer, ok := m.parsePayer(text)
		if !ok {
			m.send(ctx, ev.ChatID, "Please pick who paid.", payerKeyboard("mp", "", m.services.Participants.All()))
			return
		}
		sess.Reset()
		m.commitManual(ctx, ev, entry, payer, sender)
	}
}

// recurringStep advances a step-by-step /recurring add.
func (m *Machine) recurringStep(ctx context.Context, sess *Session, ev Event, entry RecurringEntry, text string, sender domain.Role) {
	switch entry.Step {
	case RecurringDescription:
		description := strings.TrimSpace(text)
		sess.Enter(RecurringEntry{Step: RecurringAmount, Description: description})
		m.send(ctx, ev.ChatID, fmt.Sprintf("How much is %s each month?", description), nil)
	case RecurringAmount:
		amount, err := ParseAmount(text)
		if err != nil {
			m.retry(ctx, ev, err, msgAskAmount)
			return
		}
		sess.Enter(RecurringEntry{Step: RecurringDay, Description: entry.Description, Amount: amount})
		m.send(ctx, ev.ChatID, msgAskRecurringDay, nil)
	case RecurringDay:
		day, err := ParseDay(text)
		if err != nil {
			m.retry(ctx, ev, err, msgAskRecurringDay)
			return
		}
		sess.Enter(RecurringEntry{Step: RecurringPayer, Description: entry.Description, Amount: entry.Amount, Day: day})
		m.send(ctx, ev.ChatID, "💳 Who pays it?", payerKeyboard("rr", "", m.services.Participants.All()))
	case RecurringPayer:
		payer, ok := m.parsePayer(text)
		if !ok {
			m.send(ctx, ev.ChatID, "Please pick who pays it.", payerKeyboard("rr", "", m.services.Participants.All()))
			return
		}
		sess.Reset()
		m.createSchedule(ctx, ev, entry, payer, sender)
	}
}

// customSplit reads a typed split for the category chosen from the preset keyboard.
func (m *Machine) customSplit(ctx context.Context, sess *Session, ev Event, mode SplitCustomInput, text string, sender domain.Role) {
	split, err := ParseSplit(text)
	if err != nil {
		m.retry(ctx, ev, err, fmt.Sprintf(msgAskCustomSplit, mode.Category, m.name(domain.RoleA)))
		return
	}
	if m.updateSplit(ctx, ev, mode.Category, split, sender) {
		sess.Reset()
	}
}

// retry explains what was wrong and repeats the question. The session stays on the same step.
func (m *Machine) retry(ctx context.Context, ev Event, err error, question string) {
	m.send(ctx, ev.ChatID, "❌ "+apperrors.UserMessage(err, msgGenericFailure)+"\n"+question, nil)
}

// handleCallback dispatches inline button presses. Data is "<kind>:<args...>".
func (m *Machine) handleCallback(ctx context.Context, sess *Session, ev Event, sender domain.Role) {
	m.answer(ctx, ev.CallbackID, "")
	parts := strings.SplitN(ev.CallbackData, ":", 3)
	arg := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	middleware.GetLoggerFromCtx(ctx).Debug("Callback received", slog.String("kind", arg(0)))

	switch arg(0) {
	case "rc":
		receiptID := arg(2)
		if arg(1) != "yes" {
			m.pending.Consume(ctx, receiptID)
			sess.Reset()
			m.respond(ctx, ev, "🗑 Receipt discarded.", nil)
			return
		}
		if _, ok := m.pending.Get(receiptID); !ok {
			sess.Reset()
			m.respond(ctx, ev, msgReceiptExpired, nil)
			return
		}
		m.askReceiptPayer(ctx, sess, ev, receiptID, nil)
	case "rp":
		payer, ok := domain.ParseRole(arg(1))
		if !ok {
			return
		}
		var override *decimal.Decimal
		if mode, ok := sess.Mode().(AwaitingPayer); ok && mode.ReceiptID == arg(2) {
			override = mode.Override
		}
		m.commitReceipt(ctx, sess, ev, arg(2), override, payer, sender)
	case "mp":
		entry, ok := sess.Mode().(ManualEntry)
		payer, valid := domain.ParseRole(arg(1))
		if !ok || entry.Step != ManualPayer || !valid {
			m.respond(ctx, ev, msgEntryInactive, nil)
			return
		}
		sess.Reset()
		m.commitManual(ctx, ev, entry, payer, sender)
	case "rr":
		entry, ok := sess.Mode().(RecurringEntry)
		payer, valid := domain.ParseRole(arg(1))
		if !ok || entry.Step != RecurringPayer || !valid {
			m.respond(ctx, ev, msgEntryInactive, nil)
			return
		}
		sess.Reset()
		m.createSchedule(ctx, ev, entry, payer, sender)
	case "rd":
		sess.Reset()
		m.deleteSchedule(ctx, ev, strings.TrimPrefix(ev.CallbackData, "rd:"), sender)
	case "st":
		sess.Reset()
		if arg(1) != "yes" {
			m.respond(ctx, ev, "Settlement cancelled.", nil)
			return
		}
		m.settle(ctx, ev, sender)
	case "sp":
		sess.Reset()
		category := arg(2)
		if arg(1) == "c" {
			sess.Enter(SplitCustomInput{Category: category})
			m.respond(ctx, ev, fmt.Sprintf(msgAskCustomSplit, category, m.name(domain.RoleA)), nil)
			return
		}
		split, err := presetSplit(arg(1))
		if err != nil {
			m.fail(ctx, ev, err, "split preset")
			return
		}
		m.updateSplit(ctx, ev, category, split, sender)
	default:
		middleware.GetLoggerFromCtx(ctx).Warn("Unknown callback", slog.String("data", ev.CallbackData))
	}
}
