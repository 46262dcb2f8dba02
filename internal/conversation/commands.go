package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/core/ports/gateways"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/middleware"
	"github.com/shopspring/decimal"
)

const (
	defaultHistorySize = 10
	maxHistorySize     = 50
)

// splitCommand separates "/cmd@bot rest" into "cmd" and "rest".
func splitCommand(text string) (string, string) {
	name, rest, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name), strings.TrimSpace(rest)
}

func (m *Machine) handleCommand(ctx context.Context, sess *Session, ev Event, sender domain.Role, text string) {
	name, rest := splitCommand(text)
	middleware.GetLoggerFromCtx(ctx).Info("Command received", slog.String("command", name), slog.Bool("has_args", rest != ""))

	if name == "cancel" {
		m.cancel(ctx, sess, ev.ChatID)
		return
	}
	// Every command starts a new top-level flow, including one whose arguments are rejected.
	sess.Reset()

	// Free-text commands take rest verbatim.
	switch name {
	case "start", "help":
		m.send(ctx, ev.ChatID, helpText(m.names()), nil)
		return
	case "balance":
		m.cmdBalance(ctx, ev)
		return
	case "details":
		m.cmdDetails(ctx, ev)
		return
	case "settle":
		m.cmdSettle(ctx, ev)
		return
	case "undo":
		m.cmdUndo(ctx, ev, sender)
		return
	case "edit":
		if rest == "" {
			sess.Enter(EditLast{})
			m.send(ctx, ev.ChatID, msgAskCorrection, nil)
			return
		}
		m.correct(ctx, ev, rest, sender)
		return
	case "search":
		if rest == "" {
			sess.Enter(Search{})
			m.send(ctx, ev.ChatID, msgAskSearch, nil)
			return
		}
		m.search(ctx, ev, rest)
		return
	}

	args, err := Tokenize(rest)
	if err != nil {
		m.fail(ctx, ev, err, name)
		return
	}
	switch name {
	case "add":
		m.cmdAdd(ctx, sess, ev, sender, args)
	case "history":
		m.cmdHistory(ctx, ev, args)
	case "split":
		m.cmdSplit(ctx, ev, sender, args)
	case "recurring":
		m.cmdRecurring(ctx, sess, ev, sender, args)
	default:
		m.send(ctx, ev.ChatID, msgUnknownCommand, nil)
	}
}

// cmdAdd records "/add amount [category] [description] [payer]" in one go. Missing fields are
// asked for step by step; a missing payer defaults to the sender.
func (m *Machine) cmdAdd(ctx context.Context, sess *Session, ev Event, sender domain.Role, args Args) {
	if args.Len() == 0 {
		sess.Enter(ManualEntry{Step: ManualAmount})
		m.send(ctx, ev.ChatID, msgAskAmount, nil)
		return
	}

	amount, err := args.Amount(0)
	if err != nil {
		m.fail(ctx, ev, err, "add")
		return
	}
	if args.Len() == 1 {
		sess.Enter(ManualEntry{Step: ManualCategory, Amount: amount})
		m.send(ctx, ev.ChatID, msgAskCategory, nil)
		return
	}

	payer := sender
	last := args.Len()
	if role, ok := m.parsePayer(args.At(last - 1)); ok && last > 2 {
		payer = role
		last--
	}
	description := ""
	if last > 2 {
		description = strings.Join(args[2:last], " ")
	}
	m.commitManual(ctx, ev, ManualEntry{Amount: amount, Category: args.At(1), Description: description}, payer, sender)
}

func (m *Machine) commitManual(ctx context.Context, ev Event, entry ManualEntry, payer, sender domain.Role) {
	result, err := m.services.Ledger.CommitExpense(ctx, portssvc.ExpenseInput{
		Payer:       payer,
		Amount:      entry.Amount,
		Category:    entry.Category,
		Description: entry.Description,
		Actor:       ActorFor(sender),
	})
	if err != nil {
		m.fail(ctx, ev, err, "commit")
		return
	}
	m.respond(ctx, ev, committedText([]*portssvc.CommitResult{result}, m.name), nil)
}

func (m *Machine) cmdBalance(ctx context.Context, ev Event) {
	bal, err := m.services.Ledger.OutstandingBalance(ctx)
	if err != nil {
		m.fail(ctx, ev, err, "balance")
		return
	}
	m.send(ctx, ev.ChatID, "💰 "+m.services.Ledger.SettlementMessage(*bal), nil)
}

func (m *Machine) cmdDetails(ctx context.Context, ev Event) {
	detailed, err := m.services.Ledger.DetailedBalance(ctx)
	if err != nil {
		m.fail(ctx, ev, err, "details")
		return
	}
	summary := m.services.Ledger.SettlementMessage(detailed.Balance)
	m.send(ctx, ev.ChatID, detailsText(*detailed, summary, m.name, m.currency), nil)
}

func (m *Machine) cmdSettle(ctx context.Context, ev Event) {
	bal, err := m.services.Ledger.OutstandingBalance(ctx)
	if err != nil {
		m.fail(ctx, ev, err, "settle")
		return
	}
	if bal.TransactionCount == 0 {
		m.send(ctx, ev.ChatID, msgNothingToSettle, nil)
		return
	}
	text := fmt.Sprintf(msgSettlePrompt, m.services.Ledger.SettlementMessage(*bal))
	m.send(ctx, ev.ChatID, text, confirmKeyboard("st:yes", "st:no"))
}

func (m *Machine) settle(ctx context.Context, ev Event, sender domain.Role) {
	count, err := m.services.Ledger.SettleAll(ctx, ActorFor(sender))
	if err != nil {
		m.fail(ctx, ev, err, "settle")
		return
	}
	m.respond(ctx, ev, fmt.Sprintf("🤝 Settled %d transaction(s). All settled up!", count), nil)
}

func (m *Machine) cmdHistory(ctx context.Context, ev Event, args Args) {
	limit := defaultHistorySize
	if n, err := strconv.Atoi(args.At(0)); err == nil && n > 0 {
		limit = min(n, maxHistorySize)
	}
	txns, _, err := m.services.Ledger.ListTransactions(ctx, domain.TransactionFilter{Limit: limit}, nil)
	if err != nil {
		m.fail(ctx, ev, err, "history")
		return
	}
	m.send(ctx, ev.ChatID, historyText("📜 Latest transactions:", txns, m.name), nil)
}

func (m *Machine) search(ctx context.Context, ev Event, term string) {
	term = strings.TrimSpace(term)
	txns, _, err := m.services.Ledger.ListTransactions(ctx, domain.TransactionFilter{Search: term, Limit: defaultHistorySize}, nil)
	if err != nil {
		m.fail(ctx, ev, err, "search")
		return
	}
	m.send(ctx, ev.ChatID, historyText(fmt.Sprintf("🔎 Results for %q:", term), txns, m.name), nil)
}

func (m *Machine) cmdUndo(ctx context.Context, ev Event, sender domain.Role) {
	txn, err := m.services.Ledger.UndoLast(ctx, ActorFor(sender))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			m.send(ctx, ev.ChatID, "Nothing to undo: you have no unsettled expenses.", nil)
			return
		}
		m.fail(ctx, ev, err, "undo")
		return
	}
	text := "↩️ Removed " + transactionLine(*txn, m.name)
	if bal, err := m.services.Ledger.OutstandingBalance(ctx); err == nil {
		text += "\n\n" + m.services.Ledger.SettlementMessage(*bal)
	}
	m.send(ctx, ev.ChatID, text, nil)
}

func (m *Machine) correct(ctx context.Context, ev Event, text string, sender domain.Role) {
	outcomes, err := m.services.Corrections.Correct(ctx, text, ActorFor(sender))
	if err != nil {
		m.fail(ctx, ev, err, "edit")
		return
	}
	reply := correctionText(outcomes)
	for _, o := range outcomes {
		if o.Applied {
			if bal, err := m.services.Ledger.OutstandingBalance(ctx); err == nil {
				reply += "\n\n" + m.services.Ledger.SettlementMessage(*bal)
			}
			break
		}
	}
	m.send(ctx, ev.ChatID, reply, nil)
}

// cmdSplit handles "/split", "/split reset", "/split remove category", "/split category" and
// "/split category 60/40".
func (m *Machine) cmdSplit(ctx context.Context, ev Event, sender domain.Role, args Args) {
	switch {
	case args.Len() == 0:
		m.send(ctx, ev.ChatID, rulesText(m.services.SplitRules.ListRules(ctx)), nil)
	case strings.EqualFold(args.At(0), "reset") && args.Len() == 1:
		if err := m.services.SplitRules.ResetAll(ctx); err != nil {
			m.fail(ctx, ev, err, "split reset")
			return
		}
		m.send(ctx, ev.ChatID, "⚖️ All split rules cleared. Every category uses the default "+m.services.SplitRules.Default().String()+".", nil)
	case strings.EqualFold(args.At(0), "remove") && args.Len() > 1:
		category := m.services.SplitRules.NormalizeCategory(args.Rest(1))
		if err := m.services.SplitRules.Remove(ctx, category, ActorFor(sender)); err != nil {
			m.fail(ctx, ev, err, "split remove")
			return
		}
		m.send(ctx, ev.ChatID, fmt.Sprintf("⚖️ %s now uses the default split.", category), nil)
	case args.Len() == 1:
		category := m.services.SplitRules.NormalizeCategory(args.At(0))
		current := m.services.SplitRules.Resolve(ctx, category)
		m.send(ctx, ev.ChatID, fmt.Sprintf("⚖️ %s is split %s (A/B). Pick a new split:", category, current.String()), splitPresetKeyboard(category))
	default:
		split, err := ParseSplit(args.Rest(1))
		if err != nil {
			m.fail(ctx, ev, err, "split")
			return
		}
		m.updateSplit(ctx, ev, args.At(0), split, sender)
	}
}

func (m *Machine) updateSplit(ctx context.Context, ev Event, category string, split domain.Split, sender domain.Role) bool {
	category = m.services.SplitRules.NormalizeCategory(category)
	if err := m.services.SplitRules.Update(ctx, category, split, ActorFor(sender)); err != nil {
		m.fail(ctx, ev, err, "split update")
		return false
	}
	m.respond(ctx, ev, fmt.Sprintf("⚖️ %s is now split %s (%s/%s).", category, split.String(), m.name(domain.RoleA), m.name(domain.RoleB)), nil)
	return true
}

// cmdRecurring handles "/recurring", "/recurring add [description amount day [payer]]" and
// "/recurring delete id".
func (m *Machine) cmdRecurring(ctx context.Context, sess *Session, ev Event, sender domain.Role, args Args) {
	switch strings.ToLower(args.At(0)) {
	case "":
		schedules, err := m.services.Recurring.ListSchedules(ctx)
		if err != nil {
			m.fail(ctx, ev, err, "recurring list")
			return
		}
		var kb gateways.Keyboard
		for _, s := range schedules {
			kb = append(kb, []gateways.Button{{Label: "🗑 " + s.Description, Data: "rd:" + s.ScheduleID}})
		}
		m.send(ctx, ev.ChatID, schedulesText(schedules, m.name, m.currency), kb)
	case "add":
		if args.Len() == 1 {
			sess.Enter(RecurringEntry{Step: RecurringDescription})
			m.send(ctx, ev.ChatID, msgAskRecurringName, nil)
			return
		}
		amount, err := args.Amount(2)
		if err != nil {
			m.fail(ctx, ev, err, "recurring add")
			return
		}
		day, err := args.Day(3)
		if err != nil {
			m.fail(ctx, ev, err, "recurring add")
			return
		}
		payer := sender
		if args.Len() > 4 {
			role, ok := m.parsePayer(args.At(4))
			if !ok {
				m.fail(ctx, ev, apperrors.Validationf("unknown payer %q", args.At(4)), "recurring add")
				return
			}
			payer = role
		}
		m.createSchedule(ctx, ev, RecurringEntry{Description: args.At(1), Amount: amount, Day: day}, payer, sender)
	case "delete", "remove":
		m.deleteSchedule(ctx, ev, args.At(1), sender)
	default:
		m.send(ctx, ev.ChatID, "Use /recurring, /recurring add or /recurring delete id.", nil)
	}
}

func (m *Machine) createSchedule(ctx context.Context, ev Event, entry RecurringEntry, payer, sender domain.Role) {
	schedule, err := m.services.Recurring.CreateSchedule(ctx, domain.RecurringExpense{
		ChatID:      ev.ChatID,
		Description: entry.Description,
		Category:    entry.Description,
		Amount:      entry.Amount,
		DayOfMonth:  entry.Day,
		Payer:       payer,
	}, ActorFor(sender))
	if err != nil {
		m.fail(ctx, ev, err, "recurring create")
		return
	}
	m.respond(ctx, ev, "🔁 Scheduled "+scheduleLine(*schedule, m.name, m.currency), nil)
}

func (m *Machine) deleteSchedule(ctx context.Context, ev Event, ref string, sender domain.Role) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		m.send(ctx, ev.ChatID, "Which one? Use /recurring to see the ids.", nil)
		return
	}
	schedules, err := m.services.Recurring.ListSchedules(ctx)
	if err != nil {
		m.fail(ctx, ev, err, "recurring delete")
		return
	}
	for _, s := range schedules {
		if s.ScheduleID == ref || strings.HasPrefix(s.ScheduleID, ref) {
			if err := m.services.Recurring.DeleteSchedule(ctx, s.ScheduleID, ActorFor(sender)); err != nil {
				m.fail(ctx, ev, err, "recurring delete")
				return
			}
			m.respond(ctx, ev, "🗑 Stopped "+s.Description+".", nil)
			return
		}
	}
	m.fail(ctx, ev, apperrors.NotFoundf("no recurring expense %s", ref), "recurring delete")
}

// presetSplit reads the A percentage of a preset button.
func presetSplit(pct string) (domain.Split, error) {
	n, err := strconv.Atoi(pct)
	if err != nil || n < 0 || n > 100 {
		return domain.Split{}, apperrors.Validationf("invalid split %q", pct)
	}
	return domain.SplitFromA(decimal.New(int64(n), -2)), nil
}
