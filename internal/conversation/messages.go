package conversation

import (
	"fmt"
	"strings"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/core/ports/gateways"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/utils"
)

const (
	msgNotParticipant   = "Sorry, this bot only works for the two people sharing this ledger."
	msgGenericFailure   = "Something went wrong. Please try again."
	msgUnknownCommand   = "I don't know that command. Send /help to see what I can do."
	msgIdleHint         = "Send me receipt photos, or use /add to record an expense. /help lists everything."
	msgCancelled        = "Cancelled."
	msgReceiptExpired   = "This receipt has expired. Please send the photos again."
	msgNoPhotos         = "❌ I couldn't download any of the photos. Please send them again."
	msgExtractionFailed = "❌ I couldn't read the receipt right now. Please try again later or use /add."
	msgNotAReceipt      = "🤔 That doesn't look like a receipt. Try a clearer photo, or use /add to enter it by hand."
	msgEntryInactive    = "This entry is no longer active."
	msgConfirmAmount    = "Reply *yes* to confirm the total, or send the correct amount."
	msgAskAmount        = "How much was it? (e.g. 12.50)"
	msgAskCategory      = "Which category? (e.g. Groceries, Food, Rent)"
	msgAskDescription   = "Add a short description, or send - to skip."
	msgAskRecurringName = "What is the recurring expense called? (e.g. Rent)"
	msgAskRecurringDay  = "On which day of the month should it be recorded? (1-31)"
	msgAskCorrection    = "What should I change? e.g. \"make the last one 60/40\" or \"delete the pizza\"."
	msgAskSearch        = "What should I search for?"
	msgAskCustomSplit   = "Send the split for %s as A/B, e.g. 60/40 (%s pays the first share)."
	msgSettlePrompt     = "%s\n\nMark everything as settled?"
	msgNothingToSettle  = "There is nothing to settle."
	msgRecurringFired   = "🔁 Recurring expense recorded:"
	msgBalanceReport    = "📅 Balance update"
)

func helpText(names map[domain.Role]string) string {
	return strings.Join([]string{
		"👋 I keep track of the expenses " + names[domain.RoleA] + " and " + names[domain.RoleB] + " share.",
		"",
		"📸 Send one or more receipt photos and I'll read them.",
		"/add amount category \"description\" payer - record an expense (or just /add for step by step)",
		"/balance - who owes whom",
		"/details - totals and average split",
		"/settle - mark everything as settled",
		"/history [n] - latest transactions",
		"/search term - find transactions",
		"/undo - remove your last expense",
		"/edit text - fix a recent expense in your own words",
		"/split [category] [A/B] - show or change split rules (/split reset to clear)",
		"/recurring [add|delete id] - monthly expenses",
		"/cancel - stop the current step",
	}, "\n")
}

func payerKeyboard(prefix, suffix string, participants []domain.Participant) gateways.Keyboard {
	row := make([]gateways.Button, 0, len(participants))
	for _, p := range participants {
		data := prefix + ":" + string(p.Role)
		if suffix != "" {
			data += ":" + suffix
		}
		row = append(row, gateways.Button{Label: p.Name(), Data: data})
	}
	return gateways.Keyboard{row}
}

func confirmKeyboard(yesData, noData string) gateways.Keyboard {
	return gateways.Keyboard{{
		{Label: "✅ Yes", Data: yesData},
		{Label: "✖️ Cancel", Data: noData},
	}}
}

func splitPresetKeyboard(category string) gateways.Keyboard {
	presets := []int{50, 60, 70, 40, 30}
	row := make([]gateways.Button, 0, len(presets))
	for _, a := range presets {
		row = append(row, gateways.Button{Label: fmt.Sprintf("%d/%d", a, 100-a), Data: fmt.Sprintf("sp:%d:%s", a, category)})
	}
	return gateways.Keyboard{row, {{Label: "✏️ Custom", Data: "sp:c:" + category}}}
}

func receiptPrompt(r domain.PendingReceipt, currency string) string {
	var b strings.Builder
	b.WriteString("🧾 ")
	b.WriteString(r.Description())
	b.WriteString("\n")
	if len(r.Items) > 1 {
		for _, it := range r.Items {
			fmt.Fprintf(&b, "• %s %s", utils.FormatMoney(it.Amount, currency), orDash(it.Category))
			if it.Merchant != "" {
				fmt.Fprintf(&b, " (%s)", it.Merchant)
			}
			b.WriteString("\n")
		}
	} else if c := r.PrimaryCategory(); c != "" {
		fmt.Fprintf(&b, "Category: %s\n", c)
	}
	fmt.Fprintf(&b, "Date: %s\n", r.OccurredOn.Format("2 Jan 2006"))
	fmt.Fprintf(&b, "Total: *%s*", utils.FormatMoney(r.Total, currency))
	if r.Currency != "" && !strings.EqualFold(r.Currency, currency) {
		fmt.Fprintf(&b, " (receipt says %s, recorded as %s)", strings.ToUpper(r.Currency), currency)
	}
	b.WriteString("\n\n")
	b.WriteString(msgConfirmAmount)
	return b.String()
}

func transactionLine(t domain.Transaction, names func(domain.Role) string) string {
	line := fmt.Sprintf("%s · %s · %s", utils.FormatMoney(t.Amount, t.CurrencyCode), orDash(t.Category), names(t.Payer))
	if t.Description != "" {
		line += " · " + t.Description
	}
	if t.Split != nil {
		line += " · " + t.Split.String()
	}
	return fmt.Sprintf("%s [%s] %s", t.OccurredOn.Format("02 Jan"), shortID(t.TransactionID), line)
}

func committedText(results []*portssvc.CommitResult, names func(domain.Role) string) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range results {
		b.WriteString("✅ ")
		b.WriteString(transactionLine(r.Transaction, names))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(results[len(results)-1].Message)
	return b.String()
}

func historyText(title string, txns []domain.Transaction, names func(domain.Role) string) string {
	if len(txns) == 0 {
		return title + "\nNothing found."
	}
	lines := make([]string, 0, len(txns)+1)
	lines = append(lines, title)
	for _, t := range txns {
		line := transactionLine(t, names)
		if t.Settled {
			line += " ✔︎"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func detailsText(d domain.DetailedBalance, summary string, names func(domain.Role) string, currency string) string {
	return strings.Join([]string{
		"📊 " + summary,
		"",
		fmt.Sprintf("%s paid %s, share %s", names(domain.RoleA), utils.FormatMoney(d.A.Paid, currency), utils.FormatMoney(d.A.Share, currency)),
		fmt.Sprintf("%s paid %s, share %s", names(domain.RoleB), utils.FormatMoney(d.B.Paid, currency), utils.FormatMoney(d.B.Share, currency)),
		fmt.Sprintf("Total spent: %s over %d transactions", utils.FormatMoney(d.TotalSpent, currency), d.TransactionCount),
		fmt.Sprintf("Average split: %s", d.AverageSplit.String()),
	}, "\n")
}

func rulesText(rules []domain.SplitRule) string {
	lines := []string{"⚖️ Split rules (A/B):"}
	for _, r := range rules {
		if r.IsDefault {
			lines = append(lines, fmt.Sprintf("Default: %s", r.Split.String()))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", r.Category, r.Split.String()))
	}
	lines = append(lines, "", "Change one with /split category 60/40.")
	return strings.Join(lines, "\n")
}

func schedulesText(schedules []domain.RecurringExpense, names func(domain.Role) string, currency string) string {
	if len(schedules) == 0 {
		return "🔁 No recurring expenses yet. Add one with /recurring add."
	}
	lines := []string{"🔁 Recurring expenses:"}
	for _, s := range schedules {
		lines = append(lines, scheduleLine(s, names, currency))
	}
	return strings.Join(lines, "\n")
}

func scheduleLine(s domain.RecurringExpense, names func(domain.Role) string, currency string) string {
	return fmt.Sprintf("[%s] %s: %s on day %d, paid by %s", shortID(s.ScheduleID), s.Description, utils.FormatMoney(s.Amount, currency), s.DayOfMonth, names(s.Payer))
}

func correctionText(outcomes []portssvc.CorrectionOutcome) string {
	lines := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		mark := "⚠️"
		if o.Applied {
			mark = "✅"
		}
		lines = append(lines, mark+" "+o.Message)
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
