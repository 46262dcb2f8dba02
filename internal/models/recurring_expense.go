package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurringExpense is a row of the recurring_expenses table.
type RecurringExpense struct {
	ScheduleID  string          `db:"schedule_id"`
	ChatID      int64           `db:"chat_id"`
	Description string          `db:"description"`
	Category    string          `db:"category"`
	Amount      decimal.Decimal `db:"amount"`
	DayOfMonth  int             `db:"day_of_month"`
	Payer       string          `db:"payer"`
	Active      bool            `db:"active"`
	LastFiredOn *time.Time      `db:"last_fired_on"`
	AuditFields
}
