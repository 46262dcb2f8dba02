package domain

import (
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/shopspring/decimal"
)

// RecurringExpense is a monthly expense committed automatically on its day.
type RecurringExpense struct {
	ScheduleID  string          `json:"scheduleID"`
	ChatID      int64           `json:"chatID"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	DayOfMonth  int             `json:"dayOfMonth"`
	Payer       Role            `json:"payer"`
	Active      bool            `json:"active"`
	LastFiredOn *time.Time      `json:"lastFiredOn,omitempty"`
	AuditFields
}

// Validate checks the schedule before it is stored.
func (r RecurringExpense) Validate() error {
	if r.Description == "" {
		return apperrors.Validationf("description is required")
	}
	if !r.Amount.IsPositive() {
		return apperrors.Validationf("amount must be greater than zero")
	}
	if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
		return apperrors.Validationf("day must be between 1 and 31")
	}
	if !r.Payer.Valid() {
		return apperrors.Validationf("unknown payer %q", string(r.Payer))
	}
	return nil
}

// DueOn reports whether the schedule should fire on day. Days past the end of a short month
// fire on its last day. A schedule fires at most once per calendar month.
func (r RecurringExpense) DueOn(day time.Time) bool {
	if !r.Active {
		return false
	}
	if r.LastFiredOn != nil && r.LastFiredOn.Year() == day.Year() && r.LastFiredOn.Month() == day.Month() {
		return false
	}
	target := r.DayOfMonth
	if last := daysIn(day.Year(), day.Month(), day.Location()); target > last {
		target = last
	}
	return day.Day() >= target
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
