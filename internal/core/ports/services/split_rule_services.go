package services

import (
	"context"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
)

// SplitRuleSvc maps free-text categories to cost splits.
type SplitRuleSvc interface {
	// NormalizeCategory applies case folding and the synonym table.
	NormalizeCategory(category string) string

	// Resolve returns the split for category. It never fails; storage problems fall back to the default.
	Resolve(ctx context.Context, category string) domain.Split

	// Default returns the global default split.
	Default() domain.Split

	// ListRules returns the stored overrides, sorted by category.
	ListRules(ctx context.Context) []domain.SplitRule

	// Update validates and stores an override for category.
	Update(ctx context.Context, category string, split domain.Split, actor string) error

	// Remove deletes the override for category.
	Remove(ctx context.Context, category string, actor string) error

	// ResetAll deletes every override.
	ResetAll(ctx context.Context) error
}
