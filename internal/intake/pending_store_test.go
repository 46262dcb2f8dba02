package intake_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/intake"
	"github.com/SscSPs/shared_expense_bot/pkg/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receipt(chatID int64, total int64) domain.PendingReceipt {
	return domain.PendingReceipt{
		ChatID:    chatID,
		Submitter: domain.RoleA,
		Total:     decimal.NewFromInt(total),
		Currency:  "EUR",
		Items:     []domain.ReceiptItem{{Amount: decimal.NewFromInt(total), Merchant: "Lidl", Category: "Groceries"}},
	}
}

func TestPendingReceiptStore_StageGetConsume(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC))
	store := intake.NewPendingReceiptStore(time.Hour, clk)

	first := store.Stage(ctx, receipt(7, 30))
	second := store.Stage(ctx, receipt(7, 12))
	require.NotEqual(t, first, second, "several receipts per chat, addressed by id")

	got, ok := store.Get(first)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(30).Equal(got.Total))
	assert.Equal(t, clk.Now(), got.StagedAt)

	consumed, ok := store.Consume(ctx, first)
	require.True(t, ok)
	assert.Equal(t, first, consumed.ReceiptID)

	_, ok = store.Consume(ctx, first)
	assert.False(t, ok, "a receipt is consumed once")
	_, ok = store.Get(second)
	assert.True(t, ok)
}

func TestPendingReceiptStore_ExpiredEntriesSweptOnNextOperation(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC))
	store := intake.NewPendingReceiptStore(time.Hour, clk)

	old := store.Stage(ctx, receipt(7, 30))
	clk.Advance(30 * time.Minute)
	recent := store.Stage(ctx, receipt(8, 5))
	clk.Advance(31 * time.Minute)

	_, ok := store.Get(old)
	assert.False(t, ok, "expired entries are never returned")
	assert.Equal(t, 2, store.Len(), "sweeping only happens on stage or consume")

	store.Stage(ctx, receipt(9, 1))
	assert.Equal(t, 2, store.Len())
	_, ok = store.Get(old)
	assert.False(t, ok)
	_, ok = store.Get(recent)
	assert.True(t, ok)

	clk.Advance(61 * time.Minute)
	_, ok = store.Consume(ctx, recent)
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestPendingReceiptStore_UpdateKeepsStagingTime(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC))
	store := intake.NewPendingReceiptStore(time.Hour, clk)

	id := store.Stage(ctx, receipt(7, 30))
	staged, _ := store.Get(id)
	clk.Advance(10 * time.Minute)

	staged.Total = decimal.NewFromInt(25)
	require.True(t, store.Update(staged))

	got, ok := store.Get(id)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(25).Equal(got.Total))
	assert.Equal(t, staged.StagedAt, got.StagedAt)

	assert.False(t, store.Update(domain.PendingReceipt{ReceiptID: "missing"}))
}
