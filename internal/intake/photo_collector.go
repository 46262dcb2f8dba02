package intake

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/core/ports/gateways"
	"github.com/SscSPs/shared_expense_bot/internal/middleware"
)

// DefaultDebounce is the quiet window after the last photo before a batch is flushed.
const DefaultDebounce = 10 * time.Second

// Timer is a cancellable scheduled call.
type Timer interface {
	Stop() bool
}

// TimerFactory schedules f to run once after d.
type TimerFactory func(d time.Duration, f func()) Timer

// RealTimers schedules with time.AfterFunc.
func RealTimers(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Batch is a flushed photo collection.
type Batch struct {
	ChatID          int64
	Submitter       domain.Role
	PhotoRefs       []string
	StatusMessageID int
}

// FlushHandler receives a batch once its quiet window has passed.
type FlushHandler func(ctx context.Context, batch Batch)

type collection struct {
	submitter domain.Role
	refs      []string
	timer     Timer
	gen       uint64
	statusID  int
	ctx       context.Context
}

// PhotoCollector groups photos sent in quick succession into one batch per chat.
type PhotoCollector struct {
	mu          sync.Mutex
	collections map[int64]*collection
	window      time.Duration
	newTimer    TimerFactory
	transport   gateways.ChatTransport
	onFlush     FlushHandler
}

// CollectorOption configures a PhotoCollector.
type CollectorOption func(*PhotoCollector)

// WithDebounce sets the quiet window.
func WithDebounce(d time.Duration) CollectorOption {
	return func(c *PhotoCollector) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithTimerFactory replaces time.AfterFunc, mainly for tests.
func WithTimerFactory(f TimerFactory) CollectorOption {
	return func(c *PhotoCollector) {
		c.newTimer = f
	}
}

// NewPhotoCollector creates a collector that reports progress through transport.
func NewPhotoCollector(transport gateways.ChatTransport, options ...CollectorOption) *PhotoCollector {
	c := &PhotoCollector{
		collections: make(map[int64]*collection),
		window:      DefaultDebounce,
		newTimer:    RealTimers,
		transport:   transport,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// SetFlushHandler sets the receiver of flushed batches. It must be called before the first photo.
func (c *PhotoCollector) SetFlushHandler(h FlushHandler) {
	c.mu.Lock()
	c.onFlush = h
	c.mu.Unlock()
}

// AddPhoto appends photoRef to the chat's collection, restarting its quiet window, and
// returns the number of photos collected so far.
func (c *PhotoCollector) AddPhoto(ctx context.Context, chatID int64, photoRef string, submitter domain.Role) int {
	c.mu.Lock()
	col, ok := c.collections[chatID]
	if !ok {
		col = &collection{submitter: submitter, ctx: context.WithoutCancel(ctx)}
		c.collections[chatID] = col
	}
	col.refs = append(col.refs, photoRef)
	if col.timer != nil {
		col.timer.Stop()
	}
	col.gen++
	gen := col.gen
	col.timer = c.newTimer(c.window, func() { c.fire(chatID, col, gen) })
	count := len(col.refs)
	statusID := col.statusID
	c.mu.Unlock()

	c.updateStatus(ctx, chatID, col, statusID, count)
	return count
}

// Interrupt discards the chat's collection without flushing it. It reports whether one existed.
func (c *PhotoCollector) Interrupt(ctx context.Context, chatID int64) bool {
	c.mu.Lock()
	col, ok := c.collections[chatID]
	if ok {
		delete(c.collections, chatID)
		col.timer.Stop()
	}
	c.mu.Unlock()
	if !ok {
		return false
	}

	middleware.GetLoggerFromCtx(ctx).Info("Photo collection discarded",
		slog.Int64("chat_id", chatID), slog.Int("photos", len(col.refs)))
	if col.statusID != 0 {
		if err := c.transport.DeleteMessage(ctx, chatID, col.statusID); err != nil {
			middleware.GetLoggerFromCtx(ctx).Warn("Failed to remove photo status message", slog.String("error", err.Error()))
		}
	}
	return true
}

// Collecting reports whether chatID has an open collection.
func (c *PhotoCollector) Collecting(chatID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.collections[chatID]
	return ok
}

// fire flushes col if it is still the chat's collection and gen is its latest timer.
func (c *PhotoCollector) fire(chatID int64, col *collection, gen uint64) {
	c.mu.Lock()
	if cur, ok := c.collections[chatID]; !ok || cur != col || col.gen != gen {
		c.mu.Unlock()
		return
	}
	delete(c.collections, chatID)
	handler := c.onFlush
	batch := Batch{
		ChatID:          chatID,
		Submitter:       col.submitter,
		PhotoRefs:       append([]string(nil), col.refs...),
		StatusMessageID: col.statusID,
	}
	c.mu.Unlock()

	middleware.GetLoggerFromCtx(col.ctx).Info("Photo batch ready",
		slog.Int64("chat_id", chatID), slog.Int("photos", len(batch.PhotoRefs)))
	if handler != nil {
		handler(col.ctx, batch)
	}
}

// updateStatus sends or edits the running count shown to the chat.
func (c *PhotoCollector) updateStatus(ctx context.Context, chatID int64, col *collection, statusID, count int) {
	logger := middleware.GetLoggerFromCtx(ctx)
	text := collectingText(count, c.window)
	if statusID != 0 {
		if err := c.transport.EditMessage(ctx, chatID, statusID, text, nil); err != nil {
			logger.Warn("Failed to update photo status message", slog.String("error", err.Error()))
		}
		return
	}

	id, err := c.transport.SendMessage(ctx, chatID, text, nil)
	if err != nil {
		logger.Warn("Failed to send photo status message", slog.String("error", err.Error()))
		return
	}

	c.mu.Lock()
	live := c.collections[chatID] == col
	if live {
		col.statusID = id
	}
	c.mu.Unlock()
	if !live {
		// Flushed or discarded while the message was being sent.
		_ = c.transport.DeleteMessage(ctx, chatID, id)
	}
}

func collectingText(count int, window time.Duration) string {
	noun := "photos"
	if count == 1 {
		noun = "photo"
	}
	return fmt.Sprintf("📸 Received %d %s. Send more within %s or wait to process.", count, noun, window.Round(time.Second))
}
