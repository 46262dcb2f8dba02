package telegram

import (
	"context"
	"log/slog"
	"strings"

	"github.com/SscSPs/shared_expense_bot/internal/conversation"
	"github.com/SscSPs/shared_expense_bot/internal/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// EventHandler consumes converted updates.
type EventHandler interface {
	Handle(ctx context.Context, ev conversation.Event)
}

// ToEvent converts an update. ok is false for updates the bot does not act on.
func ToEvent(u tgbotapi.Update) (conversation.Event, bool) {
	if cb := u.CallbackQuery; cb != nil {
		if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
			return conversation.Event{}, false
		}
		return conversation.Event{
			ChatID:       cb.Message.Chat.ID,
			UserID:       cb.From.ID,
			MessageID:    cb.Message.MessageID,
			CallbackID:   cb.ID,
			CallbackData: cb.Data,
		}, cb.Data != ""
	}

	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return conversation.Event{}, false
	}
	ev := conversation.Event{ChatID: msg.Chat.ID, UserID: msg.From.ID, MessageID: msg.MessageID}
	switch {
	case len(msg.Photo) > 0:
		// Sizes are ordered smallest first.
		ev.PhotoRef = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		ev.PhotoRef = msg.Document.FileID
	case strings.TrimSpace(msg.Text) != "":
		ev.Text = msg.Text
	default:
		return conversation.Event{}, false
	}
	return ev, true
}

// Poller long-polls the Bot API and hands updates to a handler one at a time.
type Poller struct {
	bot     *tgbotapi.BotAPI
	handler EventHandler
	timeout int
}

// NewPoller creates a poller with a long-poll timeout in seconds.
func NewPoller(bot *tgbotapi.BotAPI, handler EventHandler, timeout int) *Poller {
	if timeout <= 0 {
		timeout = 60
	}
	return &Poller{bot: bot, handler: handler, timeout: timeout}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout
	cfg.AllowedUpdates = []string{"message", "callback_query"}
	updates := p.bot.GetUpdatesChan(cfg)
	defer p.bot.StopReceivingUpdates()

	base := middleware.GetLoggerFromCtx(ctx)
	base.Info("Telegram polling started", slog.String("bot", p.bot.Self.UserName))
	for {
		select {
		case <-ctx.Done():
			base.Info("Telegram polling stopped")
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			Dispatch(ctx, p.handler, u)
		}
	}
}

// Dispatch converts one update and runs the handler with an update-scoped logger.
func Dispatch(ctx context.Context, handler EventHandler, u tgbotapi.Update) {
	ev, ok := ToEvent(u)
	if !ok {
		return
	}
	logger := middleware.GetLoggerFromCtx(ctx).With(
		slog.Int("update_id", u.UpdateID),
		slog.String("request_id", uuid.NewString()),
	)
	ctx = middleware.WithLogger(ctx, logger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while handling update", slog.Any("panic", r))
		}
	}()
	handler.Handle(ctx, ev)
}
