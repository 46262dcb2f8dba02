// Package conversation turns chat events into ledger operations. Each chat has one session
// whose Mode says which question the bot is waiting on.
package conversation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/core/ports/gateways"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/intake"
	"github.com/SscSPs/shared_expense_bot/internal/middleware"
	"github.com/SscSPs/shared_expense_bot/pkg/clock"
)

// Event is one incoming chat update. Exactly one of Text, PhotoRef or CallbackData is set.
type Event struct {
	ChatID    int64
	UserID    int64
	MessageID int // message the callback button belongs to

	Text     string
	PhotoRef string

	CallbackID   string
	CallbackData string
}

// Deps are the collaborators of a Machine.
type Deps struct {
	Services  *portssvc.ServiceContainer
	Transport gateways.ChatTransport
	Extractor gateways.ReceiptExtractor
	Archive   gateways.ReceiptArchive
	Collector *intake.PhotoCollector
	Pending   *intake.PendingReceiptStore
}

// Machine is the conversation state machine.
type Machine struct {
	services  *portssvc.ServiceContainer
	transport gateways.ChatTransport
	extractor gateways.ReceiptExtractor
	archive   gateways.ReceiptArchive
	collector *intake.PhotoCollector
	pending   *intake.PendingReceiptStore
	sessions  *SessionStore

	currency    string
	maxImageDim int
	clock       clock.Clock
}

// Option configures a Machine.
type Option func(*Machine)

// WithCurrency sets the currency used when rendering amounts.
func WithCurrency(code string) Option {
	return func(m *Machine) {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			m.currency = code
		}
	}
}

// WithMaxImageDimension bounds photos before they are archived and extracted.
func WithMaxImageDimension(px int) Option {
	return func(m *Machine) {
		if px > 0 {
			m.maxImageDim = px
		}
	}
}

// WithClock injects the clock used for receipt dates.
func WithClock(c clock.Clock) Option {
	return func(m *Machine) {
		if c != nil {
			m.clock = c
		}
	}
}

// NewMachine creates the state machine and registers it as the collector's flush handler.
func NewMachine(deps Deps, options ...Option) *Machine {
	m := &Machine{
		services:    deps.Services,
		transport:   deps.Transport,
		extractor:   deps.Extractor,
		archive:     deps.Archive,
		collector:   deps.Collector,
		pending:     deps.Pending,
		sessions:    NewSessionStore(),
		currency:    "EUR",
		maxImageDim: intake.DefaultMaxImageDimension,
		clock:       clock.NewReal(),
	}
	for _, option := range options {
		option(m)
	}
	m.collector.SetFlushHandler(m.onBatch)
	return m
}

// Sessions exposes the session store, mainly for inspection in tests.
func (m *Machine) Sessions() *SessionStore {
	return m.sessions
}

// Handle processes one event to completion. Events for the same chat never run concurrently.
func (m *Machine) Handle(ctx context.Context, ev Event) {
	logger := middleware.GetLoggerFromCtx(ctx).With(
		slog.Int64("chat_id", ev.ChatID),
		slog.Int64("user_id", ev.UserID),
	)
	ctx = middleware.WithLogger(ctx, logger)

	participant, ok := m.services.Participants.ByTelegramID(ev.UserID)
	if !ok {
		logger.Warn("Update from unknown user ignored")
		if ev.CallbackID != "" {
			m.answer(ctx, ev.CallbackID, "")
		}
		m.send(ctx, ev.ChatID, msgNotParticipant, nil)
		return
	}

	sess := m.sessions.Acquire(ev.ChatID)
	defer sess.Release()

	logger.Debug("Handling update", slog.String("mode", ModeName(sess.Mode())))
	switch {
	case ev.CallbackData != "":
		m.handleCallback(ctx, sess, ev, participant.Role)
	case ev.PhotoRef != "":
		m.collector.AddPhoto(ctx, ev.ChatID, ev.PhotoRef, participant.Role)
	case strings.TrimSpace(ev.Text) != "":
		// Any text supersedes photos still being collected.
		m.collector.Interrupt(ctx, ev.ChatID)
		m.handleText(ctx, sess, ev, participant.Role)
	}
}

func (m *Machine) handleText(ctx context.Context, sess *Session, ev Event, sender domain.Role) {
	text := strings.TrimSpace(ev.Text)
	if strings.HasPrefix(text, "/") {
		m.handleCommand(ctx, sess, ev, sender, text)
		return
	}
	if isCancel(text) {
		m.cancel(ctx, sess, ev.ChatID)
		return
	}

	switch mode := sess.Mode().(type) {
	case AwaitingAmountConfirmation:
		m.confirmAmount(ctx, sess, ev, mode, text)
	case AwaitingPayer:
		m.receiptPayerText(ctx, sess, ev, mode, text, sender)
	case ManualEntry:
		m.manualStep(ctx, sess, ev, mode, text, sender)
	case RecurringEntry:
		m.recurringStep(ctx, sess, ev, mode, text, sender)
	case SplitCustomInput:
		m.customSplit(ctx, sess, ev, mode, text, sender)
	case EditLast:
		sess.Reset()
		m.correct(ctx, ev, text, sender)
	case Search:
		sess.Reset()
		m.search(ctx, ev, text)
	default:
		m.send(ctx, ev.ChatID, msgIdleHint, nil)
	}
}

// cancel abandons the current flow and any receipt it was holding.
func (m *Machine) cancel(ctx context.Context, sess *Session, chatID int64) {
	switch mode := sess.Mode().(type) {
	case AwaitingAmountConfirmation:
		m.pending.Consume(ctx, mode.ReceiptID)
	case AwaitingPayer:
		m.pending.Consume(ctx, mode.ReceiptID)
	}
	sess.Reset()
	m.send(ctx, chatID, msgCancelled, nil)
}

// fail reports err to the chat. Validation and not-found errors carry their own message.
func (m *Machine) fail(ctx context.Context, ev Event, err error, action string) {
	middleware.GetLoggerFromCtx(ctx).Error("Chat action failed",
		slog.String("action", action), slog.String("error", err.Error()))
	m.respond(ctx, ev, "❌ "+apperrors.UserMessage(err, msgGenericFailure), nil)
}

// respond edits the message a callback came from, or sends a new one for text events.
func (m *Machine) respond(ctx context.Context, ev Event, text string, keyboard gateways.Keyboard) {
	if ev.CallbackID != "" && ev.MessageID != 0 {
		if err := m.transport.EditMessage(ctx, ev.ChatID, ev.MessageID, text, keyboard); err == nil {
			return
		}
	}
	m.send(ctx, ev.ChatID, text, keyboard)
}

func (m *Machine) send(ctx context.Context, chatID int64, text string, keyboard gateways.Keyboard) int {
	id, err := m.transport.SendMessage(ctx, chatID, text, keyboard)
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Error("Failed to send message", slog.String("error", err.Error()))
		return 0
	}
	return id
}

func (m *Machine) answer(ctx context.Context, callbackID, text string) {
	if err := m.transport.AnswerCallback(ctx, callbackID, text); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Failed to answer callback", slog.String("error", err.Error()))
	}
}

func (m *Machine) name(role domain.Role) string {
	return m.services.Participants.Name(role)
}

func (m *Machine) names() map[domain.Role]string {
	return map[domain.Role]string{
		domain.RoleA: m.name(domain.RoleA),
		domain.RoleB: m.name(domain.RoleB),
	}
}

// parsePayer accepts a role letter or a participant's display name.
func (m *Machine) parsePayer(text string) (domain.Role, bool) {
	if role, ok := domain.ParseRole(text); ok {
		return role, true
	}
	for _, p := range m.services.Participants.All() {
		if strings.EqualFold(strings.TrimSpace(text), p.Name()) {
			return p.Role, true
		}
	}
	return "", false
}

func isCancel(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "cancel", "stop", "abort":
		return true
	}
	return false
}

func isYes(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "ok", "okay", "yep", "correct", "si", "ja", "👍":
		return true
	}
	return false
}
