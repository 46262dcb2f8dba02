package conversation

import (
	"sync"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Mode is the active step of a chat. Exactly one mode is active; entering a mode replaces the
// previous value, so nothing from an abandoned flow survives.
type Mode interface {
	modeName() string
}

// Idle waits for a command or photos.
type Idle struct{}

// AwaitingAmountConfirmation waits for "yes" or a corrected total for a staged receipt.
type AwaitingAmountConfirmation struct {
	ReceiptID string
}

// AwaitingPayer waits for the payer of a staged receipt. Override replaces the extracted
// total and commits the receipt as a single expense.
type AwaitingPayer struct {
	ReceiptID string
	Override  *decimal.Decimal
}

// ManualStep is the next field a manual entry asks for.
type ManualStep int

const (
	ManualAmount ManualStep = iota
	ManualCategory
	ManualDescription
	ManualPayer
)

// ManualEntry collects an expense field by field.
type ManualEntry struct {
	Step        ManualStep
	Amount      decimal.Decimal
	Category    string
	Description string
}

// RecurringStep is the next field a recurring entry asks for.
type RecurringStep int

const (
	RecurringDescription RecurringStep = iota
	RecurringAmount
	RecurringDay
	RecurringPayer
)

// RecurringEntry collects a monthly schedule field by field.
type RecurringEntry struct {
	Step        RecurringStep
	Description string
	Amount      decimal.Decimal
	Day         int
}

// EditLast waits for a free-text correction.
type EditLast struct{}

// SplitCustomInput waits for a custom split for Category.
type SplitCustomInput struct {
	Category string
}

// Search waits for a search term.
type Search struct{}

func (Idle) modeName() string                       { return "idle" }
func (AwaitingAmountConfirmation) modeName() string { return "awaiting_amount_confirmation" }
func (AwaitingPayer) modeName() string              { return "awaiting_payer" }
func (ManualEntry) modeName() string                { return "manual_entry" }
func (RecurringEntry) modeName() string             { return "recurring_entry" }
func (EditLast) modeName() string                   { return "edit_last" }
func (SplitCustomInput) modeName() string           { return "split_custom_input" }
func (Search) modeName() string                     { return "search" }

// ModeName returns a stable name for logging.
func ModeName(m Mode) string {
	if m == nil {
		return Idle{}.modeName()
	}
	return m.modeName()
}

// ActorFor is the audit actor recorded for role.
func ActorFor(role domain.Role) string {
	return string(role)
}

type chatState struct {
	mu   sync.Mutex
	mode Mode
}

// SessionStore keeps one in-memory session per chat. Sessions are not persisted.
type SessionStore struct {
	mu    sync.Mutex
	chats map[int64]*chatState
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{chats: make(map[int64]*chatState)}
}

// Session is exclusive access to one chat's state, held until Release.
type Session struct {
	state *chatState
}

// Acquire locks chatID's session. Events for the same chat are handled one at a time.
func (s *SessionStore) Acquire(chatID int64) *Session {
	s.mu.Lock()
	st, ok := s.chats[chatID]
	if !ok {
		st = &chatState{mode: Idle{}}
		s.chats[chatID] = st
	}
	s.mu.Unlock()

	st.mu.Lock()
	return &Session{state: st}
}

// Peek returns the current mode of chatID without locking the chat.
func (s *SessionStore) Peek(chatID int64) Mode {
	s.mu.Lock()
	st, ok := s.chats[chatID]
	s.mu.Unlock()
	if !ok {
		return Idle{}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.mode
}

// Mode returns the active mode.
func (s *Session) Mode() Mode {
	return s.state.mode
}

// Enter replaces the active mode.
func (s *Session) Enter(m Mode) {
	if m == nil {
		m = Idle{}
	}
	s.state.mode = m
}

// Reset returns the chat to Idle.
func (s *Session) Reset() {
	s.state.mode = Idle{}
}

// Release unlocks the chat.
func (s *Session) Release() {
	s.state.mu.Unlock()
}
