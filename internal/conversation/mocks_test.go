package conversation_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/core/ports/gateways"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/intake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock LedgerSvcFacade ---
type MockLedger struct {
	mock.Mock
}

var _ portssvc.LedgerSvcFacade = (*MockLedger)(nil)

func (m *MockLedger) TransactionOwed(amount decimal.Decimal, payer domain.Role, split *domain.Split) domain.Owed {
	args := m.Called(amount, payer, split)
	return args.Get(0).(domain.Owed)
}

func (m *MockLedger) OutstandingBalance(ctx context.Context) (*domain.Balance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Balance), args.Error(1)
}

func (m *MockLedger) DetailedBalance(ctx context.Context) (*domain.DetailedBalance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DetailedBalance), args.Error(1)
}

func (m *MockLedger) SettlementMessage(balance domain.Balance) string {
	args := m.Called(balance)
	return args.String(0)
}

func (m *MockLedger) CommitExpense(ctx context.Context, input portssvc.ExpenseInput) (*portssvc.CommitResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.CommitResult), args.Error(1)
}

func (m *MockLedger) SettleAll(ctx context.Context, actor string) (int64, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) PatchBalance(ctx context.Context, target domain.PatchTarget, actor string) (int, error) {
	args := m.Called(ctx, target, actor)
	return args.Int(0), args.Error(1)
}

func (m *MockLedger) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedger) ListTransactions(ctx context.Context, filter domain.TransactionFilter, nextToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, filter, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	return args.Get(0).([]domain.Transaction), next, args.Error(2)
}

func (m *MockLedger) EditTransaction(ctx context.Context, transactionID string, edit domain.TransactionEdit, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, edit, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedger) DeleteTransaction(ctx context.Context, transactionID string, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedger) UndoLast(ctx context.Context, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// --- Mock SplitRuleSvc ---
type MockSplitRules struct {
	mock.Mock
}

var _ portssvc.SplitRuleSvc = (*MockSplitRules)(nil)

func (m *MockSplitRules) NormalizeCategory(category string) string {
	args := m.Called(category)
	return args.String(0)
}

func (m *MockSplitRules) Resolve(ctx context.Context, category string) domain.Split {
	args := m.Called(ctx, category)
	return args.Get(0).(domain.Split)
}

func (m *MockSplitRules) Default() domain.Split {
	args := m.Called()
	return args.Get(0).(domain.Split)
}

func (m *MockSplitRules) ListRules(ctx context.Context) []domain.SplitRule {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.SplitRule)
}

func (m *MockSplitRules) Update(ctx context.Context, category string, split domain.Split, actor string) error {
	args := m.Called(ctx, category, split, actor)
	return args.Error(0)
}

func (m *MockSplitRules) Remove(ctx context.Context, category string, actor string) error {
	args := m.Called(ctx, category, actor)
	return args.Error(0)
}

func (m *MockSplitRules) ResetAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Mock RecurringSvc ---
type MockRecurring struct {
	mock.Mock
}

var _ portssvc.RecurringSvc = (*MockRecurring)(nil)

func (m *MockRecurring) CreateSchedule(ctx context.Context, schedule domain.RecurringExpense, actor string) (*domain.RecurringExpense, error) {
	args := m.Called(ctx, schedule, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecurringExpense), args.Error(1)
}

func (m *MockRecurring) ListSchedules(ctx context.Context) ([]domain.RecurringExpense, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RecurringExpense), args.Error(1)
}

func (m *MockRecurring) DeleteSchedule(ctx context.Context, scheduleID string, actor string) error {
	args := m.Called(ctx, scheduleID, actor)
	return args.Error(0)
}

func (m *MockRecurring) FireDue(ctx context.Context, now time.Time) ([]portssvc.FiredSchedule, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]portssvc.FiredSchedule), args.Error(1)
}

// --- Mock CorrectionSvc ---
type MockCorrections struct {
	mock.Mock
}

var _ portssvc.CorrectionSvc = (*MockCorrections)(nil)

func (m *MockCorrections) Correct(ctx context.Context, text string, actor string) ([]portssvc.CorrectionOutcome, error) {
	args := m.Called(ctx, text, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]portssvc.CorrectionOutcome), args.Error(1)
}

// --- Mock ReceiptExtractor ---
type MockExtractor struct {
	mock.Mock
}

var _ gateways.ReceiptExtractor = (*MockExtractor)(nil)

func (m *MockExtractor) Extract(ctx context.Context, images []domain.ReceiptImage) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}

func (m *MockExtractor) InterpretCorrection(ctx context.Context, text string, candidates []domain.Transaction) (domain.CorrectionPlan, error) {
	args := m.Called(ctx, text, candidates)
	return args.Get(0).(domain.CorrectionPlan), args.Error(1)
}

// memoryArchive keeps stored keys and hands back a gs-style reference.
type memoryArchive struct {
	mu   sync.Mutex
	keys []string
}

func (a *memoryArchive) Store(_ context.Context, key string, _ domain.ReceiptImage) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, key)
	return "gs://receipts/" + key, nil
}

// --- fake chat transport ---
type outgoing struct {
	chatID   int64
	id       int
	text     string
	keyboard gateways.Keyboard
}

type fakeTransport struct {
	mu       sync.Mutex
	nextID   int
	sent     []outgoing
	edits    []outgoing
	deleted  []int
	answered []string
	shown    []outgoing
	photo    []byte
	// downloadErr, when set, fails every download.
	downloadErr error
}

var _ gateways.ChatTransport = (*fakeTransport)(nil)

func newFakeTransport() *fakeTransport {
	img := image.NewRGBA(image.Rect(0, 0, 40, 60))
	for x := 0; x < 40; x++ {
		for y := 0; y < 60; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 4), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return &fakeTransport{photo: buf.Bytes()}
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, keyboard gateways.Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	msg := outgoing{chatID: chatID, id: f.nextID, text: text, keyboard: keyboard}
	f.sent = append(f.sent, msg)
	f.shown = append(f.shown, msg)
	return f.nextID, nil
}

func (f *fakeTransport) EditMessage(_ context.Context, chatID int64, messageID int, text string, keyboard gateways.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := outgoing{chatID: chatID, id: messageID, text: text, keyboard: keyboard}
	f.edits = append(f.edits, msg)
	f.shown = append(f.shown, msg)
	return nil
}

func (f *fakeTransport) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTransport) AnswerCallback(_ context.Context, callbackID string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, callbackID)
	return nil
}

func (f *fakeTransport) DownloadFile(_ context.Context, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.photo, nil
}

func (f *fakeTransport) failDownloads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadErr = err
}

// last returns the most recent text shown to the chat, sent or edited.
func (f *fakeTransport) last() outgoing {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.shown) == 0 {
		return outgoing{}
	}
	return f.shown[len(f.shown)-1]
}

// --- manual timers ---
type manualTimer struct {
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (mt *manualTimers) factory(_ time.Duration, f func()) intake.Timer {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	t := &manualTimer{f: f}
	mt.timers = append(mt.timers, t)
	return t
}

// elapse runs every timer that is still armed.
func (mt *manualTimers) elapse() {
	mt.mu.Lock()
	live := make([]*manualTimer, 0, len(mt.timers))
	for _, t := range mt.timers {
		if !t.stopped {
			t.stopped = true
			live = append(live, t)
		}
	}
	mt.mu.Unlock()
	for _, t := range live {
		t.f()
	}
}
