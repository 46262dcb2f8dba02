package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/dto"
	"github.com/SscSPs/shared_expense_bot/internal/handlers"
	"github.com/SscSPs/shared_expense_bot/internal/middleware"
	"github.com/SscSPs/shared_expense_bot/internal/platform/config"
	"github.com/SscSPs/shared_expense_bot/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock LedgerSvcFacade ---
type MockLedgerService struct {
	mock.Mock
}

var _ portssvc.LedgerSvcFacade = (*MockLedgerService)(nil)

func (m *MockLedgerService) TransactionOwed(amount decimal.Decimal, payer domain.Role, split *domain.Split) domain.Owed {
	return m.Called(amount, payer, split).Get(0).(domain.Owed)
}
func (m *MockLedgerService) OutstandingBalance(ctx context.Context) (*domain.Balance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Balance), args.Error(1)
}
func (m *MockLedgerService) DetailedBalance(ctx context.Context) (*domain.DetailedBalance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DetailedBalance), args.Error(1)
}
func (m *MockLedgerService) SettlementMessage(balance domain.Balance) string {
	return m.Called(balance).String(0)
}
func (m *MockLedgerService) CommitExpense(ctx context.Context, input portssvc.ExpenseInput) (*portssvc.CommitResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.CommitResult), args.Error(1)
}
func (m *MockLedgerService) SettleAll(ctx context.Context, actor string) (int64, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockLedgerService) PatchBalance(ctx context.Context, target domain.PatchTarget, actor string) (int, error) {
	args := m.Called(ctx, target, actor)
	return args.Int(0), args.Error(1)
}
func (m *MockLedgerService) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockLedgerService) ListTransactions(ctx context.Context, filter domain.TransactionFilter, nextToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, filter, nextToken)
	var txns []domain.Transaction
	if args.Get(0) != nil {
		txns = args.Get(0).([]domain.Transaction)
	}
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	return txns, next, args.Error(2)
}
func (m *MockLedgerService) EditTransaction(ctx context.Context, transactionID string, edit domain.TransactionEdit, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, edit, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockLedgerService) DeleteTransaction(ctx context.Context, transactionID string, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockLedgerService) UndoLast(ctx context.Context, actor string) (*domain.Transaction, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// --- Mock SplitRuleSvc ---
type MockSplitRuleService struct {
	mock.Mock
}

var _ portssvc.SplitRuleSvc = (*MockSplitRuleService)(nil)

func (m *MockSplitRuleService) NormalizeCategory(category string) string {
	return m.Called(category).String(0)
}
func (m *MockSplitRuleService) Resolve(ctx context.Context, category string) domain.Split {
	return m.Called(ctx, category).Get(0).(domain.Split)
}
func (m *MockSplitRuleService) Default() domain.Split {
	return m.Called().Get(0).(domain.Split)
}
func (m *MockSplitRuleService) ListRules(ctx context.Context) []domain.SplitRule {
	return m.Called(ctx).Get(0).([]domain.SplitRule)
}
func (m *MockSplitRuleService) Update(ctx context.Context, category string, split domain.Split, actor string) error {
	return m.Called(ctx, category, split, actor).Error(0)
}
func (m *MockSplitRuleService) Remove(ctx context.Context, category string, actor string) error {
	return m.Called(ctx, category, actor).Error(0)
}
func (m *MockSplitRuleService) ResetAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- Test Suite ---
type LedgerHandlerTestSuite struct {
	suite.Suite
	router     *gin.Engine
	ledger     *MockLedgerService
	splitRules *MockSplitRuleService
	jwtSecret  string
}

func TestLedgerHandler(t *testing.T) {
	suite.Run(t, new(LedgerHandlerTestSuite))
}

func (s *LedgerHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.jwtSecret = "test-secret-key-that-is-long-enough"
	s.ledger = new(MockLedgerService)
	s.splitRules = new(MockSplitRuleService)

	s.router = gin.New()
	v1 := s.router.Group("/api/v1", middleware.AuthMiddleware(s.jwtSecret))
	handlers.RegisterLedgerRoutes(v1, s.ledger)
	handlers.RegisterSplitRuleRoutes(v1, s.splitRules)
}

func (s *LedgerHandlerTestSuite) TearDownTest() {
	s.ledger.AssertExpectations(s.T())
	s.splitRules.AssertExpectations(s.T())
}

func (s *LedgerHandlerTestSuite) token(subject string) string {
	claims := jwt.RegisteredClaims{
		Issuer:    "shared-expense-test",
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	s.Require().NoError(err)
	return signed
}

func (s *LedgerHandlerTestSuite) do(method, url string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, url, reader)
	req.Header.Set("Authorization", "Bearer "+s.token("admin"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *LedgerHandlerTestSuite) errorOf(w *httptest.ResponseRecorder) string {
	var resp handlers.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func (s *LedgerHandlerTestSuite) TestMissingTokenIsRejected() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/balance", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *LedgerHandlerTestSuite) TestGetBalance() {
	bal := &domain.Balance{Owed: domain.Owed{AOwes: decimal.Zero, BOwes: decimal.RequireFromString("12.5")}, TransactionCount: 3}
	s.ledger.On("OutstandingBalance", mock.Anything).Return(bal, nil).Once()
	s.ledger.On("SettlementMessage", *bal).Return("Sam owes Alex €12.50").Once()

	w := s.do(http.MethodGet, "/api/v1/balance", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp dto.BalanceResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.True(decimal.RequireFromString("12.5").Equal(resp.BOwes))
	s.Equal(3, resp.TransactionCount)
	s.Equal("Sam owes Alex €12.50", resp.Message)
}

func (s *LedgerHandlerTestSuite) TestGetBalance_StorageFailureIsGeneric() {
	s.ledger.On("OutstandingBalance", mock.Anything).Return(nil, apperrors.Storage("failed to query unsettled transactions", errors.New("conn refused"))).Once()

	w := s.do(http.MethodGet, "/api/v1/balance", nil)

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("Failed to compute balance", s.errorOf(w))
}

func (s *LedgerHandlerTestSuite) TestSettleUsesAdminActor() {
	s.ledger.On("SettleAll", mock.Anything, "admin:admin").Return(int64(4), nil).Once()

	w := s.do(http.MethodPost, "/api/v1/balance/settle", nil)

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"settled":4}`, w.Body.String())
}

func (s *LedgerHandlerTestSuite) TestPatch() {
	s.ledger.On("PatchBalance", mock.Anything, mock.MatchedBy(func(t domain.PatchTarget) bool {
		return len(t.Components) == 1 &&
			t.Components[0].Debtor == domain.RoleB &&
			t.Components[0].Amount.Equal(decimal.RequireFromString("40.25"))
	}), "admin:admin").Return(1, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/balance/patch", map[string]any{
		"components": []map[string]any{{"debtor": "B", "amount": "40.25", "description": "carried over"}},
	})

	s.Equal(http.StatusCreated, w.Code)
	s.JSONEq(`{"inserted":1}`, w.Body.String())
}

func (s *LedgerHandlerTestSuite) TestPatch_AlreadyApplied() {
	s.ledger.On("PatchBalance", mock.Anything, mock.Anything, "admin:admin").
		Return(0, apperrors.NewAppError(http.StatusConflict, "a balance patch is already outstanding", nil)).Once()

	w := s.do(http.MethodPost, "/api/v1/balance/patch", map[string]any{
		"components": []map[string]any{{"debtor": "A", "amount": 10}},
	})

	s.Equal(http.StatusConflict, w.Code)
	s.Equal("a balance patch is already outstanding", s.errorOf(w))
}

func (s *LedgerHandlerTestSuite) TestPatch_InvalidBody() {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"no components", map[string]any{"components": []map[string]any{}}},
		{"unknown debtor", map[string]any{"components": []map[string]any{{"debtor": "C", "amount": 5}}}},
		{"zero amount", map[string]any{"components": []map[string]any{{"debtor": "A", "amount": 0}}}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(http.MethodPost, "/api/v1/balance/patch", tt.body)
			s.Equal(http.StatusBadRequest, w.Code)
		})
	}
}

func (s *LedgerHandlerTestSuite) TestListTransactions() {
	next := "next-page"
	occurred := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	split := domain.NewSplit(0.6, 0.4)
	txns := []domain.Transaction{{
		TransactionID: "tx-1",
		Amount:        decimal.RequireFromString("42.5"),
		CurrencyCode:  "EUR",
		Category:      "Groceries",
		Payer:         domain.RoleA,
		OccurredOn:    occurred,
		Split:         &split,
	}}
	s.ledger.On("ListTransactions", mock.Anything, domain.TransactionFilter{
		UnsettledOnly: true,
		Category:      "Groceries",
		Payer:         domain.RoleA,
		Search:        "lidl",
		Limit:         10,
	}, mock.MatchedBy(func(tok *string) bool { return tok != nil && *tok == "abc" })).Return(txns, &next, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/transactions?unsettled=true&category=Groceries&payer=A&q=lidl&limit=10&nextToken=abc", nil)

	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp dto.ListTransactionsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Transactions, 1)
	s.Equal("tx-1", resp.Transactions[0].TransactionID)
	s.Require().NotNil(resp.Transactions[0].Split)
	s.True(decimal.RequireFromString("0.6").Equal(resp.Transactions[0].Split.A))
	s.Require().NotNil(resp.NextToken)
	s.Equal("next-page", *resp.NextToken)
}

func (s *LedgerHandlerTestSuite) TestListTransactions_InvalidQuery() {
	for _, url := range []string{
		"/api/v1/transactions?payer=C",
		"/api/v1/transactions?limit=500",
	} {
		w := s.do(http.MethodGet, url, nil)
		s.Equal(http.StatusBadRequest, w.Code, url)
	}
}

func (s *LedgerHandlerTestSuite) TestListTransactions_BadToken() {
	s.ledger.On("ListTransactions", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil, apperrors.NewAppError(http.StatusBadRequest, "invalid nextToken", errors.New("base64 decode"))).Once()

	w := s.do(http.MethodGet, "/api/v1/transactions?nextToken=not-a-token", nil)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("invalid nextToken", s.errorOf(w))
}

func (s *LedgerHandlerTestSuite) TestEditTransaction() {
	edited := &domain.Transaction{TransactionID: "tx-1", Amount: decimal.NewFromInt(18), CurrencyCode: "EUR", Payer: domain.RoleB}
	s.ledger.On("EditTransaction", mock.Anything, "tx-1", mock.MatchedBy(func(e domain.TransactionEdit) bool {
		return e.Amount != nil && e.Amount.Equal(decimal.NewFromInt(18)) &&
			e.Split != nil && e.Split.Equal(domain.NewSplit(0.7, 0.3)) &&
			e.Category == nil
	}), "admin:admin").Return(edited, nil).Once()

	w := s.do(http.MethodPatch, "/api/v1/transactions/tx-1", map[string]any{"amount": 18, "splitA": 0.7})

	s.Equal(http.StatusOK, w.Code, w.Body.String())
}

func (s *LedgerHandlerTestSuite) TestEditTransaction_SettledIsRejected() {
	s.ledger.On("EditTransaction", mock.Anything, "tx-1", mock.Anything, "admin:admin").
		Return(nil, apperrors.Validationf("transaction is settled and can no longer be changed")).Once()

	w := s.do(http.MethodPatch, "/api/v1/transactions/tx-1", map[string]any{"category": "Food"})

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.errorOf(w), "settled")
}

func (s *LedgerHandlerTestSuite) TestEditTransaction_InvalidSplit() {
	w := s.do(http.MethodPatch, "/api/v1/transactions/tx-1", map[string]any{"splitA": 1.5})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *LedgerHandlerTestSuite) TestDeleteTransaction() {
	s.ledger.On("DeleteTransaction", mock.Anything, "tx-1", "admin:admin").Return(&domain.Transaction{TransactionID: "tx-1"}, nil).Once()
	s.ledger.On("DeleteTransaction", mock.Anything, "gone", "admin:admin").Return(nil, apperrors.NotFoundf("transaction gone not found")).Once()

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/transactions/tx-1", nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/api/v1/transactions/gone", nil).Code)
}

func (s *LedgerHandlerTestSuite) TestSplitRules() {
	s.splitRules.On("ListRules", mock.Anything).Return([]domain.SplitRule{
		{IsDefault: true, Split: domain.EqualSplit()},
		{Category: "Rent", Split: domain.NewSplit(0.7, 0.3)},
	}).Once()
	s.splitRules.On("Update", mock.Anything, "Rent", mock.MatchedBy(func(sp domain.Split) bool {
		return sp.Equal(domain.NewSplit(0.6, 0.4))
	}), "admin:admin").Return(nil).Once()
	s.splitRules.On("Remove", mock.Anything, "Rent", "admin:admin").Return(nil).Once()
	s.splitRules.On("ResetAll", mock.Anything).Return(nil).Once()

	w := s.do(http.MethodGet, "/api/v1/split-rules", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var rules []dto.SplitRuleResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &rules))
	s.Len(rules, 2)
	s.True(rules[0].IsDefault)

	s.Equal(http.StatusNoContent, s.do(http.MethodPut, "/api/v1/split-rules/Rent", map[string]any{"splitA": "0.6"}).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPut, "/api/v1/split-rules/Rent", map[string]any{"splitA": -0.1}).Code)
	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/split-rules/Rent", nil).Code)
	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/split-rules", nil).Code)
}

func TestLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hash, err := utils.HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		JWTSecret:         "test-secret-key-that-is-long-enough",
		JWTExpiryDuration: time.Hour,
		JWTIssuer:         "shared-expense-test",
		AdminUsername:     "admin",
		AdminPasswordHash: hash,
	}
	r := gin.New()
	handlers.RegisterRoutes(r, cfg, &portssvc.ServiceContainer{Ledger: new(MockLedgerService), SplitRules: new(MockSplitRuleService)})

	login := func(user, pass string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(dto.LoginRequest{Username: user, Password: pass})
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := login("admin", "wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: got %d", w.Code)
	}

	w := login("admin", "correct horse")
	if w.Code != http.StatusOK {
		t.Fatalf("login: got %d: %s", w.Code, w.Body.String())
	}
	var resp dto.LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	// The issued token opens the protected API.
	mockLedger := new(MockLedgerService)
	r = gin.New()
	handlers.RegisterRoutes(r, cfg, &portssvc.ServiceContainer{Ledger: mockLedger, SplitRules: new(MockSplitRuleService)})
	mockLedger.On("SettleAll", mock.Anything, "admin:admin").Return(int64(0), nil).Once()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/balance/settle", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("settle with issued token: got %d", w.Code)
	}
	mockLedger.AssertExpectations(t)

	health := httptest.NewRecorder()
	r.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("health: got %d", health.Code)
	}
}
