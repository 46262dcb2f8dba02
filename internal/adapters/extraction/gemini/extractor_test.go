package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	answer   string
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: f.answer}}},
		}},
	}, nil
}

func TestExtract_SendsEveryImage(t *testing.T) {
	models := &fakeModels{answer: `{"isValid":true,"total":12.5,"currency":"EUR","merchants":["Bakery"],"categories":["Groceries"]}`}
	e := newExtractor(models, "")

	result, err := e.Extract(context.Background(), []domain.ReceiptImage{
		{Data: []byte{1, 2}, MIMEType: "image/jpeg"},
		{Data: []byte{3}, MIMEType: "image/jpeg"},
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultModelName, models.model)
	require.Len(t, models.contents, 1)
	parts := models.contents[0].Parts
	require.Len(t, parts, 3, "prompt plus one part per image")
	assert.Contains(t, parts[0].Text, "individualAmounts")
	assert.Equal(t, []byte{3}, parts[2].InlineData.Data)
	assert.Equal(t, "application/json", models.config.ResponseMIMEType)

	assert.True(t, result.IsValid)
	assert.True(t, decimal.RequireFromString("12.5").Equal(result.Total))
}

func TestExtract_Failures(t *testing.T) {
	e := newExtractor(&fakeModels{err: errors.New("quota exceeded")}, "gemini-test")
	_, err := e.Extract(context.Background(), []domain.ReceiptImage{{Data: []byte{1}, MIMEType: "image/jpeg"}})
	assert.ErrorIs(t, err, apperrors.ErrExternalService)

	e = newExtractor(&fakeModels{answer: "I only see a cat."}, "gemini-test")
	_, err = e.Extract(context.Background(), []domain.ReceiptImage{{Data: []byte{1}, MIMEType: "image/jpeg"}})
	assert.ErrorIs(t, err, apperrors.ErrExternalService)

	_, err = e.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestInterpretCorrection(t *testing.T) {
	models := &fakeModels{answer: `{"actions":[{"kind":"UPDATE_AMOUNT","transactionId":"tx-1","data":{"amount":18.2},"statusMessage":"Amount set to 18.20"}],"confidence":0.8}`}
	e := newExtractor(models, "gemini-test")

	split := domain.NewSplit(0.6, 0.4)
	candidates := []domain.Transaction{{
		TransactionID: "tx-1",
		Amount:        decimal.RequireFromString("12.5"),
		Category:      "Groceries",
		Description:   "Lidl",
		Payer:         domain.RoleA,
		OccurredOn:    time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Split:         &split,
	}}

	plan, err := e.InterpretCorrection(context.Background(), "the last one was 18.20", candidates)
	require.NoError(t, err)

	assert.Equal(t, "gemini-test", models.model)
	var sent []string
	for _, p := range models.contents[0].Parts {
		sent = append(sent, p.Text)
	}
	joined := strings.Join(sent, "\n")
	assert.Contains(t, joined, `"transactionId":"tx-1"`)
	assert.Contains(t, joined, `"amount":"12.50"`)
	assert.Contains(t, joined, `"date":"2026-03-14"`)
	assert.Contains(t, joined, "the last one was 18.20")

	require.Len(t, plan.Actions, 1)
	assert.Equal(t, domain.CorrectionUpdateAmount, plan.Actions[0].Kind)
	require.NotNil(t, plan.Actions[0].Data.Amount)
	assert.True(t, decimal.RequireFromString("18.2").Equal(*plan.Actions[0].Data.Amount))
	assert.InDelta(t, 0.8, plan.Confidence, 1e-9)
}

func TestInterpretCorrection_GarbageIsUnknownNotError(t *testing.T) {
	e := newExtractor(&fakeModels{answer: "```json\n{oops\n```"}, "gemini-test")

	plan, err := e.InterpretCorrection(context.Background(), "make it 60/40", nil)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, domain.CorrectionUnknown, plan.Actions[0].Kind)
	assert.Zero(t, plan.Confidence)
}

func TestInterpretCorrection_TransportErrorIsReturned(t *testing.T) {
	e := newExtractor(&fakeModels{err: errors.New("deadline exceeded")}, "gemini-test")

	_, err := e.InterpretCorrection(context.Background(), "delete it", nil)
	assert.ErrorIs(t, err, apperrors.ErrExternalService)
}
