// Package gemini reads receipts and interprets correction requests with a Gemini model.
package gemini

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/core/ports/gateways"
	"github.com/SscSPs/shared_expense_bot/internal/middleware"
	"google.golang.org/genai"
)

const DefaultModelName = "gemini-2.5-flash"

const receiptPrompt = `You read photos of shopping receipts. All attached images belong to the same purchase
or to purchases made the same day.

Output STRICT JSON only, a single object with these fields:
- "isValid": boolean, false when the images do not show a receipt or invoice
- "total": number, the grand total paid (sum of all receipts when there are several)
- "currency": string, ISO 4217 code such as "EUR"
- "merchants": array of strings, one merchant name per receipt
- "categories": array of strings, one spending category per receipt (e.g. "Groceries", "Restaurants", "Household", "Transport")
- "date": string "YYYY-MM-DD" of the purchase, or null when unreadable
- "individualAmounts": array of numbers, the total of each separate receipt in the same order as merchants

Return ONLY raw JSON. Do NOT wrap the response in code fences.`

const correctionPrompt = `You help two people keep a shared expense ledger. One of them wrote a free-text request
to change recent transactions. The candidate transactions are listed below as JSON, newest first.
"the last one" means the first candidate.

Output STRICT JSON only, a single object:
{"actions": [{"kind": "UPDATE_SPLIT" | "UPDATE_CATEGORY" | "UPDATE_AMOUNT" | "DELETE" | "UNKNOWN",
  "transactionId": string,
  "data": {"amount": number, "category": string, "splitA": number, "splitB": number},
  "statusMessage": string}],
 "confidence": number between 0 and 1}

Rules:
- splitA and splitB are the shares of the first and second participant and add up to 1 (or to 100).
- Only fill the data fields the action needs.
- statusMessage is a short human sentence describing the change.
- When the request is unclear, return one UNKNOWN action explaining what is missing.

Return ONLY raw JSON. Do NOT wrap the response in code fences.`

// generator is the part of the genai client the extractor calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config selects the model and credentials.
type Config struct {
	APIKey string
	Model  string
}

// Extractor implements gateways.ReceiptExtractor on the Gemini API.
type Extractor struct {
	models generator
	model  string
}

var _ gateways.ReceiptExtractor = (*Extractor)(nil)

// NewExtractor creates a Gemini client. An empty API key falls back to the GOOGLE_API_KEY
// environment lookup done by the client.
func NewExtractor(ctx context.Context, cfg Config) (*Extractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperrors.External("failed to create gemini client", err)
	}
	return newExtractor(client.Models, cfg.Model), nil
}

func newExtractor(models generator, model string) *Extractor {
	if model == "" {
		model = DefaultModelName
	}
	return &Extractor{models: models, model: model}
}

func (e *Extractor) generate(ctx context.Context, parts []*genai.Part) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	temperature := float32(0)
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temperature,
	}

	start := time.Now()
	resp, err := e.models.GenerateContent(ctx, e.model, contents, config)
	if err != nil {
		return "", apperrors.External("the extraction service is unavailable", err)
	}
	middleware.GetLoggerFromCtx(ctx).Debug("Gemini call finished",
		slog.String("model", e.model),
		slog.Duration("elapsed", time.Since(start)))
	return resp.Text(), nil
}

// Extract reads every image in one request.
func (e *Extractor) Extract(ctx context.Context, images []domain.ReceiptImage) (*domain.ExtractionResult, error) {
	if len(images) == 0 {
		return nil, apperrors.Validationf("no images to read")
	}
	parts := make([]*genai.Part, 0, len(images)+1)
	parts = append(parts, &genai.Part{Text: receiptPrompt})
	for _, img := range images {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data}})
	}

	raw, err := e.generate(ctx, parts)
	if err != nil {
		return nil, err
	}
	result, err := parseExtraction(raw)
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Unreadable receipt extraction answer", slog.String("raw", raw), slog.String("error", err.Error()))
		return nil, apperrors.External("the receipt could not be read", err)
	}
	return result, nil
}

type correctionCandidate struct {
	TransactionID string  `json:"transactionId"`
	Amount        string  `json:"amount"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Payer         string  `json:"payer"`
	OccurredOn    string  `json:"date"`
	SplitA        *string `json:"splitA,omitempty"`
	SplitB        *string `json:"splitB,omitempty"`
}

// InterpretCorrection asks the model to map text onto actions against candidates.
func (e *Extractor) InterpretCorrection(ctx context.Context, text string, candidates []domain.Transaction) (domain.CorrectionPlan, error) {
	list := make([]correctionCandidate, 0, len(candidates))
	for _, t := range candidates {
		c := correctionCandidate{
			TransactionID: t.TransactionID,
			Amount:        t.Amount.StringFixed(2),
			Category:      t.Category,
			Description:   t.Description,
			Payer:         string(t.Payer),
			OccurredOn:    t.OccurredOn.Format("2006-01-02"),
		}
		if t.Split != nil {
			a, b := t.Split.A.String(), t.Split.B.String()
			c.SplitA, c.SplitB = &a, &b
		}
		list = append(list, c)
	}
	encoded, err := json.Marshal(list)
	if err != nil {
		return domain.CorrectionPlan{}, apperrors.External("failed to encode correction candidates", err)
	}

	raw, err := e.generate(ctx, []*genai.Part{
		{Text: correctionPrompt},
		{Text: "Candidates:\n" + string(encoded)},
		{Text: "Request:\n" + text},
	})
	if err != nil {
		return domain.CorrectionPlan{}, err
	}
	plan := parseCorrection(raw)
	if plan.Confidence == 0 {
		middleware.GetLoggerFromCtx(ctx).Warn("Correction answer had no confidence", slog.String("raw", raw))
	}
	return plan, nil
}
