package gemini

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/shopspring/decimal"
)

// cleanModelJSON strips markdown fences and any chatter around the outermost JSON value.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the opening fence line (``` or ```json).
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return strings.Trim(s, "`")
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	open := strings.IndexAny(s, "{[")
	if open == -1 {
		return s
	}
	closer := "}"
	if s[open] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(s, closer); end > open {
		s = s[open : end+1]
	}
	return strings.TrimSpace(s)
}

// flexNumber accepts a JSON number or a string such as "€12,50".
type flexNumber struct {
	value decimal.Decimal
	set   bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		}
		return -1
	}, s)
	if s == "" {
		return nil
	}
	// A lone comma is a decimal separator; with both present the comma groups thousands.
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("number %q: %w", string(b), err)
	}
	n.value, n.set = d, true
	return nil
}

func (n *flexNumber) decimalPtr() *decimal.Decimal {
	if n == nil || !n.set {
		return nil
	}
	d := n.value
	return &d
}

// flexStrings accepts either a single string or a list of strings.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s != "" {
			*f = flexStrings{s}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	out := make(flexStrings, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*f = out
	return nil
}

type extractionPayload struct {
	IsValid           bool         `json:"isValid"`
	Total             flexNumber   `json:"total"`
	Currency          string       `json:"currency"`
	Merchant          flexStrings  `json:"merchant"`
	Merchants         flexStrings  `json:"merchants"`
	Category          flexStrings  `json:"category"`
	Categories        flexStrings  `json:"categories"`
	Date              string       `json:"date"`
	IndividualAmounts []flexNumber `json:"individualAmounts"`
}

var receiptDateLayouts = []string{"2006-01-02", time.RFC3339, "02/01/2006", "02.01.2006", "2006/01/02"}

func parseReceiptDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range receiptDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// parseExtraction decodes the model's receipt answer. An answer without a positive total
// is reported as not a receipt.
func parseExtraction(raw string) (*domain.ExtractionResult, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return nil, errors.New("empty response")
	}
	var p extractionPayload
	if err := json.Unmarshal([]byte(clean), &p); err != nil {
		return nil, fmt.Errorf("unmarshal extraction: %w", err)
	}

	result := &domain.ExtractionResult{
		IsValid:    p.IsValid,
		Total:      p.Total.value,
		Currency:   strings.ToUpper(strings.TrimSpace(p.Currency)),
		Merchants:  append([]string(p.Merchants), p.Merchant...),
		Categories: append([]string(p.Categories), p.Category...),
		Date:       parseReceiptDate(p.Date),
	}
	for _, a := range p.IndividualAmounts {
		if a.set {
			result.IndividualAmounts = append(result.IndividualAmounts, a.value)
		}
	}
	if !result.Total.IsPositive() {
		result.IsValid = false
	}
	return result, nil
}

type correctionPayload struct {
	Actions []struct {
		Kind          string `json:"kind"`
		TransactionID string `json:"transactionId"`
		Data          struct {
			Amount   flexNumber `json:"amount"`
			Category string     `json:"category"`
			SplitA   flexNumber `json:"splitA"`
			SplitB   flexNumber `json:"splitB"`
		} `json:"data"`
		StatusMessage string `json:"statusMessage"`
	} `json:"actions"`
	Confidence flexNumber `json:"confidence"`
}

var knownKinds = map[domain.CorrectionKind]struct{}{
	domain.CorrectionUpdateSplit:    {},
	domain.CorrectionUpdateCategory: {},
	domain.CorrectionUpdateAmount:   {},
	domain.CorrectionDelete:         {},
	domain.CorrectionUnknown:        {},
}

func normalizeKind(s string) domain.CorrectionKind {
	k := domain.CorrectionKind(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "_")))
	if _, ok := knownKinds[k]; ok {
		return k
	}
	return domain.CorrectionUnknown
}

// parseCorrection decodes the model's correction plan. Anything unusable becomes a single
// UNKNOWN action with zero confidence.
func parseCorrection(raw string) domain.CorrectionPlan {
	const fallback = "I couldn't work out what to change."

	clean := cleanModelJSON(raw)
	var p correctionPayload
	if clean == "" || json.Unmarshal([]byte(clean), &p) != nil || len(p.Actions) == 0 {
		return domain.UnknownCorrection(fallback)
	}

	confidence, _ := p.Confidence.value.Float64()
	// Some answers use a 0-100 scale.
	if confidence > 1 {
		confidence /= 100
	}
	confidence = max(0, min(confidence, 1))

	plan := domain.CorrectionPlan{Confidence: confidence, Actions: make([]domain.CorrectionAction, 0, len(p.Actions))}
	for _, a := range p.Actions {
		plan.Actions = append(plan.Actions, domain.CorrectionAction{
			Kind:          normalizeKind(a.Kind),
			TransactionID: strings.TrimSpace(a.TransactionID),
			Data: domain.CorrectionData{
				Amount:   a.Data.Amount.decimalPtr(),
				Category: strings.TrimSpace(a.Data.Category),
				SplitA:   a.Data.SplitA.decimalPtr(),
				SplitB:   a.Data.SplitB.decimalPtr(),
			},
			StatusMessage: strings.TrimSpace(a.StatusMessage),
		})
	}
	return plan
}
