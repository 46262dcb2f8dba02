package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExtractionResult is what the extraction service read from a batch of receipt images.
type ExtractionResult struct {
	IsValid           bool              `json:"isValid"`
	Total             decimal.Decimal   `json:"total"`
	Currency          string            `json:"currency"`
	Merchants         []string          `json:"merchants"`
	Categories        []string          `json:"categories"`
	Date              *time.Time        `json:"date,omitempty"`
	IndividualAmounts []decimal.Decimal `json:"individualAmounts"`
}

// ReceiptItem is one committable line of a pending receipt.
type ReceiptItem struct {
	Amount   decimal.Decimal `json:"amount"`
	Merchant string          `json:"merchant"`
	Category string          `json:"category"`
}

// Items splits the result into committable lines. Several individual amounts produce one
// item each, paired positionally with merchants and categories; otherwise the total is a
// single item.
func (r ExtractionResult) Items() []ReceiptItem {
	pick := func(values []string, i int) string {
		if i < len(values) {
			return values[i]
		}
		if len(values) > 0 {
			return values[0]
		}
		return ""
	}

	positive := make([]decimal.Decimal, 0, len(r.IndividualAmounts))
	for _, a := range r.IndividualAmounts {
		if a.IsPositive() {
			positive = append(positive, a)
		}
	}
	if len(positive) > 1 {
		items := make([]ReceiptItem, len(positive))
		for i, a := range positive {
			items[i] = ReceiptItem{Amount: a, Merchant: pick(r.Merchants, i), Category: pick(r.Categories, i)}
		}
		return items
	}
	return []ReceiptItem{{Amount: r.Total, Merchant: pick(r.Merchants, 0), Category: pick(r.Categories, 0)}}
}

// PendingReceipt is extracted receipt data waiting for confirmation.
type PendingReceipt struct {
	ReceiptID  string          `json:"receiptID"`
	ChatID     int64           `json:"chatID"`
	Submitter  Role            `json:"submitter"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
	Items      []ReceiptItem   `json:"items"`
	OccurredOn time.Time       `json:"occurredOn"`
	PhotoRefs  []string        `json:"photoRefs"`
	StagedAt   time.Time       `json:"stagedAt"`
}

// Description joins the distinct merchants.
func (p PendingReceipt) Description() string {
	seen := make(map[string]struct{}, len(p.Items))
	names := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		m := strings.TrimSpace(it.Merchant)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		names = append(names, m)
	}
	if len(names) == 0 {
		return "Receipt"
	}
	return strings.Join(names, ", ")
}

// PrimaryCategory is the category of the first item.
func (p PendingReceipt) PrimaryCategory() string {
	if len(p.Items) == 0 {
		return ""
	}
	return p.Items[0].Category
}

// ReceiptRef joins the archived photo references.
func (p PendingReceipt) ReceiptRef() string {
	return strings.Join(p.PhotoRefs, ",")
}

// ReceiptImage is a downloaded, normalised receipt photo.
type ReceiptImage struct {
	Data     []byte
	MIMEType string
}
