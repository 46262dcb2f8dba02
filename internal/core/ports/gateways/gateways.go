// Package gateways declares the external services the core talks to.
package gateways

import (
	"context"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
)

// Button is one inline button. Data comes back verbatim in the callback.
type Button struct {
	Label string
	Data  string
}

// Keyboard is a set of button rows. A nil keyboard sends no buttons.
type Keyboard [][]Button

// ChatTransport sends and edits chat messages.
type ChatTransport interface {
	// SendMessage posts text to chatID and returns the new message id.
	SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) (int, error)

	// EditMessage replaces the text and buttons of an existing message.
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, keyboard Keyboard) error

	// DeleteMessage removes a message.
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error

	// AnswerCallback acknowledges a button press.
	AnswerCallback(ctx context.Context, callbackID string, text string) error

	// DownloadFile fetches the bytes behind a photo reference.
	DownloadFile(ctx context.Context, fileRef string) ([]byte, error)
}

// ReceiptExtractor is the black-box extraction model.
type ReceiptExtractor interface {
	// Extract reads a batch of receipt images.
	Extract(ctx context.Context, images []domain.ReceiptImage) (*domain.ExtractionResult, error)

	// InterpretCorrection maps free text onto actions against candidates. Malformed model
	// output yields a single UNKNOWN action with zero confidence, not an error.
	InterpretCorrection(ctx context.Context, text string, candidates []domain.Transaction) (domain.CorrectionPlan, error)
}

// ReceiptArchive keeps normalised receipt photos.
type ReceiptArchive interface {
	// Store saves img under key and returns a reference to persist on the transaction.
	Store(ctx context.Context, key string, img domain.ReceiptImage) (string, error)
}
