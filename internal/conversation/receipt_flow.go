package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/intake"
	"github.com/SscSPs/shared_expense_bot/internal/middleware"
	"github.com/SscSPs/shared_expense_bot/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// onBatch runs when a photo collection has been quiet for the debounce window. It reads the
// photos, stages the extracted receipt and asks for confirmation.
// The session lock is taken only to change the mode, so updates for the chat are handled while
// the photos are read.
func (m *Machine) onBatch(ctx context.Context, batch intake.Batch) {
	logger := middleware.GetLoggerFromCtx(ctx)

	// A new batch always starts from idle.
	m.resetSession(batch.ChatID)

	statusID := batch.StatusMessageID
	setStatus := func(text string) {
		if statusID != 0 {
			if err := m.transport.EditMessage(ctx, batch.ChatID, statusID, text, nil); err == nil {
				return
			}
		}
		statusID = m.send(ctx, batch.ChatID, text, nil)
	}
	setStatus(fmt.Sprintf("🔍 Reading %d photo(s)...", len(batch.PhotoRefs)))

	images, refs := m.prepareImages(ctx, batch)
	if len(images) == 0 {
		logger.Warn("No usable photos in batch", slog.Int("photos", len(batch.PhotoRefs)))
		setStatus(msgNoPhotos)
		return
	}

	result, err := m.extractor.Extract(ctx, images)
	if err != nil {
		logger.Error("Receipt extraction failed", slog.String("error", err.Error()))
		setStatus(msgExtractionFailed)
		return
	}
	if !result.IsValid || !result.Total.IsPositive() {
		setStatus(msgNotAReceipt)
		return
	}

	occurredOn := m.clock.Now().UTC()
	if result.Date != nil && !result.Date.IsZero() {
		occurredOn = *result.Date
	}
	receipt := domain.PendingReceipt{
		ChatID:     batch.ChatID,
		Submitter:  batch.Submitter,
		Total:      result.Total.Round(2),
		Currency:   result.Currency,
		Items:      result.Items(),
		OccurredOn: occurredOn,
		PhotoRefs:  refs,
	}
	receipt.ReceiptID = m.pending.Stage(ctx, receipt)
	sess := m.sessions.Acquire(batch.ChatID)
	sess.Reset()
	sess.Enter(AwaitingAmountConfirmation{ReceiptID: receipt.ReceiptID})
	sess.Release()
	logger.Info("Receipt staged",
		slog.String("receipt_id", receipt.ReceiptID),
		slog.String("total", receipt.Total.String()),
		slog.Int("items", len(receipt.Items)))

	text := receiptPrompt(receipt, m.currency)
	kb := confirmKeyboard("rc:yes:"+receipt.ReceiptID, "rc:no:"+receipt.ReceiptID)
	if statusID != 0 {
		if err := m.transport.EditMessage(ctx, batch.ChatID, statusID, text, kb); err == nil {
			return
		}
	}
	m.send(ctx, batch.ChatID, text, kb)
}

func (m *Machine) resetSession(chatID int64) {
	sess := m.sessions.Acquire(chatID)
	defer sess.Release()
	sess.Reset()
}

// prepareImages downloads, normalises and archives the batch. Photos that fail are skipped.
func (m *Machine) prepareImages(ctx context.Context, batch intake.Batch) ([]domain.ReceiptImage, []string) {
	logger := middleware.GetLoggerFromCtx(ctx)
	batchID := uuid.NewString()
	images := make([]domain.ReceiptImage, 0, len(batch.PhotoRefs))
	refs := make([]string, 0, len(batch.PhotoRefs))

	for i, ref := range batch.PhotoRefs {
		data, err := m.transport.DownloadFile(ctx, ref)
		if err != nil {
			logger.Warn("Photo download failed", slog.Int("index", i), slog.String("error", err.Error()))
			continue
		}
		img, err := intake.NormalizeImage(data, m.maxImageDim)
		if err != nil {
			logger.Warn("Photo could not be decoded", slog.Int("index", i), slog.String("error", err.Error()))
			continue
		}
		images = append(images, img)

		key := fmt.Sprintf("receipts/%d/%s-%d.jpg", batch.ChatID, batchID, i)
		archived, err := m.archive.Store(ctx, key, img)
		if err != nil {
			logger.Warn("Photo archive failed", slog.String("key", key), slog.String("error", err.Error()))
			continue
		}
		if archived != "" {
			refs = append(refs, archived)
		}
	}
	return images, refs
}

func (m *Machine) confirmAmount(ctx context.Context, sess *Session, ev Event, mode AwaitingAmountConfirmation, text string) {
	if _, ok := m.pending.Get(mode.ReceiptID); !ok {
		sess.Reset()
		m.respond(ctx, ev, msgReceiptExpired, nil)
		return
	}

	var override *decimal.Decimal
	if !isYes(text) {
		amount, err := ParseAmount(text)
		if err != nil {
			m.respond(ctx, ev, "❌ "+apperrors.UserMessage(err, msgConfirmAmount)+"\n"+msgConfirmAmount, nil)
			return
		}
		override = &amount
	}
	m.askReceiptPayer(ctx, sess, ev, mode.ReceiptID, override)
}

func (m *Machine) askReceiptPayer(ctx context.Context, sess *Session, ev Event, receiptID string, override *decimal.Decimal) {
	sess.Enter(AwaitingPayer{ReceiptID: receiptID, Override: override})
	text := "💳 Who paid?"
	if override != nil {
		text = fmt.Sprintf("💳 Total set to %s. Who paid?", utils.FormatMoney(*override, m.currency))
	}
	m.respond(ctx, ev, text, payerKeyboard("rp", receiptID, m.services.Participants.All()))
}

func (m *Machine) receiptPayerText(ctx context.Context, sess *Session, ev Event, mode AwaitingPayer, text string, sender domain.Role) {
	payer, ok := m.parsePayer(text)
	if !ok {
		m.respond(ctx, ev, fmt.Sprintf("Please pick who paid: %s or %s.", m.name(domain.RoleA), m.name(domain.RoleB)),
			payerKeyboard("rp", mode.ReceiptID, m.services.Participants.All()))
		return
	}
	m.commitReceipt(ctx, sess, ev, mode.ReceiptID, mode.Override, payer, sender)
}

// commitReceipt consumes the staged receipt and commits it, one expense per item unless the
// total was overridden. Items left after a failure are staged again for a retry.
func (m *Machine) commitReceipt(ctx context.Context, sess *Session, ev Event, receiptID string, override *decimal.Decimal, payer, sender domain.Role) {
	receipt, ok := m.pending.Consume(ctx, receiptID)
	if !ok {
		sess.Reset()
		m.respond(ctx, ev, msgReceiptExpired, nil)
		return
	}

	items := receipt.Items
	if override != nil || len(items) == 0 {
		items = []domain.ReceiptItem{{Amount: receipt.Total, Merchant: receipt.Description(), Category: receipt.PrimaryCategory()}}
		if override != nil {
			items[0].Amount = *override
		}
	}

	occurredOn := receipt.OccurredOn
	results := make([]*portssvc.CommitResult, 0, len(items))
	for i, item := range items {
		description := item.Merchant
		if description == "" {
			description = receipt.Description()
		}
		result, err := m.services.Ledger.CommitExpense(ctx, portssvc.ExpenseInput{
			Payer:       payer,
			Amount:      item.Amount,
			Category:    item.Category,
			Description: description,
			OccurredOn:  &occurredOn,
			ReceiptRef:  receipt.ReceiptRef(),
			Actor:       ActorFor(sender),
		})
		if err != nil {
			m.retryRemaining(ctx, sess, ev, receipt, items[i:], results, err)
			return
		}
		results = append(results, result)
	}

	sess.Reset()
	m.respond(ctx, ev, committedText(results, m.name), nil)
}

func (m *Machine) retryRemaining(ctx context.Context, sess *Session, ev Event, receipt domain.PendingReceipt, remaining []domain.ReceiptItem, done []*portssvc.CommitResult, cause error) {
	middleware.GetLoggerFromCtx(ctx).Error("Receipt commit failed",
		slog.String("receipt_id", receipt.ReceiptID),
		slog.Int("committed", len(done)),
		slog.Int("remaining", len(remaining)),
		slog.String("error", cause.Error()))

	if apperrors.UserMessage(cause, "") != "" {
		// The ledger rejected the input itself; retrying the same items cannot succeed.
		sess.Reset()
		m.respond(ctx, ev, "❌ "+apperrors.UserMessage(cause, msgGenericFailure), nil)
		return
	}

	receipt.ReceiptID = ""
	receipt.Items = remaining
	receipt.Total = decimal.Zero
	for _, it := range remaining {
		receipt.Total = receipt.Total.Add(it.Amount)
	}
	id := m.pending.Stage(ctx, receipt)
	sess.Enter(AwaitingPayer{ReceiptID: id})

	text := fmt.Sprintf("❌ Saving failed after %d of %d item(s). Pick the payer again to retry the rest.", len(done), len(done)+len(remaining))
	if len(done) > 0 {
		text = committedText(done, m.name) + "\n\n" + text
	}
	m.respond(ctx, ev, text, payerKeyboard("rp", id, m.services.Participants.All()))
}
