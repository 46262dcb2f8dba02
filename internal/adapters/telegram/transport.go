// Package telegram connects the conversation machine to the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/apperrors"
	"github.com/SscSPs/shared_expense_bot/internal/core/ports/gateways"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxDownloadBytes = 20 << 20

// botAPI is the subset of *tgbotapi.BotAPI the transport uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Transport implements gateways.ChatTransport.
type Transport struct {
	bot        botAPI
	httpClient *http.Client
}

var _ gateways.ChatTransport = (*Transport)(nil)

// NewTransport wraps an authenticated bot.
func NewTransport(bot *tgbotapi.BotAPI) *Transport {
	return newTransport(bot, &http.Client{Timeout: 30 * time.Second})
}

func newTransport(bot botAPI, httpClient *http.Client) *Transport {
	return &Transport{bot: bot, httpClient: httpClient}
}

func toMarkup(keyboard gateways.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(keyboard) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// SendMessage posts text with an optional inline keyboard.
func (t *Transport) SendMessage(_ context.Context, chatID int64, text string, keyboard gateways.Keyboard) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup := toMarkup(keyboard); markup != nil {
		msg.ReplyMarkup = *markup
	}
	sent, err := t.bot.Send(msg)
	if err != nil {
		return 0, apperrors.External("failed to send message", err)
	}
	return sent.MessageID, nil
}

// EditMessage replaces the text and keyboard of a message. An edit that changes nothing is not an error.
func (t *Transport) EditMessage(_ context.Context, chatID int64, messageID int, text string, keyboard gateways.Keyboard) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = toMarkup(keyboard)
	if _, err := t.bot.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return apperrors.External("failed to edit message", err)
	}
	return nil
}

// DeleteMessage removes a message.
func (t *Transport) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	if _, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return apperrors.External("failed to delete message", err)
	}
	return nil
}

// AnswerCallback stops the button spinner, optionally showing text.
func (t *Transport) AnswerCallback(_ context.Context, callbackID string, text string) error {
	if _, err := t.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return apperrors.External("failed to answer callback", err)
	}
	return nil
}

// DownloadFile resolves a file id and fetches its content.
func (t *Transport) DownloadFile(ctx context.Context, fileRef string) ([]byte, error) {
	url, err := t.bot.GetFileDirectURL(fileRef)
	if err != nil {
		return nil, apperrors.External("failed to resolve file "+fileRef, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.External("failed to build download request", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.External("failed to download file "+fileRef, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.External("failed to download file "+fileRef, fmt.Errorf("unexpected status %s", resp.Status))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, apperrors.External("failed to read file "+fileRef, err)
	}
	return data, nil
}
