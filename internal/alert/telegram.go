package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const telegramTimeout = 10 * time.Second

// Sender delivers one rendered message. Implementations must be safe for
// use from a single dispatcher goroutine plus startup/shutdown notices.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// TelegramSender posts messages to the Bot API's sendMessage method.
// Retries are the dispatcher's job, so the HTTP client does none itself.
type TelegramSender struct {
	rest   *resty.Client
	chatID string
}

var _ Sender = (*TelegramSender)(nil)

func NewTelegramSender(token, chatID string) *TelegramSender {
	rest := resty.New().
		SetBaseURL("https://api.telegram.org/bot"+token).
		SetTimeout(telegramTimeout).
		SetHeader("User-Agent", "polymarket-whale-bot/1.0")
	return &TelegramSender{rest: rest, chatID: chatID}
}

type sendRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

func (s *TelegramSender) Send(ctx context.Context, text string) error {
	var out sendResponse
	resp, err := s.rest.R().
		SetContext(ctx).
		SetBody(sendRequest{
			ChatID:                s.chatID,
			Text:                  text,
			ParseMode:             "HTML",
			DisableWebPagePreview: true,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/sendMessage")
	if err != nil {
		return errors.Wrap(err, "telegram sendMessage")
	}
	if !out.OK {
		return fmt.Errorf("telegram sendMessage: status %d, code %d: %s",
			resp.StatusCode(), out.ErrorCode, out.Description)
	}
	return nil
}
