package notify

import (
	"bytes"
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
)

// TelegramAPI is the part of *bot.Bot the sender uses.
type TelegramAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
}

// Telegram captions are capped at 1024 characters.
const maxCaptionLength = 1024

// TelegramSender posts messages to one chat.
type TelegramSender struct {
	api    TelegramAPI
	chatID string
}

// NewTelegramSender creates a bot client for token. The token is not
// verified until the first delivery.
func NewTelegramSender(token, chatID string, opts ...bot.Option) (*TelegramSender, error) {
	if token == "" || chatID == "" {
		return nil, errors.New(errors.ErrCodeMissingCredentials, "telegram token and chat id are required")
	}

	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create telegram bot", err)
	}

	return NewTelegramSenderWithAPI(b, chatID), nil
}

func NewTelegramSenderWithAPI(api TelegramAPI, chatID string) *TelegramSender {
	return &TelegramSender{api: api, chatID: chatID}
}

func (t *TelegramSender) Name() string {
	return "telegram"
}

// Deliver sends a photo with the text as caption when an image is attached
// and the text fits, and a plain message otherwise.
func (t *TelegramSender) Deliver(ctx context.Context, msg Message) error {
	if len(msg.Image) == 0 {
		return t.sendText(ctx, msg.Text)
	}

	name := msg.ImageName
	if name == "" {
		name = "chart.png"
	}

	params := &bot.SendPhotoParams{
		ChatID: t.chatID,
		Photo:  &models.InputFileUpload{Filename: name, Data: bytes.NewReader(msg.Image)},
	}

	long := len(msg.Text) > maxCaptionLength
	if !long {
		params.Caption = msg.Text
	}

	if _, err := t.api.SendPhoto(ctx, params); err != nil {
		return err
	}

	if long {
		return t.sendText(ctx, msg.Text)
	}

	return nil
}

func (t *TelegramSender) sendText(ctx context.Context, text string) error {
	_, err := t.api.SendMessage(ctx, &bot.SendMessageParams{ChatID: t.chatID, Text: text})

	return err
}
