// File: internal/domain/ports/adapter/telegram.go
package adapter

import (
	"context"

	"telegram-affiliate-bot/internal/domain/model"
)

// InlineResult is one entry of an inline query answer: the delivery tuple of
// title, description, message text and button layout.
type InlineResult struct {
	ID          string
	Title       string
	Description string
	MessageText string
	Buttons     model.ButtonLayout
}

type SendMessageParams struct {
	ChatID    int64
	Text      string
	ParseMode string
	Buttons   *model.ButtonLayout
}

// TelegramBotAdapter is the delivery sink.
type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, params SendMessageParams) error
	AnswerInline(ctx context.Context, queryID string, results []InlineResult) error
	SetMenuCommands(ctx context.Context) error
}
