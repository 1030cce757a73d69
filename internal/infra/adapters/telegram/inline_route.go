package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-affiliate-bot/internal/infra/logging"
)

// handleInlineQuery answers "@bot <term>" with one personal link per matching merchant.
func (r *RealTelegramBotAdapter) handleInlineQuery(ctx context.Context, q *tgbotapi.InlineQuery) error {
	if q.From == nil {
		return nil
	}
	ctx = logging.WithTgID(ctx, q.From.ID)
	ctx = logging.WithInlineQueryID(ctx, q.ID)

	results := r.facade.HandleInlineQuery(ctx, userFrom(q.From), q.Query)
	return r.AnswerInline(ctx, q.ID, results)
}

// handleChosenInlineResult records the link the user actually sent from an inline answer.
func (r *RealTelegramBotAdapter) handleChosenInlineResult(ctx context.Context, res *tgbotapi.ChosenInlineResult) error {
	if res.From == nil {
		return nil
	}
	ctx = logging.WithTgID(ctx, res.From.ID)
	return r.facade.HandleChosenInline(ctx, userFrom(res.From), res.ResultID)
}
