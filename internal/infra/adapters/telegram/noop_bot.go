package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-affiliate-bot/internal/domain/ports/adapter"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter implements adapter.TelegramBotAdapter for local/dev testing.
// It logs messages instead of sending real Telegram messages.
type NoopBotAdapter struct {
	log *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	l := logger.With().Str("component", "noop-telegram").Logger()
	return &NoopBotAdapter{log: &l}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, params adapter.SendMessageParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev := b.log.Info().Int64("chat_id", params.ChatID).Str("text", params.Text)
	if params.Buttons != nil {
		ev = ev.Interface("buttons", params.Buttons.Rows)
	}
	ev.Msg("send message")
	return nil
}

func (b *NoopBotAdapter) AnswerInline(ctx context.Context, queryID string, results []adapter.InlineResult) error {
	b.log.Info().Str("inline_query_id", queryID).Int("results", len(results)).Msg("answer inline query")
	return nil
}

func (b *NoopBotAdapter) SetMenuCommands(ctx context.Context) error {
	b.log.Info().Msg("set menu commands")
	return nil
}
