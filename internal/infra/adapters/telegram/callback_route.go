package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/infra/logging"
	"telegram-affiliate-bot/internal/infra/metrics"
)

// handleCallback decodes the button payload and dispatches on its kind.
// The callback is always answered so the client stops its spinner.
func (r *RealTelegramBotAdapter) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query.From == nil {
		return errors.New("callback without sender")
	}
	ctx = logging.WithTgID(ctx, query.From.ID)

	payload, err := model.DecodeCallback(query.Data)
	if err != nil {
		r.answerCallback(query.ID, "", "")
		return fmt.Errorf("decode callback: %w", err)
	}

	switch p := payload.(type) {
	case model.GeneratePayload:
		return r.handleGenerateCallback(ctx, query, p)
	case model.MerchantsPagePayload:
		return r.handleMerchantsCallback(ctx, query, p)
	default:
		r.answerCallback(query.ID, "", "")
		return fmt.Errorf("unhandled callback kind %s", payload.Kind())
	}
}

// handleGenerateCallback delivers the viewer's own link in a private chat. Viewers
// who never started the bot are sent to it through a start deep link instead.
func (r *RealTelegramBotAdapter) handleGenerateCallback(ctx context.Context, query *tgbotapi.CallbackQuery, p model.GeneratePayload) error {
	viewer := userFrom(query.From)

	reply, err := r.facade.HandleGenerate(ctx, viewer, p)
	if err != nil {
		r.answerCallback(query.ID, r.tr.T("error_generic"), "")
		return err
	}

	sendErr := r.sendReply(ctx, viewer.TelegramID, reply)
	if sendErr == nil {
		r.answerCallback(query.ID, r.tr.T("callback_sent_private"), "")
		return nil
	}
	if !isUnreachable(sendErr) {
		r.answerCallback(query.ID, r.tr.T("error_generic"), "")
		return sendErr
	}

	link, err := startLink(r.facade.BotUsername(), p)
	if err != nil {
		r.answerCallback(query.ID, r.tr.T("callback_open_bot"), "")
		return err
	}
	logging.With(ctx, r.log).Debug().Msg("viewer has no private chat, sending start link")
	r.answerCallback(query.ID, "", link)
	return nil
}

// handleMerchantsCallback edits the catalogue message in place to show another page.
func (r *RealTelegramBotAdapter) handleMerchantsCallback(ctx context.Context, query *tgbotapi.CallbackQuery, p model.MerchantsPagePayload) error {
	defer r.answerCallback(query.ID, "", "")

	reply, err := r.facade.HandleMerchants(ctx, p.Page)
	if err != nil {
		return err
	}
	if query.Message == nil || query.Message.Chat == nil {
		return r.sendReply(ctx, query.From.ID, reply)
	}

	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, reply.Text)
	edit.ParseMode = parseModeHTML
	if reply.Buttons != nil {
		if markup, ok := toMarkup(*reply.Buttons); ok {
			edit.ReplyMarkup = &markup
		}
	}
	if _, err := r.bot.Request(edit); err != nil {
		metrics.IncTelegramSendFailure("editMessageText")
		return err
	}
	return nil
}

func (r *RealTelegramBotAdapter) answerCallback(id, text, url string) {
	cb := tgbotapi.NewCallback(id, text)
	cb.URL = url
	if _, err := r.bot.Request(cb); err != nil {
		metrics.IncTelegramSendFailure("answerCallbackQuery")
		r.log.Debug().Err(err).Msg("answer callback failed")
	}
}

// isUnreachable reports errors Telegram returns when the bot may not message the user first.
func isUnreachable(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 403 || apiErr.Code == 400
	}
	return false
}

// startLink builds t.me/<bot>?start=<payload>, which answerCallbackQuery may open.
func startLink(botUsername string, p model.GeneratePayload) (string, error) {
	if botUsername == "" {
		return "", errors.New("bot username unknown")
	}
	arg, err := model.EncodeStartPayload(p)
	if err != nil {
		return "", err
	}
	return "https://t.me/" + botUsername + "?start=" + arg, nil
}
