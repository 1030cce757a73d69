package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-affiliate-bot/internal/application"
	"telegram-affiliate-bot/internal/infra/logging"
	"telegram-affiliate-bot/internal/infra/metrics"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) (application.Reply, error)

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":     r.handleStartCommand,
		"help":      r.handleHelpCommand,
		"link":      r.handleLinkCommand,
		"merchants": r.handleMerchantsCommand,
	}
}

func menuCommands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "link", Description: "Get your personal link for a merchant"},
		{Command: "merchants", Description: "Browse merchants by miles per $1"},
		{Command: "help", Description: "How sharing works"},
	}
}

// handleMessage routes commands. In private chats plain text is treated as /link <text>.
func (r *RealTelegramBotAdapter) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil || message.Chat == nil {
		return nil
	}
	ctx = logging.WithTgID(ctx, message.From.ID)

	var (
		reply application.Reply
		err   error
	)
	switch {
	case message.IsCommand():
		handler, ok := r.commandRoutes()[message.Command()]
		if !ok {
			metrics.IncTelegramCommand("unknown")
			reply = r.facade.HandleHelp()
			break
		}
		metrics.IncTelegramCommand(message.Command())
		reply, err = handler(ctx, message)
	case message.Chat.IsPrivate() && message.Text != "":
		reply, err = r.facade.HandleLinkCommand(ctx, userFrom(message.From), message.Text)
	default:
		return nil
	}

	if err != nil {
		logging.With(ctx, r.log).Error().Err(err).Str("command", message.Command()).Msg("command failed")
		reply = r.facade.ErrorReply()
	}
	return r.sendReply(ctx, message.Chat.ID, reply)
}

func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) (application.Reply, error) {
	return r.facade.HandleStart(ctx, userFrom(message.From), message.CommandArguments())
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) (application.Reply, error) {
	return r.facade.HandleHelp(), nil
}

func (r *RealTelegramBotAdapter) handleLinkCommand(ctx context.Context, message *tgbotapi.Message) (application.Reply, error) {
	return r.facade.HandleLinkCommand(ctx, userFrom(message.From), message.CommandArguments())
}

func (r *RealTelegramBotAdapter) handleMerchantsCommand(ctx context.Context, message *tgbotapi.Message) (application.Reply, error) {
	return r.facade.HandleMerchants(ctx, 0)
}
