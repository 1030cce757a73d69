package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-affiliate-bot/internal/application"
	"telegram-affiliate-bot/internal/config"
	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/adapter"
	"telegram-affiliate-bot/internal/infra/logging"
	"telegram-affiliate-bot/internal/infra/metrics"
	"telegram-affiliate-bot/internal/usecase"
)

const parseModeHTML = "HTML"

var (
	_ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)
	_ BotClient                  = (*tgbotapi.BotAPI)(nil)
)

// BotClient is the part of *tgbotapi.BotAPI the adapter calls.
type BotClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// RealTelegramBotAdapter polls updates with tgbotapi and delegates to BotFacade.
type RealTelegramBotAdapter struct {
	bot    BotClient
	cfg    config.BotConfig
	facade *application.BotFacade
	tr     usecase.Translator
	log    *zerolog.Logger

	updateWorkers int
	cancelPolling context.CancelFunc
}

// Connect authenticates the token and returns the client. The bot username
// is available as bot.Self.UserName afterwards.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	return bot, nil
}

func NewRealTelegramBotAdapter(bot BotClient, cfg config.BotConfig, facade *application.BotFacade, tr usecase.Translator, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if bot == nil {
		return nil, errors.New("bot client is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	l := logger.With().Str("component", "telegram").Logger()
	return &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		facade:        facade,
		tr:            tr,
		log:           &l,
		updateWorkers: workers,
	}, nil
}

// StartPolling fans updates out to the update workers and blocks until ctx is done.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	// chosen_inline_result also needs inline feedback enabled in BotFather
	u.AllowedUpdates = []string{"message", "inline_query", "chosen_inline_result", "callback_query"}
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					if err := r.handleUpdate(ctx, up); err != nil {
						r.log.Error().Err(err).Int("worker", id).Int("update_id", up.UpdateID).Msg("update handling failed")
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	ctx = logging.WithTraceID(ctx, uuid.NewString())
	switch {
	case update.InlineQuery != nil:
		metrics.IncTelegramUpdate("inline_query")
		return r.handleInlineQuery(ctx, update.InlineQuery)
	case update.ChosenInlineResult != nil:
		metrics.IncTelegramUpdate("chosen_inline_result")
		return r.handleChosenInlineResult(ctx, update.ChosenInlineResult)
	case update.CallbackQuery != nil:
		metrics.IncTelegramUpdate("callback_query")
		return r.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		metrics.IncTelegramUpdate("message")
		return r.handleMessage(ctx, update.Message)
	default:
		metrics.IncTelegramUpdate("other")
		return nil
	}
}

// SendMessage implements the adapter port. HTML is the default parse mode.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, params adapter.SendMessageParams) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	msg := tgbotapi.NewMessage(params.ChatID, params.Text)
	msg.ParseMode = params.ParseMode
	if msg.ParseMode == "" {
		msg.ParseMode = parseModeHTML
	}
	msg.DisableWebPagePreview = true
	if params.Buttons != nil {
		if markup, ok := toMarkup(*params.Buttons); ok {
			msg.ReplyMarkup = markup
		}
	}
	if _, err := r.bot.Send(msg); err != nil {
		metrics.IncTelegramSendFailure("sendMessage")
		return err
	}
	return nil
}

// AnswerInline implements the adapter port. Results are personal, so caching is per user.
func (r *RealTelegramBotAdapter) AnswerInline(ctx context.Context, queryID string, results []adapter.InlineResult) error {
	conf := tgbotapi.InlineConfig{
		InlineQueryID: queryID,
		Results:       toInlineArticles(results),
		CacheTime:     r.cfg.InlineCacheSeconds,
		IsPersonal:    true,
	}
	if _, err := r.bot.Request(conf); err != nil {
		metrics.IncTelegramSendFailure("answerInlineQuery")
		return err
	}
	return nil
}

// SetMenuCommands publishes the command list shown in Telegram clients.
func (r *RealTelegramBotAdapter) SetMenuCommands(ctx context.Context) error {
	cmds := tgbotapi.NewSetMyCommands(menuCommands()...)
	if _, err := r.bot.Request(cmds); err != nil {
		metrics.IncTelegramSendFailure("setMyCommands")
		return err
	}
	return nil
}

func (r *RealTelegramBotAdapter) sendReply(ctx context.Context, chatID int64, reply application.Reply) error {
	return r.SendMessage(ctx, adapter.SendMessageParams{
		ChatID:    chatID,
		Text:      reply.Text,
		ParseMode: parseModeHTML,
		Buttons:   reply.Buttons,
	})
}

// toMarkup converts a layout into an inline keyboard. Buttons with neither URL
// nor data are dropped; ok is false when nothing is left.
func toMarkup(layout model.ButtonLayout) (tgbotapi.InlineKeyboardMarkup, bool) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(layout.Rows))
	for _, row := range layout.Rows {
		kbRow := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			}
		}
		if len(kbRow) > 0 {
			rows = append(rows, kbRow)
		}
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func toInlineArticles(results []adapter.InlineResult) []interface{} {
	out := make([]interface{}, 0, len(results))
	for _, res := range results {
		article := tgbotapi.NewInlineQueryResultArticleHTML(res.ID, res.Title, res.MessageText)
		article.Description = res.Description
		if content, ok := article.InputMessageContent.(tgbotapi.InputTextMessageContent); ok {
			content.DisableWebPagePreview = true
			article.InputMessageContent = content
		}
		if markup, ok := toMarkup(res.Buttons); ok {
			article.ReplyMarkup = &markup
		}
		out = append(out, article)
	}
	return out
}

func userFrom(u *tgbotapi.User) model.User {
	if u == nil {
		return model.User{}
	}
	return model.User{
		TelegramID:   u.ID,
		Username:     u.UserName,
		FirstName:    u.FirstName,
		LanguageCode: u.LanguageCode,
	}
}
