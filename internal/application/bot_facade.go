package application

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"telegram-affiliate-bot/internal/config"
	"telegram-affiliate-bot/internal/domain"
	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/adapter"
	"telegram-affiliate-bot/internal/infra/logging"
	"telegram-affiliate-bot/internal/infra/metrics"
	"telegram-affiliate-bot/internal/usecase"

	"github.com/rs/zerolog"
)

// inlineResultPrefix marks inline result ids that carry a merchant slug.
const inlineResultPrefix = "m_"

// Reply is a chat message ready to be sent in HTML parse mode.
type Reply struct {
	Text    string
	Buttons *model.ButtonLayout
}

// BotFacade composes usecases into transport-agnostic bot answers.
// The Telegram adapter only renders what it returns.
type BotFacade struct {
	merchants MerchantUseCaseIface
	links     LinkUseCaseIface
	recorder  RecorderIface
	tr        usecase.Translator

	search      config.SearchConfig
	botUsername string
	dev         bool
	log         *zerolog.Logger
}

// NewBotFacade wires the facade. botUsername is resolved once at startup.
func NewBotFacade(
	merchants MerchantUseCaseIface,
	links LinkUseCaseIface,
	recorder RecorderIface,
	tr usecase.Translator,
	search config.SearchConfig,
	botUsername string,
	dev bool,
	logger *zerolog.Logger,
) *BotFacade {
	return &BotFacade{
		merchants:   merchants,
		links:       links,
		recorder:    recorder,
		tr:          tr,
		search:      search,
		botUsername: botUsername,
		dev:         dev,
		log:         logger,
	}
}

func (b *BotFacade) BotUsername() string { return b.botUsername }

// HandleInlineQuery searches merchants for term and returns one personal link
// result per match. Failures are turned into a single retry result.
func (b *BotFacade) HandleInlineQuery(ctx context.Context, user model.User, term string) []adapter.InlineResult {
	log := logging.With(ctx, b.log)
	b.recorder.TouchUser(user)
	term = strings.TrimSpace(term)

	cands, err := b.merchants.Search(ctx, term, b.search.DisplayLimit)
	if err != nil {
		log.Error().Err(err).Str("term", logging.Redact(term, b.dev)).Msg("inline search failed")
		return []adapter.InlineResult{b.retryResult()}
	}

	ev := model.SearchEvent{UserID: user.TelegramID, SearchTerm: term, ResultCount: len(cands)}
	if len(cands) > 0 {
		ev.MerchantSlug = cands[0].Slug
	}
	b.recorder.RecordSearch(ev)
	metrics.ObserveInlineQuery(term == "", len(cands))

	if len(cands) == 0 {
		return []adapter.InlineResult{b.noResults(ctx, term)}
	}

	results := make([]adapter.InlineResult, 0, len(cands))
	for _, c := range cands {
		res, err := b.links.Preview(ctx, user, c.Merchant)
		if err != nil {
			log.Warn().Err(err).Str("slug", c.Slug).Msg("skipping merchant in inline answer")
			continue
		}
		results = append(results, adapter.InlineResult{
			ID:          inlineResultPrefix + c.Slug,
			Title:       c.DisplayName,
			Description: b.tr.T("inline_description", usecase.FormatRate(c.BaseRate)),
			MessageText: res.Message,
			Buttons:     res.Buttons,
		})
	}
	if len(results) == 0 {
		return []adapter.InlineResult{b.retryResult()}
	}
	return results
}

// HandleChosenInline records the link generation for the inline result the
// user actually sent. Fallback results carry no merchant and are ignored.
func (b *BotFacade) HandleChosenInline(ctx context.Context, user model.User, resultID string) error {
	slug, ok := strings.CutPrefix(resultID, inlineResultPrefix)
	if !ok || slug == "" {
		return nil
	}
	_, err := b.links.Generate(ctx, usecase.GenerateRequest{
		User:         user,
		MerchantSlug: slug,
		Source:       model.LinkSourceInline,
	})
	if errors.Is(err, domain.ErrMerchantNotFound) {
		logging.With(ctx, b.log).Debug().Str("slug", slug).Msg("chosen merchant no longer exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("record chosen inline result: %w", err)
	}
	metrics.IncLinkGenerated(string(model.LinkSourceInline))
	return nil
}

// HandleGenerate builds a personal link for viewer from someone's shared message.
// An unknown merchant yields the not-found fallback instead of an error.
func (b *BotFacade) HandleGenerate(ctx context.Context, viewer model.User, p model.GeneratePayload) (Reply, error) {
	b.recorder.TouchUser(viewer)
	res, err := b.links.Generate(ctx, usecase.GenerateRequest{
		User:           viewer,
		MerchantSlug:   p.MerchantSlug,
		Source:         model.LinkSourceCallback,
		OriginalUserID: p.OriginalUserID,
	})
	if errors.Is(err, domain.ErrMerchantNotFound) {
		return b.notFound(ctx, p.MerchantSlug), nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("generate link: %w", err)
	}
	metrics.IncLinkGenerated(string(model.LinkSourceCallback))
	if res.Viral {
		metrics.IncViralInteraction()
	}
	return linkReply(res), nil
}

// HandleStart greets the user, or finishes a generate request that was bounced
// through a t.me deep link.
func (b *BotFacade) HandleStart(ctx context.Context, user model.User, startArg string) (Reply, error) {
	if startArg = strings.TrimSpace(startArg); startArg != "" {
		p, err := model.DecodeStartPayload(startArg)
		if err == nil {
			return b.HandleGenerate(ctx, user, p)
		}
		logging.With(ctx, b.log).Debug().Err(err).Msg("ignoring start parameter")
	}
	b.recorder.TouchUser(user)
	return Reply{Text: b.tr.T("welcome_message", html.EscapeString(user.DisplayName()), b.botUsername)}, nil
}

// HandleLinkCommand answers "/link <merchant>" with a personal link.
func (b *BotFacade) HandleLinkCommand(ctx context.Context, user model.User, query string) (Reply, error) {
	b.recorder.TouchUser(user)
	query = strings.TrimSpace(query)
	if query == "" {
		return Reply{Text: b.tr.T("usage_link")}, nil
	}
	m, err := b.merchants.Resolve(ctx, query)
	if errors.Is(err, domain.ErrMerchantNotFound) {
		return b.notFound(ctx, query), nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("resolve merchant: %w", err)
	}
	res, err := b.links.Compose(ctx, user, *m, model.LinkSourceCommand)
	if err != nil {
		return Reply{}, fmt.Errorf("compose link: %w", err)
	}
	metrics.IncLinkGenerated(string(model.LinkSourceCommand))
	return linkReply(res), nil
}

// HandleMerchants renders one page of the catalogue, highest rate first.
// Out of range pages are clamped.
func (b *BotFacade) HandleMerchants(ctx context.Context, page int) (Reply, error) {
	all, err := b.merchants.List(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("list merchants: %w", err)
	}
	if len(all) == 0 {
		return Reply{Text: b.tr.T("merchants_empty")}, nil
	}

	size := b.search.PageSize
	if size <= 0 {
		size = 8
	}
	pages := (len(all) + size - 1) / size
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}
	end := (page + 1) * size
	if end > len(all) {
		end = len(all)
	}

	var sb strings.Builder
	sb.WriteString(b.tr.T("merchants_header", page+1, pages))
	for _, m := range all[page*size : end] {
		sb.WriteString("\n")
		sb.WriteString(b.tr.T("merchants_line", html.EscapeString(m.DisplayName), usecase.FormatRate(m.BaseRate)))
	}

	var nav []model.Button
	if page > 0 {
		if data, err := model.EncodeCallback(model.MerchantsPagePayload{Page: page - 1}); err == nil {
			nav = append(nav, model.Button{Text: b.tr.T("button_prev"), Data: data})
		}
	}
	if page < pages-1 {
		if data, err := model.EncodeCallback(model.MerchantsPagePayload{Page: page + 1}); err == nil {
			nav = append(nav, model.Button{Text: b.tr.T("button_next"), Data: data})
		}
	}
	reply := Reply{Text: sb.String()}
	if len(nav) > 0 {
		reply.Buttons = &model.ButtonLayout{Rows: [][]model.Button{nav}}
	}
	return reply, nil
}

func (b *BotFacade) HandleHelp() Reply {
	return Reply{Text: b.tr.T("help_message", b.botUsername)}
}

// ErrorReply is the generic retry copy for collaborator failures.
func (b *BotFacade) ErrorReply() Reply {
	return Reply{Text: b.tr.T("error_generic")}
}

func (b *BotFacade) notFound(ctx context.Context, term string) Reply {
	examples, err := b.merchants.Examples(ctx, b.search.Examples)
	if err != nil {
		logging.With(ctx, b.log).Warn().Err(err).Msg("cannot load example merchants")
	}
	lines := make([]string, 0, len(examples))
	for _, m := range examples {
		lines = append(lines, b.tr.T("not_found_line", html.EscapeString(m.DisplayName), usecase.FormatRate(m.BaseRate)))
	}
	return Reply{Text: b.tr.T("not_found_message", html.EscapeString(term), strings.Join(lines, "\n"))}
}

func (b *BotFacade) noResults(ctx context.Context, term string) adapter.InlineResult {
	fallback := b.notFound(ctx, term)
	return adapter.InlineResult{
		ID:          "none",
		Title:       b.tr.T("inline_no_results_title", term),
		Description: b.tr.T("inline_no_results_description"),
		MessageText: fallback.Text,
	}
}

func (b *BotFacade) retryResult() adapter.InlineResult {
	return adapter.InlineResult{
		ID:          "retry",
		Title:       b.tr.T("inline_retry_title"),
		Description: b.tr.T("inline_retry_description"),
		MessageText: b.tr.T("error_generic"),
	}
}

func linkReply(res *usecase.LinkResult) Reply {
	buttons := res.Buttons
	return Reply{Text: res.Message, Buttons: &buttons}
}
