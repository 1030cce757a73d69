package usecase

import (
	"context"

	"telegram-affiliate-bot/internal/domain"
	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ LinkUseCase = (*linkUC)(nil)

// GenerateRequest asks for a personal link for User. OriginalUserID is set when
// the request came from someone else's shared message.
type GenerateRequest struct {
	User           model.User
	MerchantSlug   string
	Source         model.LinkSource
	OriginalUserID int64
}

// LinkResult is everything needed to deliver a personal link.
type LinkResult struct {
	Composition model.LinkComposition
	Message     string
	Buttons     model.ButtonLayout
	// Viral is true when the link was generated from another user's share.
	Viral bool
}

type LinkUseCase interface {
	// Generate resolves the merchant by slug and composes a link for req.User.
	// Returns domain.ErrMerchantNotFound for unknown slugs.
	Generate(ctx context.Context, req GenerateRequest) (*LinkResult, error)
	// Compose builds the link for an already resolved merchant and records it.
	Compose(ctx context.Context, user model.User, m model.Merchant, source model.LinkSource) (*LinkResult, error)
	// Preview builds the same result as Compose without recording a generation.
	// Inline answers use it; nothing is delivered until the user picks a result.
	Preview(ctx context.Context, user model.User, m model.Merchant) (*LinkResult, error)
}

type linkUC struct {
	merchants MerchantUseCase
	composer  *LinkComposer
	recorder  InteractionRecorder
	log       *zerolog.Logger
}

func NewLinkUseCase(merchants MerchantUseCase, composer *LinkComposer, recorder InteractionRecorder, logger *zerolog.Logger) *linkUC {
	return &linkUC{merchants: merchants, composer: composer, recorder: recorder, log: logger}
}

func (u *linkUC) Generate(ctx context.Context, req GenerateRequest) (*LinkResult, error) {
	defer logging.TraceDuration(u.log, "LinkUC.Generate")()
	if req.User.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	m, err := u.merchants.GetBySlug(ctx, req.MerchantSlug)
	if err != nil {
		return nil, err
	}
	res, err := u.Compose(ctx, req.User, *m, req.Source)
	if err != nil {
		return nil, err
	}

	// pressing your own share button is not a viral interaction
	if req.OriginalUserID > 0 && req.OriginalUserID != req.User.TelegramID {
		res.Viral = true
		u.recorder.RecordViral(model.ViralInteraction{
			OriginalUserID: req.OriginalUserID,
			ViralUserID:    req.User.TelegramID,
			MerchantSlug:   m.Slug,
		})
	}
	return res, nil
}

func (u *linkUC) Compose(ctx context.Context, user model.User, m model.Merchant, source model.LinkSource) (*LinkResult, error) {
	res, err := u.Preview(ctx, user, m)
	if err != nil {
		return nil, err
	}
	u.recorder.RecordLinkGeneration(model.LinkGeneration{
		TrackingID:   res.Composition.TrackingID,
		UserID:       user.TelegramID,
		MerchantSlug: m.Slug,
		TrackedURL:   res.Composition.TrackedURL,
		Source:       source,
	})
	return res, nil
}

func (u *linkUC) Preview(ctx context.Context, user model.User, m model.Merchant) (*LinkResult, error) {
	comp := u.composer.ComposeLink(user.TelegramID, m)
	buttons, err := u.composer.ComposeButtons(m, comp, user.TelegramID)
	if err != nil {
		logging.With(ctx, u.log).Error().Err(err).Str("slug", m.Slug).Msg("cannot build buttons for merchant")
		return nil, err
	}
	return &LinkResult{
		Composition: comp,
		Message:     u.composer.ComposeMessage(user.DisplayName(), m, comp),
		Buttons:     buttons,
	}, nil
}
