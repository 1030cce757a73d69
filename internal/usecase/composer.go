package usecase

import (
	"fmt"
	"html"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"telegram-affiliate-bot/internal/config"
	"telegram-affiliate-bot/internal/domain/model"

	"github.com/oklog/ulid/v2"
)

// Translator is the message copy source (i18n.Translator in production).
type Translator interface {
	T(key string, args ...interface{}) string
}

// LinkComposer builds tracked links, the share message and its buttons.
// It is safe for concurrent use.
type LinkComposer struct {
	cfg config.LinkConfig
	tr  Translator
	now func() time.Time
}

func NewLinkComposer(cfg config.LinkConfig, tr Translator) *LinkComposer {
	return &LinkComposer{cfg: cfg, tr: tr, now: time.Now}
}

// ComposeLink substitutes userID into the merchant template and appends the
// attribution parameters. Only TrackingID differs between two calls with the same input.
func (c *LinkComposer) ComposeLink(userID int64, m model.Merchant) model.LinkComposition {
	uid := strconv.FormatInt(userID, 10)
	raw := model.SubstituteUserID(m.LinkTemplate, uid)

	base, fragment := raw, ""
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		base, fragment = raw[:i], raw[i:]
	}

	var b strings.Builder
	b.WriteString(base)
	switch {
	case strings.HasSuffix(base, "?"), strings.HasSuffix(base, "&"):
	case strings.Contains(base, "?"):
		b.WriteByte('&')
	default:
		b.WriteByte('?')
	}
	params := [][2]string{
		{"utm_source", c.cfg.UTMSource},
		{"utm_medium", c.cfg.UTMMedium},
		{"utm_campaign", c.cfg.UTMCampaign},
		{"utm_content", m.Slug},
		{"utm_term", "user_" + uid},
		{"ref", c.cfg.RefPrefix + uid},
	}
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	b.WriteString(fragment)

	id := ulid.MustNew(ulid.Timestamp(c.now()), ulid.DefaultEntropy())
	return model.LinkComposition{
		TrackedURL: b.String(),
		TrackingID: fmt.Sprintf("%s_%s_%s_%s", c.cfg.TrackingPrefix, uid, m.Slug, id.String()),
		Merchant:   m,
	}
}

// ComposeMessage renders the HTML share message. The tracked URL travels in the buttons, not the text.
func (c *LinkComposer) ComposeMessage(displayName string, m model.Merchant, _ model.LinkComposition) string {
	spend, earned := WorkedExample(m.BaseRate)
	name := html.EscapeString(m.DisplayName)
	return c.tr.T("link_message",
		html.EscapeString(displayName),
		name,
		FormatRate(m.BaseRate),
		name,
		spend,
		earned,
		c.tr.T("button_generate"),
	)
}

// ComposeButtons returns the shop button and the viral "get my own link" button.
func (c *LinkComposer) ComposeButtons(m model.Merchant, comp model.LinkComposition, userID int64) (model.ButtonLayout, error) {
	data, err := model.EncodeCallback(model.GeneratePayload{MerchantSlug: m.Slug, OriginalUserID: userID})
	if err != nil {
		return model.ButtonLayout{}, err
	}
	return model.ButtonLayout{Rows: [][]model.Button{
		{{Text: c.tr.T("button_shop", m.DisplayName), URL: comp.TrackedURL}},
		{{Text: c.tr.T("button_generate"), Data: data}},
	}}, nil
}

// WorkedExample picks a spend amount for the message: 100 for rates of 5 and up, 200 otherwise.
func WorkedExample(rate float64) (spend, earned int) {
	spend = 200
	if rate >= 5 {
		spend = 100
	}
	return spend, int(math.Round(float64(spend) * rate))
}

// FormatRate prints a rate without trailing zeros (6.5, 2, 1.25).
func FormatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}
