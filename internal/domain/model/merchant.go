package model

import (
	"math"
	"strings"
	"time"

	"telegram-affiliate-bot/internal/domain"
)

// UserIDPlaceholder is substituted with the Telegram user id in link templates.
const UserIDPlaceholder = "{{USER_ID}}"

// placeholderForms also covers the token after a round trip through a URL
// encoder, which happens to templates exported from some affiliate dashboards.
var placeholderForms = []string{UserIDPlaceholder, "%7B%7BUSER_ID%7D%7D", "%7b%7bUSER_ID%7d%7d"}

// Merchant is reference data loaded by the importer. The bot never mutates it.
type Merchant struct {
	Slug         string    `json:"slug"`
	DisplayName  string    `json:"display_name"`
	LinkTemplate string    `json:"link_template"`
	BaseRate     float64   `json:"base_rate"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewMerchant validates and constructs a merchant.
func NewMerchant(slug, displayName, linkTemplate string, baseRate float64) (*Merchant, error) {
	slug = strings.TrimSpace(slug)
	displayName = strings.TrimSpace(displayName)
	linkTemplate = strings.TrimSpace(linkTemplate)
	if slug == "" || displayName == "" || linkTemplate == "" {
		return nil, domain.ErrInvalidArgument
	}
	if strings.Contains(slug, CallbackDelimiter) {
		return nil, domain.ErrInvalidArgument
	}
	if math.IsNaN(baseRate) || math.IsInf(baseRate, 0) || baseRate <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Merchant{
		Slug:         slug,
		DisplayName:  displayName,
		LinkTemplate: linkTemplate,
		BaseRate:     baseRate,
		UpdatedAt:    time.Now(),
	}, nil
}

func (m *Merchant) IsZero() bool { return m == nil || m.Slug == "" }

// HasPlaceholder reports whether the template carries the user id token.
func (m *Merchant) HasPlaceholder() bool {
	for _, tok := range placeholderForms {
		if strings.Contains(m.LinkTemplate, tok) {
			return true
		}
	}
	return false
}

// SubstituteUserID replaces every placeholder occurrence in template with userID.
func SubstituteUserID(template, userID string) string {
	for _, tok := range placeholderForms {
		template = strings.ReplaceAll(template, tok, userID)
	}
	return template
}

// SearchCandidate is a merchant scored against a search term.
type SearchCandidate struct {
	Merchant
	MatchScore float64 `json:"match_score"`
}

// LinkComposition is the result of building a tracked link for one user.
type LinkComposition struct {
	TrackedURL string
	TrackingID string
	Merchant   Merchant
}
