package model

import "time"

// LinkSource tells where a link generation was triggered from.
type LinkSource string

const (
	LinkSourceInline   LinkSource = "inline"
	LinkSourceCallback LinkSource = "callback"
	LinkSourceCommand  LinkSource = "command"
	LinkSourceAdmin    LinkSource = "admin"
)

// SearchEvent is one inline search. MerchantSlug holds the top result, empty when nothing matched.
type SearchEvent struct {
	ID           string
	UserID       int64
	MerchantSlug string
	SearchTerm   string
	ResultCount  int
	CreatedAt    time.Time
}

// LinkGeneration records a composed tracking link.
type LinkGeneration struct {
	ID           string
	TrackingID   string
	UserID       int64
	MerchantSlug string
	TrackedURL   string
	Source       LinkSource
	CreatedAt    time.Time
}

// ViralInteraction records a viewer generating their own link from a shared message.
type ViralInteraction struct {
	ID             string
	OriginalUserID int64
	ViralUserID    int64
	MerchantSlug   string
	CreatedAt      time.Time
}

// MerchantStat aggregates link generations for one merchant.
type MerchantStat struct {
	MerchantSlug string `json:"merchant_slug"`
	Links        int    `json:"links"`
	ViralLinks   int    `json:"viral_links"`
}

// InteractionTotals is the analytics summary for a time window.
type InteractionTotals struct {
	Since             time.Time      `json:"since"`
	Users             int            `json:"users"`
	Searches          int            `json:"searches"`
	ZeroResultSearch  int            `json:"zero_result_searches"`
	LinksGenerated    int            `json:"links_generated"`
	ViralInteractions int            `json:"viral_interactions"`
	TopMerchants      []MerchantStat `json:"top_merchants"`
}
