package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-affiliate-bot/internal/domain"
	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/repository"
	"telegram-affiliate-bot/internal/infra/logging"
)

// DefaultCountry is the market the bot serves.
const DefaultCountry = "SG"

const (
	importLockKey = "lock:merchant_import"
	importLockTTL = 2 * time.Minute
)

// wrapperKeys are the top-level keys an affiliation export may nest its list under.
var wrapperKeys = []string{"data", "items", "merchants", "results"}

// ExtractedMerchant is one usable record of an affiliation export. BaseMPD keeps
// the raw value so re-exported files stay faithful to the source.
type ExtractedMerchant struct {
	BaseMPD      any    `json:"base_mpd"`
	MerchantName string `json:"merchantName"`
	MerchantSlug string `json:"merchant_slug"`
	TrackingLink string `json:"trackingLink"`
}

// ExtractAffiliations reads an affiliation export and keeps the records of
// country that carry a base rate. An empty country keeps every record.
// Entries that are not objects are skipped.
func ExtractAffiliations(data []byte, country string) ([]ExtractedMerchant, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: parse affiliation file: %v", domain.ErrInvalidInput, err)
	}

	var items []any
	switch v := root.(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
		for _, k := range wrapperKeys {
			if list, ok := v[k].([]any); ok {
				items = list
				break
			}
		}
	default:
		return nil, fmt.Errorf("%w: unsupported JSON structure in affiliation file", domain.ErrInvalidInput)
	}

	out := make([]ExtractedMerchant, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if country != "" && obj["country_filter"] != country {
			continue
		}
		if !isPresent(obj["base_mpd"]) {
			continue
		}
		out = append(out, ExtractedMerchant{
			BaseMPD:      obj["base_mpd"],
			MerchantName: asString(obj["merchantName"]),
			MerchantSlug: asString(obj["merchant_slug"]),
			TrackingLink: asString(obj["trackingLink"]),
		})
	}
	return out, nil
}

func isPresent(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		s = strings.ToLower(strings.TrimSpace(s))
		return s != "" && s != "null"
	}
	return true
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// ToMerchant validates the record into a merchant.
func (e ExtractedMerchant) ToMerchant() (*model.Merchant, error) {
	rate, err := parseRate(e.BaseMPD)
	if err != nil {
		return nil, err
	}
	m, err := model.NewMerchant(e.MerchantSlug, e.MerchantName, e.TrackingLink, rate)
	if err != nil {
		return nil, fmt.Errorf("merchant %q: %w", e.MerchantSlug, err)
	}
	return m, nil
}

func parseRate(v any) (float64, error) {
	switch r := v.(type) {
	case json.Number:
		return r.Float64()
	case float64:
		return r, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: base_mpd %q is not a number", domain.ErrInvalidArgument, r)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: base_mpd has type %T", domain.ErrInvalidArgument, v)
	}
}

// Locker guards imports against concurrent runs.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// SkippedRecord explains why a record was not imported.
type SkippedRecord struct {
	Slug   string `json:"slug"`
	Reason string `json:"reason"`
}

type ImportReport struct {
	Read          int             `json:"read"`
	Imported      int             `json:"imported"`
	NoPlaceholder []string        `json:"no_placeholder,omitempty"`
	Skipped       []SkippedRecord `json:"skipped,omitempty"`
	DryRun        bool            `json:"dry_run"`
}

// MerchantImporter loads extracted records into the merchant repository.
type MerchantImporter struct {
	merchants repository.MerchantRepository
	tm        repository.TransactionManager
	locker    Locker
	log       *zerolog.Logger
}

// NewMerchantImporter wires the importer. locker may be nil for single-process use.
func NewMerchantImporter(merchants repository.MerchantRepository, tm repository.TransactionManager, locker Locker, logger *zerolog.Logger) *MerchantImporter {
	return &MerchantImporter{merchants: merchants, tm: tm, locker: locker, log: logger}
}

// Import validates records and upserts the valid ones in a single transaction.
// Invalid records are reported, not fatal. With dryRun nothing is written.
func (im *MerchantImporter) Import(ctx context.Context, records []ExtractedMerchant, dryRun bool) (*ImportReport, error) {
	defer logging.TraceDuration(im.log, "MerchantImporter.Import")()

	rep := &ImportReport{Read: len(records), DryRun: dryRun}
	valid := make([]*model.Merchant, 0, len(records))
	for _, rec := range records {
		m, err := rec.ToMerchant()
		if err != nil {
			rep.Skipped = append(rep.Skipped, SkippedRecord{Slug: rec.MerchantSlug, Reason: err.Error()})
			continue
		}
		if !m.HasPlaceholder() {
			rep.NoPlaceholder = append(rep.NoPlaceholder, m.Slug)
		}
		valid = append(valid, m)
	}
	if dryRun || len(valid) == 0 {
		return rep, nil
	}

	if im.locker != nil {
		token, err := im.locker.TryLock(ctx, importLockKey, importLockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLocked) {
				return nil, fmt.Errorf("another import is running: %w", err)
			}
			return nil, fmt.Errorf("acquire import lock: %w", err)
		}
		defer func() {
			if err := im.locker.Unlock(context.WithoutCancel(ctx), importLockKey, token); err != nil {
				im.log.Warn().Err(err).Msg("release import lock")
			}
		}()
	}

	err := im.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, m := range valid {
			if err := im.merchants.Upsert(ctx, tx, m); err != nil {
				return fmt.Errorf("import %s: %w", m.Slug, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	rep.Imported = len(valid)
	im.log.Info().Int("read", rep.Read).Int("imported", rep.Imported).Int("skipped", len(rep.Skipped)).Msg("merchant import finished")
	return rep, nil
}
