package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"telegram-affiliate-bot/internal/domain"
)

// CallbackDelimiter separates the tag and fields of an encoded callback payload.
const CallbackDelimiter = "|"

// MaxCallbackDataLen is Telegram's limit for callback_data and start parameters.
const MaxCallbackDataLen = 64

type CallbackKind string

const (
	CallbackGenerate  CallbackKind = "generate"
	CallbackMerchants CallbackKind = "merchants"
)

// CallbackPayload is the closed set of actions a bot button can carry.
type CallbackPayload interface {
	Kind() CallbackKind
	fields() []string
}

// GeneratePayload asks the bot to build a personal link for whoever pressed the button.
// OriginalUserID is the user who shared the message the button belongs to.
type GeneratePayload struct {
	MerchantSlug   string
	OriginalUserID int64
}

func (GeneratePayload) Kind() CallbackKind { return CallbackGenerate }
func (p GeneratePayload) fields() []string {
	return []string{p.MerchantSlug, strconv.FormatInt(p.OriginalUserID, 10)}
}

// MerchantsPagePayload pages through the merchant catalogue.
type MerchantsPagePayload struct {
	Page int
}

func (MerchantsPagePayload) Kind() CallbackKind { return CallbackMerchants }
func (p MerchantsPagePayload) fields() []string { return []string{strconv.Itoa(p.Page)} }

// EncodeCallback serialises p as "<kind>|<field>|...".
func EncodeCallback(p CallbackPayload) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: nil callback payload", domain.ErrInvalidInput)
	}
	parts := append([]string{string(p.Kind())}, p.fields()...)
	for _, f := range parts {
		if f == "" {
			return "", fmt.Errorf("%w: empty field in %s payload", domain.ErrInvalidInput, p.Kind())
		}
		if strings.Contains(f, CallbackDelimiter) {
			return "", fmt.Errorf("%w: field %q contains delimiter", domain.ErrInvalidInput, f)
		}
	}
	data := strings.Join(parts, CallbackDelimiter)
	if len(data) > MaxCallbackDataLen {
		return "", fmt.Errorf("%w: callback data is %d bytes", domain.ErrInvalidInput, len(data))
	}
	return data, nil
}

// DecodeCallback is the inverse of EncodeCallback.
func DecodeCallback(data string) (CallbackPayload, error) {
	parts := strings.Split(strings.TrimSpace(data), CallbackDelimiter)
	switch CallbackKind(parts[0]) {
	case CallbackGenerate:
		if len(parts) != 3 || parts[1] == "" {
			return nil, fmt.Errorf("%w: malformed generate payload %q", domain.ErrInvalidInput, data)
		}
		uid, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || uid <= 0 {
			return nil, fmt.Errorf("%w: bad user id in %q", domain.ErrInvalidInput, data)
		}
		return GeneratePayload{MerchantSlug: parts[1], OriginalUserID: uid}, nil
	case CallbackMerchants:
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: malformed merchants payload %q", domain.ErrInvalidInput, data)
		}
		page, err := strconv.Atoi(parts[1])
		if err != nil || page < 0 {
			return nil, fmt.Errorf("%w: bad page in %q", domain.ErrInvalidInput, data)
		}
		return MerchantsPagePayload{Page: page}, nil
	default:
		return nil, fmt.Errorf("%w: unknown callback %q", domain.ErrInvalidInput, data)
	}
}

const startGeneratePrefix = "g_"

var startParamRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// EncodeStartPayload renders p as a /start deep-link parameter: g_<user>_<slug>.
func EncodeStartPayload(p GeneratePayload) (string, error) {
	if p.OriginalUserID <= 0 || p.MerchantSlug == "" {
		return "", fmt.Errorf("%w: incomplete start payload", domain.ErrInvalidInput)
	}
	s := startGeneratePrefix + strconv.FormatInt(p.OriginalUserID, 10) + "_" + p.MerchantSlug
	if len(s) > MaxCallbackDataLen || !startParamRe.MatchString(s) {
		return "", fmt.Errorf("%w: slug %q cannot be used in a start link", domain.ErrInvalidInput, p.MerchantSlug)
	}
	return s, nil
}

// DecodeStartPayload parses a parameter produced by EncodeStartPayload.
func DecodeStartPayload(s string) (GeneratePayload, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, startGeneratePrefix) {
		return GeneratePayload{}, fmt.Errorf("%w: unknown start payload %q", domain.ErrInvalidInput, s)
	}
	rest := strings.SplitN(strings.TrimPrefix(s, startGeneratePrefix), "_", 2)
	if len(rest) != 2 || rest[1] == "" {
		return GeneratePayload{}, fmt.Errorf("%w: malformed start payload %q", domain.ErrInvalidInput, s)
	}
	uid, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil || uid <= 0 {
		return GeneratePayload{}, fmt.Errorf("%w: bad user id in %q", domain.ErrInvalidInput, s)
	}
	return GeneratePayload{MerchantSlug: rest[1], OriginalUserID: uid}, nil
}
