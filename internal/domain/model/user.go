package model

import (
	"time"

	"telegram-affiliate-bot/internal/domain"
)

// User is a Telegram user that interacted with the bot at least once.
// TelegramID is the only identity the bot relies on.
type User struct {
	TelegramID   int64
	Username     string
	FirstName    string
	LanguageCode string
	FirstSeenAt  time.Time
	LastSeenAt   time.Time
}

func NewUser(tgID int64, username, firstName, languageCode string) (*User, error) {
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		TelegramID:   tgID,
		Username:     username,
		FirstName:    firstName,
		LanguageCode: languageCode,
		FirstSeenAt:  now,
		LastSeenAt:   now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.TelegramID == 0 }
func (u *User) Touch()       { u.LastSeenAt = time.Now() }

// DisplayName is how the bot addresses the user in messages.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return "there"
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	default:
		return "there"
	}
}
