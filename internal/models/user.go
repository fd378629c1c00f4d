package models

import (
	"fmt"
	"time"
)

// Activity and ban windows.
const (
	GlobalActivityDuration = 30 * 24 * time.Hour // extended per referral
	HeartbeatDuration      = 48 * time.Hour      // "I'm here" button
	BanDurationFirst       = 72 * time.Hour
	BanDurationSecond      = 144 * time.Hour
	BanDurationThird       = 288 * time.Hour
)

type User struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID int64  `gorm:"uniqueIndex;not null"`
	Username   string `gorm:"size:255"`
	FullName   string `gorm:"size:255"`

	// Mentor chain: Telegram ID of the referrer, set once at creation.
	MentorID      *int64 `gorm:"index"`
	ReferralCode  string `gorm:"size:64;uniqueIndex"`
	ReferralCount int    `gorm:"default:0"`

	IsAdmin bool `gorm:"default:false"`

	// Moderation: Blocked is terminal, BanUntil is temporary and its
	// duration escalates with ViolationCount.
	Blocked        bool `gorm:"default:false"`
	BanUntil       *time.Time
	ViolationCount int `gorm:"default:0"`

	GlobalActiveUntil *time.Time
	HeartbeatUntil    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName is what the bot shows for this user.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("User %d", u.TelegramID)
}

func (u *User) IsGloballyActive(now time.Time) bool {
	return u.GlobalActiveUntil != nil && now.Before(*u.GlobalActiveUntil)
}

func (u *User) IsHeartbeatActive(now time.Time) bool {
	return u.HeartbeatUntil != nil && now.Before(*u.HeartbeatUntil)
}

// IsDormant: either activity window has lapsed.
func (u *User) IsDormant(now time.Time) bool {
	return !u.IsGloballyActive(now) || !u.IsHeartbeatActive(now)
}

func (u *User) IsBanned(now time.Time) bool {
	return u.BanUntil != nil && now.Before(*u.BanUntil)
}

// CanParticipate reports whether the user may hold a slot.
func (u *User) CanParticipate(now time.Time) bool {
	return !u.IsDormant(now) && !u.IsBanned(now) && !u.Blocked
}

func (u *User) BanRemainingHours(now time.Time) int {
	if u.BanUntil == nil {
		return 0
	}
	remaining := u.BanUntil.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining / time.Hour)
}

func (u *User) GlobalActivityRemainingDays(now time.Time) int {
	if u.GlobalActiveUntil == nil {
		return 0
	}
	remaining := u.GlobalActiveUntil.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining / (24 * time.Hour))
}

func (u *User) HeartbeatRemainingHours(now time.Time) int {
	if u.HeartbeatUntil == nil {
		return 0
	}
	remaining := u.HeartbeatUntil.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining / time.Hour)
}
