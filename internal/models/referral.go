package models

import (
	"time"
)

// ReferralEvent records one referral registration: InvitedID joined with
// MentorID's link. Written once, never updated.
type ReferralEvent struct {
	ID        uint  `gorm:"primaryKey"`
	MentorID  int64 `gorm:"not null;index"`
	InvitedID int64 `gorm:"not null;index"`
	CreatedAt time.Time
}
