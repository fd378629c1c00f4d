package models

import (
	"time"
)

// Gift is the audit record of one confirmed donor payment. Boards are
// reshaped on split, so this log is the durable history of who gifted
// whom at which level.
type Gift struct {
	ID         uint   `gorm:"primaryKey"`
	BoardID    uint   `gorm:"not null;index"`
	DonorID    int64  `gorm:"not null;index"`
	ReceiverID *int64 `gorm:"index"`
	Level      int    `gorm:"not null"`
	Amount     int    `gorm:"not null"`
	Slot       string `gorm:"size:8"`
	CreatedAt  time.Time
}
