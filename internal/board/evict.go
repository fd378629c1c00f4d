package board

import (
	"fmt"

	"gorm.io/gorm"

	"dpsmart-bot/internal/models"
)

// ExpiredDonor is an unpaid donor slot whose payment deadline passed.
type ExpiredDonor struct {
	Position   models.Position
	TelegramID int64
}

// ExpiredDonors lists eviction candidates on one board.
func (s *Service) ExpiredDonors(boardID uint) ([]ExpiredDonor, error) {
	b, err := s.GetByID(boardID)
	if err != nil || b == nil {
		return nil, err
	}
	now := s.Now()
	var expired []ExpiredDonor
	for _, p := range models.DonorPositions {
		occ := b.Occupant(p)
		deadline := b.DonorDeadline(p)
		if occ != nil && deadline != nil && !b.DonorPaid(p) && now.After(*deadline) {
			expired = append(expired, ExpiredDonor{Position: p, TelegramID: *occ})
		}
	}
	return expired, nil
}

// EvictDonor force-clears an expired slot and bans the evicted user.
// Re-running after the slot was cleared (or paid in the meantime) is a
// no-op, which keeps the sweep idempotent. Returns the evicted Telegram
// ID and the applied ban hours, both zero on a no-op.
func (s *Service) EvictDonor(boardID uint, pos models.Position, applyBan bool) (int64, int, error) {
	if !pos.IsDonor() {
		return 0, 0, fmt.Errorf("position %s is not a donor slot", pos)
	}

	var evicted int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		b, err := getByID(tx, boardID)
		if err != nil {
			return err
		}
		if b == nil {
			return nil
		}
		occ := b.Occupant(pos)
		if occ == nil || b.DonorPaid(pos) {
			return nil
		}

		res := tx.Model(&models.Board{}).
			Where("id = ?", boardID).
			Where(pos.Column()+" = ? AND "+pos.PaidColumn()+" = ?", *occ, false).
			Updates(map[string]interface{}{
				pos.Column():         nil,
				pos.DeadlineColumn(): nil,
				pos.PaidColumn():     false,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to evict donor from board %d slot %s: %w", boardID, pos, res.Error)
		}
		if res.RowsAffected == 0 {
			// Paid or released between the read and the write.
			return nil
		}
		evicted = *occ
		return nil
	})
	if err != nil || evicted == 0 {
		return 0, 0, err
	}

	hours := 0
	if applyBan {
		hours, err = s.Users.ApplyBan(evicted)
		if err != nil {
			return evicted, 0, err
		}
	}
	return evicted, hours, nil
}
