package board

import (
	"fmt"

	"gorm.io/gorm"

	"dpsmart-bot/internal/models"
)

// ConfirmPayment marks the donor slot held by donorTID as paid and
// increments the gift counter, guarded so a double confirm can never
// double-count. Returns the new gift total and the side that became
// split-ready, if any; invoking the split is the caller's decision.
func (s *Service) ConfirmPayment(boardID uint, donorTID int64) (int, models.Side, Reason, error) {
	var (
		gifts     int
		readySide models.Side
		reason    Reason
	)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		b, err := getByID(tx, boardID)
		if err != nil {
			return err
		}
		if b == nil {
			reason = ReasonBoardNotFound
			return nil
		}
		pos, ok := b.DonorPosition(donorTID)
		if !ok {
			reason = ReasonNotADonor
			return nil
		}
		if b.DonorPaid(pos) {
			reason = ReasonAlreadyConfirmed
			return nil
		}

		res := tx.Model(&models.Board{}).
			Where("id = ?", boardID).
			Where(pos.Column()+" = ? AND "+pos.PaidColumn()+" = ?", donorTID, false).
			Updates(map[string]interface{}{
				pos.PaidColumn(): true,
				"gifts_received": gorm.Expr("gifts_received + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to confirm payment on board %d slot %s: %w", boardID, pos, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		gift := models.Gift{
			BoardID:    boardID,
			DonorID:    donorTID,
			ReceiverID: b.Rec,
			Level:      b.Level,
			Amount:     b.GiftAmount(),
			Slot:       pos.String(),
		}
		if err := tx.Create(&gift).Error; err != nil {
			return fmt.Errorf("failed to record gift on board %d: %w", boardID, err)
		}

		updated, err := getByID(tx, boardID)
		if err != nil {
			return err
		}
		gifts = updated.GiftsReceived
		if side, ok := updated.SplitReadySide(); ok {
			readySide = side
		}
		reason = ReasonOK
		return nil
	})
	if err != nil {
		return 0, "", "", err
	}
	return gifts, readySide, reason, nil
}
