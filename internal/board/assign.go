package board

import (
	"fmt"

	"gorm.io/gorm"

	"dpsmart-bot/internal/models"
)

// ClaimSlot seats tid on an empty donor slot of the board. Side choice
// prefers the side with fewer empty slots so split-readiness arrives
// sooner. All validations run inside the transaction and the decisive
// write re-checks that the slot is still empty; a lost race returns
// ErrConflict with nothing applied.
func (s *Service) ClaimSlot(boardID uint, tid int64) (models.Position, Reason, error) {
	var (
		position models.Position
		reason   Reason
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
		if b.IsClosed() {
			reason = ReasonBoardClosed
			return nil
		}
		if b.HasUser(tid) {
			reason = ReasonAlreadyOnBoard
			return nil
		}
		// Placement and claim are separate calls, so level uniqueness is
		// re-checked here rather than trusted from the earlier read.
		onLevel, err := isUserOnLevel(tx, tid, b.Level)
		if err != nil {
			return err
		}
		if onLevel {
			reason = ReasonAlreadyOnLevel
			return nil
		}

		preferred := models.SideRight
		if b.EmptyDonorSlots(models.SideLeft) <= b.EmptyDonorSlots(models.SideRight) {
			preferred = models.SideLeft
		}
		pos, ok := b.FirstEmptyDonorSlot(preferred)
		if !ok {
			pos, ok = b.FirstEmptyDonorSlot(preferred.Other())
		}
		if !ok {
			reason = ReasonNoSlots
			return nil
		}

		deadline := s.Now().Add(models.PaymentTimeout)
		res := tx.Model(&models.Board{}).
			Where("id = ? AND active = ? AND status <> ?", boardID, true, models.StatusClosed).
			Where(pos.Column() + " IS NULL").
			Updates(map[string]interface{}{
				pos.Column():         tid,
				pos.DeadlineColumn(): deadline,
				pos.PaidColumn():     false,
				// First donor claim flips Waiting to Active; later claims
				// write the same value.
				"status": models.StatusActive,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to claim slot %s on board %d: %w", pos, boardID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		position = pos
		reason = ReasonOK
		return nil
	})
	if err != nil {
		return 0, "", err
	}
	return position, reason, nil
}

// ReleaseSlot lets a donor leave voluntarily while the slot is unpaid.
func (s *Service) ReleaseSlot(boardID uint, tid int64) (Reason, error) {
	var reason Reason
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		b, err := getByID(tx, boardID)
		if err != nil {
			return err
		}
		if b == nil {
			reason = ReasonBoardNotFound
			return nil
		}
		pos, ok := b.DonorPosition(tid)
		if !ok {
			reason = ReasonNotADonor
			return nil
		}
		if b.DonorPaid(pos) {
			reason = ReasonAlreadyPaid
			return nil
		}

		res := tx.Model(&models.Board{}).
			Where("id = ?", boardID).
			Where(pos.Column()+" = ? AND "+pos.PaidColumn()+" = ?", tid, false).
			Updates(map[string]interface{}{
				pos.Column():         nil,
				pos.DeadlineColumn(): nil,
				pos.PaidColumn():     false,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to release slot %s on board %d: %w", pos, boardID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		reason = ReasonOK
		return nil
	})
	if err != nil {
		return "", err
	}
	return reason, nil
}
