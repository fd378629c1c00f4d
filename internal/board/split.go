package board

import (
	"fmt"

	"gorm.io/gorm"

	"dpsmart-bot/internal/models"
)

// promotionSources lists, per side, the parent positions that seed the
// child board in child-slot order: creator, the 2 builders, the 4
// donors. The child receives them as receiver, creators and builders;
// its donor tier starts empty.
var promotionSources = map[models.Side][]models.Position{
	models.SideLeft: {
		models.PosCreatorLeft,
		models.PosBuilderL1, models.PosBuilderL2,
		models.PosDonorL1, models.PosDonorL2, models.PosDonorL3, models.PosDonorL4,
	},
	models.SideRight: {
		models.PosCreatorRight,
		models.PosBuilderR3, models.PosBuilderR4,
		models.PosDonorR5, models.PosDonorR6, models.PosDonorR7, models.PosDonorR8,
	},
}

var promotionTargets = []models.Position{
	models.PosReceiver,
	models.PosCreatorLeft, models.PosCreatorRight,
	models.PosBuilderL1, models.PosBuilderL2, models.PosBuilderR3, models.PosBuilderR4,
}

// Split detaches a split-ready side into a new board one tier up:
// Creator becomes Receiver, Builders become Creators, Donors become
// Builders. The detached side of the parent is cleared for fresh
// donors, and the parent closes once all 8 lifetime gifts are in and
// both sides are gone. Everything happens in one transaction; a
// concurrent mutation of the side rolls the whole split back with
// ErrConflict.
func (s *Service) Split(boardID uint, side models.Side) (*models.Board, Reason, error) {
	if !side.Valid() {
		return nil, ReasonInvalidSide, nil
	}

	var (
		child  *models.Board
		reason Reason
	)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		parent, err := getByID(tx, boardID)
		if err != nil {
			return err
		}
		if parent == nil {
			reason = ReasonBoardNotFound
			return nil
		}
		if parent.IsClosed() {
			reason = ReasonBoardClosed
			return nil
		}
		if !parent.CanSplit(side) {
			reason = ReasonNotSplitReady
			return nil
		}

		sideStr := string(side)
		newBoard := models.Board{
			Level:     parent.Level,
			ParentID:  &parent.ID,
			SplitSide: &sideStr,
			Status:    models.StatusWaiting,
			Active:    true,
		}
		sources := promotionSources[side]
		for i, target := range promotionTargets {
			newBoard.SetOccupant(target, parent.Occupant(sources[i]))
		}
		if err := tx.Create(&newBoard).Error; err != nil {
			return fmt.Errorf("failed to create split board from %d/%s: %w", boardID, side, err)
		}

		// Clear the detached side, guarded on the 4 paid flags and the
		// creator still being in place so two splits of the same side
		// cannot both apply.
		clears := make(map[string]interface{}, 15)
		for _, p := range sources {
			clears[p.Column()] = nil
			if p.IsDonor() {
				clears[p.PaidColumn()] = false
				clears[p.DeadlineColumn()] = nil
			}
		}
		guard := tx.Model(&models.Board{}).
			Where("id = ?", boardID).
			Where(sources[0].Column()+" = ?", *parent.Occupant(sources[0]))
		for _, p := range models.SideDonorPositions(side) {
			guard = guard.Where(p.PaidColumn()+" = ?", true)
		}
		res := guard.Updates(clears)
		if res.Error != nil {
			return fmt.Errorf("failed to clear %s side of board %d: %w", side, boardID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		updated, err := getByID(tx, boardID)
		if err != nil {
			return err
		}
		if updated.IsComplete() {
			closedAt := s.Now()
			res := tx.Model(&models.Board{}).
				Where("id = ?", boardID).
				Updates(map[string]interface{}{
					"status":    models.StatusClosed,
					"active":    false,
					"closed_at": closedAt,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to close board %d: %w", boardID, res.Error)
			}
		}

		child = &newBoard
		reason = ReasonOK
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return child, reason, nil
}
