package board

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"dpsmart-bot/internal/models"
)

// SQL fragments over the 15 occupant columns, built once from the
// position table so the column list cannot drift.
var (
	anyPositionCond  string
	emptyDonorCond   string
	openStatusValues = []models.BoardStatus{models.StatusWaiting, models.StatusActive}
)

func init() {
	occupied := make([]string, 0, len(models.AllPositions))
	for _, p := range models.AllPositions {
		occupied = append(occupied, p.Column()+" = ?")
	}
	anyPositionCond = strings.Join(occupied, " OR ")

	empty := make([]string, 0, len(models.DonorPositions))
	for _, p := range models.DonorPositions {
		empty = append(empty, p.Column()+" IS NULL")
	}
	emptyDonorCond = strings.Join(empty, " OR ")
}

func repeatArg(v interface{}, n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = v
	}
	return args
}

// GetByID returns (nil, nil) when the board does not exist.
func (s *Service) GetByID(boardID uint) (*models.Board, error) {
	return getByID(s.DB, boardID)
}

func getByID(db *gorm.DB, boardID uint) (*models.Board, error) {
	var b models.Board
	err := db.First(&b, boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query board %d: %w", boardID, err)
	}
	return &b, nil
}

// IsUserOnLevel scans every slot column of the active boards at level.
// One active slot per level per user, system-wide.
func (s *Service) IsUserOnLevel(tid int64, level int) (bool, error) {
	return isUserOnLevel(s.DB, tid, level)
}

func isUserOnLevel(db *gorm.DB, tid int64, level int) (bool, error) {
	var count int64
	err := db.Model(&models.Board{}).
		Where("level = ? AND active = ? AND status <> ?", level, true, models.StatusClosed).
		Where(anyPositionCond, repeatArg(tid, len(models.AllPositions))...).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to scan level %d for user %d: %w", level, tid, err)
	}
	return count > 0, nil
}

// ReceiverBoard finds the open board at level whose receiver is tid.
func (s *Service) ReceiverBoard(tid int64, level int) (*models.Board, error) {
	var b models.Board
	err := s.DB.
		Where("rec = ? AND level = ? AND active = ?", tid, level, true).
		Where("status IN ?", openStatusValues).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query receiver board for %d: %w", tid, err)
	}
	return &b, nil
}

// OpenBoard picks the spillover board at level: fullest first, oldest
// as tie-break, at least one empty donor slot.
func (s *Service) OpenBoard(level int) (*models.Board, error) {
	var b models.Board
	err := s.DB.
		Where("level = ? AND active = ?", level, true).
		Where("status IN ?", openStatusValues).
		Where(emptyDonorCond).
		Order("gifts_received DESC, created_at ASC").
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query open boards at level %d: %w", level, err)
	}
	return &b, nil
}

// CreateBoard creates a board with receiverTID at the top. parentID and
// splitSide record split lineage; both nil for genesis boards.
func (s *Service) CreateBoard(level int, receiverTID int64, parentID *uint, splitSide *models.Side) (*models.Board, error) {
	if !models.ValidLevel(level) {
		return nil, fmt.Errorf("invalid level %d", level)
	}
	b := models.Board{
		Level:    level,
		ParentID: parentID,
		Rec:      &receiverTID,
		Status:   models.StatusWaiting,
		Active:   true,
	}
	if splitSide != nil {
		side := string(*splitSide)
		b.SplitSide = &side
	}
	if err := s.DB.Create(&b).Error; err != nil {
		return nil, fmt.Errorf("failed to create board level=%d rec=%d: %w", level, receiverTID, err)
	}
	return &b, nil
}

// CreateGenesisBoard seeds a root board for an admin-chosen receiver.
func (s *Service) CreateGenesisBoard(level int, receiverTID int64) (*models.Board, error) {
	return s.CreateBoard(level, receiverTID, nil, nil)
}

// UserBoards lists boards where tid holds any slot, lowest level first,
// newest within a level.
func (s *Service) UserBoards(tid int64, activeOnly bool) ([]models.Board, error) {
	q := s.DB.Where(anyPositionCond, repeatArg(tid, len(models.AllPositions))...)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var boards []models.Board
	if err := q.Order("level ASC, created_at DESC").Find(&boards).Error; err != nil {
		return nil, fmt.Errorf("failed to list boards of %d: %w", tid, err)
	}
	return boards, nil
}

// ActiveBoardIDs lists every open board for the eviction sweep.
func (s *Service) ActiveBoardIDs() ([]uint, error) {
	var ids []uint
	err := s.DB.Model(&models.Board{}).
		Where("active = ? AND status <> ?", true, models.StatusClosed).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active boards: %w", err)
	}
	return ids, nil
}

// LevelStats are the per-level board counters for the admin surface.
type LevelStats struct {
	Level  int
	Name   string
	Active int64
	Closed int64
}

func (s *Service) StatsForLevel(level int) (LevelStats, error) {
	stats := LevelStats{Level: level, Name: models.LevelName(level)}
	err := s.DB.Model(&models.Board{}).
		Where("level = ? AND active = ?", level, true).
		Count(&stats.Active).Error
	if err != nil {
		return stats, fmt.Errorf("failed to count active boards at level %d: %w", level, err)
	}
	err = s.DB.Model(&models.Board{}).
		Where("level = ? AND status = ?", level, models.StatusClosed).
		Count(&stats.Closed).Error
	if err != nil {
		return stats, fmt.Errorf("failed to count closed boards at level %d: %w", level, err)
	}
	return stats, nil
}
