package board

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"dpsmart-bot/internal/users"
)

// Reason is the typed outcome of a board operation. Validation and
// policy rejections are reasons, not errors; storage failures are
// returned as errors and ErrConflict signals a lost race.
type Reason string

const (
	ReasonOK Reason = "OK"

	// Placement / claim rejections.
	ReasonInvalidLevel   Reason = "INVALID_LEVEL"
	ReasonUserNotFound   Reason = "USER_NOT_FOUND"
	ReasonUserBlocked    Reason = "USER_BLOCKED"
	ReasonAlreadyOnLevel Reason = "USER_ALREADY_ON_LEVEL"
	ReasonBoardNotFound  Reason = "BOARD_NOT_FOUND"
	ReasonBoardClosed    Reason = "BOARD_CLOSED"
	ReasonAlreadyOnBoard Reason = "ALREADY_ON_BOARD"
	ReasonNoSlots        Reason = "NO_SLOTS"

	// Placement outcomes.
	ReasonMentorBoard Reason = "MENTOR_CHAIN"
	ReasonSpillover   Reason = "GLOBAL_SPILLOVER"
	ReasonNoBoards    Reason = "NO_BOARDS_AVAILABLE"

	// Release / confirm / split rejections.
	ReasonNotADonor        Reason = "NOT_A_DONOR"
	ReasonAlreadyPaid      Reason = "ALREADY_PAID"
	ReasonAlreadyConfirmed Reason = "ALREADY_CONFIRMED"
	ReasonNotSplitReady    Reason = "NOT_SPLIT_READY"
	ReasonInvalidSide      Reason = "INVALID_SIDE"
)

// ErrConflict means the guarded update lost a race and nothing was
// applied. The caller should re-query and retry.
var ErrConflict = errors.New("board: concurrent update conflict")

// UplineSearchDepth bounds the mentor-chain walk during placement.
const UplineSearchDepth = 100

// Service owns board placement, slot assignment, payment confirmation,
// splitting and deadline eviction.
type Service struct {
	DB    *gorm.DB
	Users *users.Service

	// Now is the wall-clock source, replaceable in tests.
	Now func() time.Time
}

func NewService(db *gorm.DB, userService *users.Service) *Service {
	return &Service{DB: db, Users: userService, Now: time.Now}
}
