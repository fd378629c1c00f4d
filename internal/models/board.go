package models

import (
	"time"
)

// BoardStatus is the board lifecycle state.
type BoardStatus string

const (
	StatusWaiting BoardStatus = "waiting" // no donor has claimed yet
	StatusActive  BoardStatus = "active"  // gifts in progress
	StatusClosed  BoardStatus = "closed"  // all 8 gifts delivered, terminal
)

// Side of the board. Each side has 1 creator, 2 builders and 4 donors.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

func (s Side) Valid() bool { return s == SideLeft || s == SideRight }

func (s Side) Other() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// Position indexes the 15 board slots: 1 receiver, 2 creators,
// 4 builders, 8 donors.
type Position int

const (
	PosReceiver Position = iota
	PosCreatorLeft
	PosCreatorRight
	PosBuilderL1
	PosBuilderL2
	PosBuilderR3
	PosBuilderR4
	PosDonorL1
	PosDonorL2
	PosDonorL3
	PosDonorL4
	PosDonorR5
	PosDonorR6
	PosDonorR7
	PosDonorR8
)

// AllPositions in fixed board order.
var AllPositions = []Position{
	PosReceiver,
	PosCreatorLeft, PosCreatorRight,
	PosBuilderL1, PosBuilderL2, PosBuilderR3, PosBuilderR4,
	PosDonorL1, PosDonorL2, PosDonorL3, PosDonorL4,
	PosDonorR5, PosDonorR6, PosDonorR7, PosDonorR8,
}

// DonorPositions in intra-side claim order, left side first.
var DonorPositions = []Position{
	PosDonorL1, PosDonorL2, PosDonorL3, PosDonorL4,
	PosDonorR5, PosDonorR6, PosDonorR7, PosDonorR8,
}

var (
	LeftDonorPositions  = []Position{PosDonorL1, PosDonorL2, PosDonorL3, PosDonorL4}
	RightDonorPositions = []Position{PosDonorR5, PosDonorR6, PosDonorR7, PosDonorR8}
)

var positionColumns = map[Position]string{
	PosReceiver:     "rec",
	PosCreatorLeft:  "crl",
	PosCreatorRight: "crr",
	PosBuilderL1:    "stl1",
	PosBuilderL2:    "stl2",
	PosBuilderR3:    "str3",
	PosBuilderR4:    "str4",
	PosDonorL1:      "dl1",
	PosDonorL2:      "dl2",
	PosDonorL3:      "dl3",
	PosDonorL4:      "dl4",
	PosDonorR5:      "dr5",
	PosDonorR6:      "dr6",
	PosDonorR7:      "dr7",
	PosDonorR8:      "dr8",
}

// Column is the database column holding this position's occupant.
func (p Position) Column() string { return positionColumns[p] }

// PaidColumn and DeadlineColumn exist for donor positions only.
func (p Position) PaidColumn() string     { return positionColumns[p] + "_paid" }
func (p Position) DeadlineColumn() string { return positionColumns[p] + "_deadline" }

func (p Position) String() string { return positionColumns[p] }

func (p Position) IsDonor() bool { return p >= PosDonorL1 && p <= PosDonorR8 }

// Side of the position. The receiver belongs to neither side.
func (p Position) Side() Side {
	switch p {
	case PosCreatorLeft, PosBuilderL1, PosBuilderL2,
		PosDonorL1, PosDonorL2, PosDonorL3, PosDonorL4:
		return SideLeft
	case PosCreatorRight, PosBuilderR3, PosBuilderR4,
		PosDonorR5, PosDonorR6, PosDonorR7, PosDonorR8:
		return SideRight
	}
	return ""
}

func SideDonorPositions(side Side) []Position {
	if side == SideLeft {
		return LeftDonorPositions
	}
	return RightDonorPositions
}

// PositionByColumn resolves a column name back to a Position.
func PositionByColumn(col string) (Position, bool) {
	for p, c := range positionColumns {
		if c == col {
			return p, true
		}
	}
	return 0, false
}

// Board is one 15-slot gift matrix. Occupants are Telegram IDs; the
// column names mirror the historical schema (rec, crl, dl1, ...).
type Board struct {
	ID    uint `gorm:"primaryKey"`
	Level int  `gorm:"not null;default:1;index:idx_board_level_status"`

	// Lineage: set when the board was produced by a split.
	ParentID  *uint   `gorm:"index"`
	SplitSide *string `gorm:"size:8"`

	Status BoardStatus `gorm:"size:16;default:'waiting';index:idx_board_level_status"`
	Active bool        `gorm:"default:true;index"`

	// GiftsReceived counts paid donor slots over the board lifetime (0..8).
	GiftsReceived int `gorm:"default:0"`

	Rec  *int64 `gorm:"column:rec;index"`
	CrL  *int64 `gorm:"column:crl"`
	CrR  *int64 `gorm:"column:crr"`
	StL1 *int64 `gorm:"column:stl1"`
	StL2 *int64 `gorm:"column:stl2"`
	StR3 *int64 `gorm:"column:str3"`
	StR4 *int64 `gorm:"column:str4"`
	DL1  *int64 `gorm:"column:dl1"`
	DL2  *int64 `gorm:"column:dl2"`
	DL3  *int64 `gorm:"column:dl3"`
	DL4  *int64 `gorm:"column:dl4"`
	DR5  *int64 `gorm:"column:dr5"`
	DR6  *int64 `gorm:"column:dr6"`
	DR7  *int64 `gorm:"column:dr7"`
	DR8  *int64 `gorm:"column:dr8"`

	DL1Paid bool `gorm:"column:dl1_paid;default:false"`
	DL2Paid bool `gorm:"column:dl2_paid;default:false"`
	DL3Paid bool `gorm:"column:dl3_paid;default:false"`
	DL4Paid bool `gorm:"column:dl4_paid;default:false"`
	DR5Paid bool `gorm:"column:dr5_paid;default:false"`
	DR6Paid bool `gorm:"column:dr6_paid;default:false"`
	DR7Paid bool `gorm:"column:dr7_paid;default:false"`
	DR8Paid bool `gorm:"column:dr8_paid;default:false"`

	DL1Deadline *time.Time `gorm:"column:dl1_deadline"`
	DL2Deadline *time.Time `gorm:"column:dl2_deadline"`
	DL3Deadline *time.Time `gorm:"column:dl3_deadline"`
	DL4Deadline *time.Time `gorm:"column:dl4_deadline"`
	DR5Deadline *time.Time `gorm:"column:dr5_deadline"`
	DR6Deadline *time.Time `gorm:"column:dr6_deadline"`
	DR7Deadline *time.Time `gorm:"column:dr7_deadline"`
	DR8Deadline *time.Time `gorm:"column:dr8_deadline"`

	CreatedAt time.Time
	ClosedAt  *time.Time
}

func (Board) TableName() string { return "boards" }

// Occupant returns the Telegram ID sitting at p, or nil.
func (b *Board) Occupant(p Position) *int64 {
	switch p {
	case PosReceiver:
		return b.Rec
	case PosCreatorLeft:
		return b.CrL
	case PosCreatorRight:
		return b.CrR
	case PosBuilderL1:
		return b.StL1
	case PosBuilderL2:
		return b.StL2
	case PosBuilderR3:
		return b.StR3
	case PosBuilderR4:
		return b.StR4
	case PosDonorL1:
		return b.DL1
	case PosDonorL2:
		return b.DL2
	case PosDonorL3:
		return b.DL3
	case PosDonorL4:
		return b.DL4
	case PosDonorR5:
		return b.DR5
	case PosDonorR6:
		return b.DR6
	case PosDonorR7:
		return b.DR7
	case PosDonorR8:
		return b.DR8
	}
	return nil
}

func (b *Board) SetOccupant(p Position, tid *int64) {
	switch p {
	case PosReceiver:
		b.Rec = tid
	case PosCreatorLeft:
		b.CrL = tid
	case PosCreatorRight:
		b.CrR = tid
	case PosBuilderL1:
		b.StL1 = tid
	case PosBuilderL2:
		b.StL2 = tid
	case PosBuilderR3:
		b.StR3 = tid
	case PosBuilderR4:
		b.StR4 = tid
	case PosDonorL1:
		b.DL1 = tid
	case PosDonorL2:
		b.DL2 = tid
	case PosDonorL3:
		b.DL3 = tid
	case PosDonorL4:
		b.DL4 = tid
	case PosDonorR5:
		b.DR5 = tid
	case PosDonorR6:
		b.DR6 = tid
	case PosDonorR7:
		b.DR7 = tid
	case PosDonorR8:
		b.DR8 = tid
	}
}

// DonorPaid reports whether the gift at a donor position is delivered.
func (b *Board) DonorPaid(p Position) bool {
	switch p {
	case PosDonorL1:
		return b.DL1Paid
	case PosDonorL2:
		return b.DL2Paid
	case PosDonorL3:
		return b.DL3Paid
	case PosDonorL4:
		return b.DL4Paid
	case PosDonorR5:
		return b.DR5Paid
	case PosDonorR6:
		return b.DR6Paid
	case PosDonorR7:
		return b.DR7Paid
	case PosDonorR8:
		return b.DR8Paid
	}
	return false
}

func (b *Board) DonorDeadline(p Position) *time.Time {
	switch p {
	case PosDonorL1:
		return b.DL1Deadline
	case PosDonorL2:
		return b.DL2Deadline
	case PosDonorL3:
		return b.DL3Deadline
	case PosDonorL4:
		return b.DL4Deadline
	case PosDonorR5:
		return b.DR5Deadline
	case PosDonorR6:
		return b.DR6Deadline
	case PosDonorR7:
		return b.DR7Deadline
	case PosDonorR8:
		return b.DR8Deadline
	}
	return nil
}

// UserPosition finds where tid sits on the board.
func (b *Board) UserPosition(tid int64) (Position, bool) {
	for _, p := range AllPositions {
		if occ := b.Occupant(p); occ != nil && *occ == tid {
			return p, true
		}
	}
	return 0, false
}

func (b *Board) HasUser(tid int64) bool {
	_, ok := b.UserPosition(tid)
	return ok
}

// DonorPosition finds the donor slot held by tid, if any.
func (b *Board) DonorPosition(tid int64) (Position, bool) {
	for _, p := range DonorPositions {
		if occ := b.Occupant(p); occ != nil && *occ == tid {
			return p, true
		}
	}
	return 0, false
}

func (b *Board) EmptyDonorSlots(side Side) int {
	n := 0
	for _, p := range SideDonorPositions(side) {
		if b.Occupant(p) == nil {
			n++
		}
	}
	return n
}

func (b *Board) EmptyDonorSlotsTotal() int {
	return b.EmptyDonorSlots(SideLeft) + b.EmptyDonorSlots(SideRight)
}

// FirstEmptyDonorSlot returns the first free donor position on side.
func (b *Board) FirstEmptyDonorSlot(side Side) (Position, bool) {
	for _, p := range SideDonorPositions(side) {
		if b.Occupant(p) == nil {
			return p, true
		}
	}
	return 0, false
}

func (b *Board) IsSideFull(side Side) bool {
	return b.EmptyDonorSlots(side) == 0
}

func (b *Board) IsSidePaid(side Side) bool {
	for _, p := range SideDonorPositions(side) {
		if !b.DonorPaid(p) {
			return false
		}
	}
	return true
}

// CanSplit: every donor slot on the side is filled and paid.
func (b *Board) CanSplit(side Side) bool {
	return b.IsSideFull(side) && b.IsSidePaid(side)
}

// SplitReadySide returns the side that may split now, if any.
func (b *Board) SplitReadySide() (Side, bool) {
	if b.CanSplit(SideLeft) {
		return SideLeft, true
	}
	if b.CanSplit(SideRight) {
		return SideRight, true
	}
	return "", false
}

func (b *Board) PaidCount() int {
	n := 0
	for _, p := range DonorPositions {
		if b.DonorPaid(p) {
			n++
		}
	}
	return n
}

// IsComplete: all 8 gifts delivered over the board lifetime.
func (b *Board) IsComplete() bool { return b.GiftsReceived >= 8 }

func (b *Board) IsClosed() bool { return b.Status == StatusClosed || !b.Active }

func (b *Board) LevelName() string { return LevelName(b.Level) }

func (b *Board) GiftAmount() int { return GiftAmount(b.Level) }
