package board

import (
	"dpsmart-bot/internal/models"
)

// Placement explains how FindBoard arrived at its answer.
type Placement struct {
	Reason Reason
	// MentorID and Depth are set for ReasonMentorBoard: the upline member
	// whose board was chosen and how far up the chain they sit (1 = direct
	// mentor).
	MentorID int64
	Depth    int
}

// CanJoin runs the placement preconditions for (tid, level).
func (s *Service) CanJoin(tid int64, level int) (Reason, error) {
	if !models.ValidLevel(level) {
		return ReasonInvalidLevel, nil
	}
	user, err := s.Users.GetByTelegramID(tid)
	if err != nil {
		return "", err
	}
	if user == nil {
		return ReasonUserNotFound, nil
	}
	if user.Blocked || user.IsBanned(s.Now()) {
		return ReasonUserBlocked, nil
	}
	onLevel, err := s.IsUserOnLevel(tid, level)
	if err != nil {
		return "", err
	}
	if onLevel {
		return ReasonAlreadyOnLevel, nil
	}
	return ReasonOK, nil
}

// FindBoard picks the board a user should join at level: first an open
// board of someone in the user's upline (nearest mentor first), then the
// global spillover queue. Dormant users may still place; dormancy is a
// projection for the presentation layer, not a placement gate.
func (s *Service) FindBoard(tid int64, level int) (*models.Board, Placement, error) {
	reason, err := s.CanJoin(tid, level)
	if err != nil {
		return nil, Placement{}, err
	}
	if reason != ReasonOK {
		return nil, Placement{Reason: reason}, nil
	}

	upline, err := s.Users.Upline(tid, UplineSearchDepth)
	if err != nil {
		return nil, Placement{}, err
	}
	for i, mentor := range upline {
		b, err := s.ReceiverBoard(mentor.TelegramID, level)
		if err != nil {
			return nil, Placement{}, err
		}
		if b != nil && b.EmptyDonorSlotsTotal() > 0 {
			return b, Placement{
				Reason:   ReasonMentorBoard,
				MentorID: mentor.TelegramID,
				Depth:    i + 1,
			}, nil
		}
	}

	b, err := s.OpenBoard(level)
	if err != nil {
		return nil, Placement{}, err
	}
	if b != nil {
		return b, Placement{Reason: ReasonSpillover}, nil
	}
	return nil, Placement{Reason: ReasonNoBoards}, nil
}
