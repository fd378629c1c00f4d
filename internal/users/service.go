package users

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dpsmart-bot/internal/models"
)

// Service is the user directory: identity, referral chain, activity
// windows and bans.
type Service struct {
	DB *gorm.DB

	// Now is the wall-clock source, replaceable in tests.
	Now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db, Now: time.Now}
}

// GetByTelegramID returns (nil, nil) when the user does not exist.
func (s *Service) GetByTelegramID(tid int64) (*models.User, error) {
	var user models.User
	err := s.DB.Where("telegram_id = ?", tid).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user %d: %w", tid, err)
	}
	return &user, nil
}

func (s *Service) GetByReferralCode(code string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("referral_code = ?", code).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query referral code %q: %w", code, err)
	}
	return &user, nil
}

// ReferralCode derives the stable referral code for a Telegram ID.
func ReferralCode(tid int64) string {
	return fmt.Sprintf("dp_%d", tid)
}

// RegisterOrGet creates the user on first contact or returns the existing
// one, refreshing display fields. A mentor that is unknown or the user
// themselves is silently dropped. On first-ever creation with a valid
// mentor the mentor gets +1 referral and a fresh 30-day activity window,
// the only way global activity is renewed.
func (s *Service) RegisterOrGet(tid int64, username, fullname string, mentorTID *int64) (*models.User, bool, error) {
	existing, err := s.GetByTelegramID(tid)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if err := s.refreshNames(existing, username, fullname); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	// Validate the mentor link before creation; it is immutable after.
	var validMentor *int64
	if mentorTID != nil && *mentorTID != tid {
		mentor, err := s.GetByTelegramID(*mentorTID)
		if err != nil {
			return nil, false, err
		}
		if mentor != nil {
			validMentor = mentorTID
		}
	}

	now := s.Now()
	heartbeat := now.Add(models.HeartbeatDuration)
	user := models.User{
		TelegramID:     tid,
		Username:       username,
		FullName:       fullname,
		MentorID:       validMentor,
		ReferralCode:   ReferralCode(tid),
		HeartbeatUntil: &heartbeat,
		// Global activity starts only once the user refers someone.
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user %d: %w", tid, err)
		}
		if validMentor == nil {
			return nil
		}
		activeUntil := now.Add(models.GlobalActivityDuration)
		res := tx.Model(&models.User{}).
			Where("telegram_id = ?", *validMentor).
			Updates(map[string]interface{}{
				"referral_count":      gorm.Expr("referral_count + 1"),
				"global_active_until": activeUntil,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update mentor %d: %w", *validMentor, res.Error)
		}
		event := models.ReferralEvent{MentorID: *validMentor, InvitedID: tid}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to record referral event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

func (s *Service) refreshNames(user *models.User, username, fullname string) error {
	updates := map[string]interface{}{}
	if username != "" && user.Username != username {
		updates["username"] = username
		user.Username = username
	}
	if fullname != "" && user.FullName != fullname {
		updates["full_name"] = fullname
		user.FullName = fullname
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.DB.Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to refresh user %d: %w", user.TelegramID, err)
	}
	return nil
}

// PressHeartbeat extends the 48h activity window. Returns false (not an
// error) for unknown or banned users.
func (s *Service) PressHeartbeat(tid int64) (bool, error) {
	user, err := s.GetByTelegramID(tid)
	if err != nil {
		return false, err
	}
	now := s.Now()
	if user == nil || user.IsBanned(now) {
		return false, nil
	}
	until := now.Add(models.HeartbeatDuration)
	res := s.DB.Model(&models.User{}).
		Where("telegram_id = ?", tid).
		Update("heartbeat_until", until)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update heartbeat for %d: %w", tid, res.Error)
	}
	return true, nil
}

// ApplyBan increments the violation counter and sets an escalating
// temporary ban. Returns the ban duration in hours.
func (s *Service) ApplyBan(tid int64) (int, error) {
	user, err := s.GetByTelegramID(tid)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, nil
	}

	violations := user.ViolationCount + 1
	var duration time.Duration
	switch violations {
	case 1:
		duration = models.BanDurationFirst
	case 2:
		duration = models.BanDurationSecond
	default:
		duration = models.BanDurationThird
	}

	banUntil := s.Now().Add(duration)
	res := s.DB.Model(&models.User{}).
		Where("telegram_id = ?", tid).
		Updates(map[string]interface{}{
			"violation_count": violations,
			"ban_until":       banUntil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to ban user %d: %w", tid, res.Error)
	}
	return int(duration / time.Hour), nil
}

// ClearBan lifts a temporary ban ("indulgence"). The violation counter
// is kept, so escalation persists.
func (s *Service) ClearBan(tid int64) (bool, error) {
	res := s.DB.Model(&models.User{}).
		Where("telegram_id = ?", tid).
		Update("ban_until", nil)
	if res.Error != nil {
		return false, fmt.Errorf("failed to clear ban for %d: %w", tid, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Block puts the user on the permanent blacklist.
func (s *Service) Block(tid int64) (bool, error) {
	res := s.DB.Model(&models.User{}).
		Where("telegram_id = ?", tid).
		Update("blocked", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to block user %d: %w", tid, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Service) Unblock(tid int64) (bool, error) {
	res := s.DB.Model(&models.User{}).
		Where("telegram_id = ?", tid).
		Update("blocked", false)
	if res.Error != nil {
		return false, fmt.Errorf("failed to unblock user %d: %w", tid, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Service) SetAdmin(tid int64, admin bool) (bool, error) {
	res := s.DB.Model(&models.User{}).
		Where("telegram_id = ?", tid).
		Update("is_admin", admin)
	if res.Error != nil {
		return false, fmt.Errorf("failed to set admin=%v for %d: %w", admin, tid, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Service) ListAdmins() ([]models.User, error) {
	var admins []models.User
	if err := s.DB.Where("is_admin = ?", true).Order("telegram_id").Find(&admins).Error; err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}

// Upline walks the mentor chain upward, nearest first, stopping at an
// unset or dangling mentor link or at maxDepth.
func (s *Service) Upline(tid int64, maxDepth int) ([]models.User, error) {
	upline := make([]models.User, 0, 8)
	current := tid
	for i := 0; i < maxDepth; i++ {
		user, err := s.GetByTelegramID(current)
		if err != nil {
			return nil, err
		}
		if user == nil || user.MentorID == nil {
			break
		}
		mentor, err := s.GetByTelegramID(*user.MentorID)
		if err != nil {
			return nil, err
		}
		if mentor == nil {
			break
		}
		upline = append(upline, *mentor)
		current = mentor.TelegramID
	}
	return upline, nil
}

// Referrals lists users invited by tid, newest first.
func (s *Service) Referrals(tid int64, limit int) ([]models.User, error) {
	var referrals []models.User
	err := s.DB.Where("mentor_id = ?", tid).
		Order("created_at DESC").
		Limit(limit).
		Find(&referrals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals of %d: %w", tid, err)
	}
	return referrals, nil
}
