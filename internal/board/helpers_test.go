package board

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dpsmart-bot/internal/models"
	"dpsmart-bot/internal/users"
)

var testClock = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// fixture bundles the services over one in-memory database with a
// settable clock.
type fixture struct {
	Users  *users.Service
	Boards *Service
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Board{}, &models.Gift{}, &models.ReferralEvent{}))

	f := &fixture{now: testClock}
	f.Users = users.NewService(db)
	f.Users.Now = func() time.Time { return f.now }
	f.Boards = NewService(db, f.Users)
	f.Boards.Now = func() time.Time { return f.now }
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) register(t *testing.T, tid int64, mentor *int64) {
	t.Helper()
	_, _, err := f.Users.RegisterOrGet(tid, fmt.Sprintf("u%d", tid), "", mentor)
	require.NoError(t, err)
}

// seat places tid directly into a non-donor slot, the way splits and
// genesis seeding populate the upper tiers.
func (f *fixture) seat(t *testing.T, boardID uint, pos models.Position, tid int64) {
	t.Helper()
	err := f.Boards.DB.Model(&models.Board{}).
		Where("id = ?", boardID).
		Update(pos.Column(), tid).Error
	require.NoError(t, err)
}

func (f *fixture) reload(t *testing.T, boardID uint) *models.Board {
	t.Helper()
	b, err := f.Boards.GetByID(boardID)
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

// claimAndConfirm seats tid as a donor and confirms the gift.
func (f *fixture) claimAndConfirm(t *testing.T, boardID uint, tid int64) models.Position {
	t.Helper()
	pos, reason, err := f.Boards.ClaimSlot(boardID, tid)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)
	_, _, reason, err = f.Boards.ConfirmPayment(boardID, tid)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)
	return pos
}
