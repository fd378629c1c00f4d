package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dpsmart-bot/internal/models"
)

// Scenario: a donor's deadline passes unpaid. The sweep lists the
// slot, eviction clears it and the user gets a first-violation 72h ban.
func TestEvictExpiredDonor(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1, nil)
	f.register(t, 2, nil)
	brd, err := f.Boards.CreateGenesisBoard(1, 1)
	require.NoError(t, err)

	pos, reason, err := f.Boards.ClaimSlot(brd.ID, 2)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)

	// Before the deadline nothing is expired.
	expired, err := f.Boards.ExpiredDonors(brd.ID)
	require.NoError(t, err)
	assert.Empty(t, expired)

	f.advance(models.PaymentTimeout + time.Hour)

	expired, err = f.Boards.ExpiredDonors(brd.ID)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, pos, expired[0].Position)
	assert.Equal(t, int64(2), expired[0].TelegramID)

	evicted, hours, err := f.Boards.EvictDonor(brd.ID, pos, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), evicted)
	assert.Equal(t, 72, hours)

	got := f.reload(t, brd.ID)
	assert.Nil(t, got.Occupant(pos))
	assert.Nil(t, got.DonorDeadline(pos))

	user, err := f.Users.GetByTelegramID(2)
	require.NoError(t, err)
	assert.Equal(t, 1, user.ViolationCount)
	assert.True(t, user.IsBanned(f.now))

	// Re-running the sweep finds nothing and evicting again is a no-op.
	expired, err = f.Boards.ExpiredDonors(brd.ID)
	require.NoError(t, err)
	assert.Empty(t, expired)
	evicted, hours, err = f.Boards.EvictDonor(brd.ID, pos, true)
	require.NoError(t, err)
	assert.Zero(t, evicted)
	assert.Zero(t, hours)
	user, err = f.Users.GetByTelegramID(2)
	require.NoError(t, err)
	assert.Equal(t, 1, user.ViolationCount, "no double ban")
}

func TestExpiredDonorsSkipsPaid(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1, nil)
	brd, err := f.Boards.CreateGenesisBoard(1, 1)
	require.NoError(t, err)

	f.claimAndConfirm(t, brd.ID, 2)
	_, reason, err := f.Boards.ClaimSlot(brd.ID, 3)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)

	f.advance(models.PaymentTimeout + time.Hour)

	expired, err := f.Boards.ExpiredDonors(brd.ID)
	require.NoError(t, err)
	require.Len(t, expired, 1, "paid slot must not expire")
	assert.Equal(t, int64(3), expired[0].TelegramID)
}

func TestEvictDonorRejectsNonDonorPosition(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1, nil)
	brd, err := f.Boards.CreateGenesisBoard(1, 1)
	require.NoError(t, err)

	_, _, err = f.Boards.EvictDonor(brd.ID, models.PosReceiver, true)
	assert.Error(t, err)
}

func TestActiveBoardIDs(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1, nil)
	f.register(t, 2, nil)

	a, err := f.Boards.CreateGenesisBoard(1, 1)
	require.NoError(t, err)
	b, err := f.Boards.CreateGenesisBoard(2, 2)
	require.NoError(t, err)

	require.NoError(t, f.Boards.DB.Model(&models.Board{}).Where("id = ?", b.ID).
		Updates(map[string]interface{}{"status": models.StatusClosed, "active": false}).Error)

	ids, err := f.Boards.ActiveBoardIDs()
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, ids)
}
