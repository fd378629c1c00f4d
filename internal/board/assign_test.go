package board

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dpsmart-bot/internal/models"
)

// Scenario: first donor claim sets the 72h deadline and flips the board
// from Waiting to Active.
func TestClaimSlotFirstDonor(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1, nil)
	brd, err := f.Boards.CreateGenesisBoard(1, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, brd.Status)

	pos, reason, err := f.Boards.ClaimSlot(brd.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonOK, reason)
	assert.Equal(t, models.PosDonorL1, pos)

	got := f.reload(t, brd.ID)
	assert.Equal(t, models.StatusActive, got.Status)
	require.NotNil(t, got.Occupant(pos))
	assert.Equal(t, int64(2), *got.Occupant(pos))
	assert.False(t, got.DonorPaid(pos))
	require.NotNil(t, got.DonorDeadline(pos))
	assert.Equal(t, testClock.Add(models.PaymentTimeout), got.DonorDeadline(pos).UTC())
}

func TestClaimSlotSideBalancing(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1, nil)
	brd, err := f.Boards.CreateGenesisBoard(1, 1)
	require.NoError(t, err)

	// Ties prefer left, so sequential claims fill dl1..dl4 then dr5..dr8.
	want := []models.Position{
		models.PosDonorL1, models.PosDonorL2, models.PosDonorL3, models.PosDonorL4,
		models.PosDonorR5, models.PosDonorR6, models.PosDonorR7, models.PosDonorR8,
	}
	for i, expected := range want {
		pos, reason, err := f.Boards.ClaimSlot(brd.ID, int64(100+i))
		require.NoError(t, err)
		require.Equal(t, ReasonOK, reason)
		assert.Equal(t, expected, pos)
	}

	// Ninth claim finds no slot.
	_, reason, err := f.Boards.ClaimSlot(brd.ID, 999)
	require.NoError(t, err)
	assert.Equal(t, ReasonNoSlots, reason)

	// Freeing one left slot makes left the fuller side again; the next
	// claim must land exactly there.
	reason, err = f.Boards.ReleaseSlot(brd.ID, 101)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)
	pos, reason, err := f.Boards.ClaimSlot(brd.ID, 999)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)
	assert.Equal(t, models.PosDonorL2, pos)
}

func TestClaimSlotRejections(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1, nil)
	brd, err := f.Boards.CreateGenesisBoard(1, 1)
	require.NoError(t, err)

	_, reason, err := f.Boards.ClaimSlot(12345, 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonBoardNotFound, reason)

	// Receiver is already on the board.
	_, reason, err = f.Boards.ClaimSlot(brd.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, ReasonAlreadyOnBoard, reason)

	_, reason, err = f.Boards.ClaimSlot(brd.ID, 2)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)
	_, reason, err = f.Boards.ClaimSlot(brd.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonAlreadyOnBoard, reason)

	// Same user on another board of the same level.
	f.register(t, 9, nil)
	other, err := f.Boards.CreateGenesisBoard(1, 9)
	require.NoError(t, err)
	_, reason, err = f.Boards.ClaimSlot(other.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonAlreadyOnLevel, reason)

	// Closed boards accept nothing.
	require.NoError(t, f.Boards.DB.Model(&models.Board{}).Where("id = ?", other.ID).
		Updates(map[string]interface{}{"status": models.StatusClosed, "active": false}).Error)
	_, reason, err = f.Boards.ClaimSlot(other.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, ReasonBoardClosed, reason)
}

func TestReleaseSlot(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1, nil)
	brd, err := f.Boards.CreateGenesisBoard(1, 1)
	require.NoError(t, err)

	reason, err := f.Boards.ReleaseSlot(brd.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotADonor, reason)

	pos, reason, err := f.Boards.ClaimSlot(brd.ID, 2)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)

	reason, err = f.Boards.ReleaseSlot(brd.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonOK, reason)
	got := f.reload(t, brd.ID)
	assert.Nil(t, got.Occupant(pos))
	assert.Nil(t, got.DonorDeadline(pos))

	// A paid slot cannot be abandoned.
	f.claimAndConfirm(t, brd.ID, 3)
	reason, err = f.Boards.ReleaseSlot(brd.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, ReasonAlreadyPaid, reason)
}

// N simultaneous claims against one remaining slot: exactly one wins.
func TestClaimSlotLastSlotRace(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1, nil)
	brd, err := f.Boards.CreateGenesisBoard(1, 1)
	require.NoError(t, err)

	for i := int64(0); i < 7; i++ {
		_, reason, err := f.Boards.ClaimSlot(brd.ID, 100+i)
		require.NoError(t, err)
		require.Equal(t, ReasonOK, reason)
	}

	const n = 8
	var wg sync.WaitGroup
	results := make(chan Reason, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(tid int64) {
			defer wg.Done()
			_, reason, err := f.Boards.ClaimSlot(brd.ID, tid)
			if err != nil {
				// Lost races surface as ErrConflict.
				require.ErrorIs(t, err, ErrConflict)
				results <- ""
				return
			}
			results <- reason
		}(int64(200 + i))
	}
	wg.Wait()
	close(results)

	wins := 0
	for reason := range results {
		if reason == ReasonOK {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one claim must win the last slot")
	assert.Equal(t, 0, f.reload(t, brd.ID).EmptyDonorSlotsTotal())
}
