package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dpsmart-bot/internal/models"
)

// buildSplitReadyBoard seeds receiver/creators/builders and fills and
// confirms the 4 left donors.
func buildSplitReadyBoard(t *testing.T, f *fixture) *models.Board {
	t.Helper()
	f.register(t, 1, nil)
	brd, err := f.Boards.CreateGenesisBoard(1, 1)
	require.NoError(t, err)
	f.seat(t, brd.ID, models.PosCreatorLeft, 10)
	f.seat(t, brd.ID, models.PosCreatorRight, 20)
	f.seat(t, brd.ID, models.PosBuilderL1, 11)
	f.seat(t, brd.ID, models.PosBuilderL2, 12)
	f.seat(t, brd.ID, models.PosBuilderR3, 21)
	f.seat(t, brd.ID, models.PosBuilderR4, 22)

	for _, tid := range []int64{101, 102, 103, 104} {
		f.claimAndConfirm(t, brd.ID, tid)
	}
	return f.reload(t, brd.ID)
}

// Scenario: splitting the left side promotes creator to receiver,
// builders to creators and donors to builders, and clears the parent's
// left side including paid flags and deadlines.
func TestSplitLeftReshape(t *testing.T) {
	f := newFixture(t)
	brd := buildSplitReadyBoard(t, f)
	require.True(t, brd.CanSplit(models.SideLeft))

	child, reason, err := f.Boards.Split(brd.ID, models.SideLeft)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)
	require.NotNil(t, child)

	// Lineage
	require.NotNil(t, child.ParentID)
	assert.Equal(t, brd.ID, *child.ParentID)
	require.NotNil(t, child.SplitSide)
	assert.Equal(t, "left", *child.SplitSide)
	assert.Equal(t, models.StatusWaiting, child.Status)
	assert.Equal(t, brd.Level, child.Level)

	// Promotion mapping
	assert.Equal(t, int64(10), *child.Occupant(models.PosReceiver))
	assert.Equal(t, int64(11), *child.Occupant(models.PosCreatorLeft))
	assert.Equal(t, int64(12), *child.Occupant(models.PosCreatorRight))
	assert.Equal(t, int64(101), *child.Occupant(models.PosBuilderL1))
	assert.Equal(t, int64(102), *child.Occupant(models.PosBuilderL2))
	assert.Equal(t, int64(103), *child.Occupant(models.PosBuilderR3))
	assert.Equal(t, int64(104), *child.Occupant(models.PosBuilderR4))
	assert.Equal(t, 8, child.EmptyDonorSlotsTotal())

	// Parent left side fully cleared
	parent := f.reload(t, brd.ID)
	for _, pos := range []models.Position{
		models.PosCreatorLeft, models.PosBuilderL1, models.PosBuilderL2,
		models.PosDonorL1, models.PosDonorL2, models.PosDonorL3, models.PosDonorL4,
	} {
		assert.Nil(t, parent.Occupant(pos), "%s must be empty", pos)
	}
	for _, pos := range models.LeftDonorPositions {
		assert.False(t, parent.DonorPaid(pos))
		assert.Nil(t, parent.DonorDeadline(pos))
	}

	// Right side untouched, parent stays open with 4 lifetime gifts.
	assert.Equal(t, int64(20), *parent.Occupant(models.PosCreatorRight))
	assert.Equal(t, 4, parent.GiftsReceived)
	assert.Equal(t, models.StatusActive, parent.Status)
	assert.True(t, parent.Active)

	// No user lost or duplicated: the 7 promoted ids moved as a set.
	seen := map[int64]int{}
	for _, pos := range models.AllPositions {
		if occ := child.Occupant(pos); occ != nil {
			seen[*occ]++
		}
	}
	require.Len(t, seen, 7)
	for tid, count := range seen {
		assert.Equal(t, 1, count, "user %d duplicated", tid)
	}
}

func TestSplitRejections(t *testing.T) {
	f := newFixture(t)
	brd := buildSplitReadyBoard(t, f)

	_, reason, err := f.Boards.Split(brd.ID, models.Side("up"))
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalidSide, reason)

	_, reason, err = f.Boards.Split(9999, models.SideLeft)
	require.NoError(t, err)
	assert.Equal(t, ReasonBoardNotFound, reason)

	// Right side has no donors at all.
	_, reason, err = f.Boards.Split(brd.ID, models.SideRight)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotSplitReady, reason)

	// Filled but not fully paid is still not ready.
	_, claimReason, err := f.Boards.ClaimSlot(brd.ID, 300)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, claimReason)
	_, reason, err = f.Boards.Split(brd.ID, models.SideRight)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotSplitReady, reason)
}

// Both sides split: the parent has delivered all 8 gifts and closes.
func TestSplitBothSidesClosesBoard(t *testing.T) {
	f := newFixture(t)
	brd := buildSplitReadyBoard(t, f)

	_, reason, err := f.Boards.Split(brd.ID, models.SideLeft)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)

	// Seat and confirm the right-side donors directly; claims would
	// prefer the now-empty left side.
	for i, tid := range []int64{201, 202, 203, 204} {
		pos := models.RightDonorPositions[i]
		f.seat(t, brd.ID, pos, tid)
		_, _, reason, err := f.Boards.ConfirmPayment(brd.ID, tid)
		require.NoError(t, err)
		require.Equal(t, ReasonOK, reason)
	}

	parent := f.reload(t, brd.ID)
	require.True(t, parent.CanSplit(models.SideRight))
	assert.Equal(t, 8, parent.GiftsReceived)

	child, reason, err := f.Boards.Split(brd.ID, models.SideRight)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)
	assert.Equal(t, int64(20), *child.Occupant(models.PosReceiver))

	parent = f.reload(t, brd.ID)
	assert.Equal(t, models.StatusClosed, parent.Status)
	assert.False(t, parent.Active)
	require.NotNil(t, parent.ClosedAt)

	// Closed is terminal.
	_, claimReason, err := f.Boards.ClaimSlot(brd.ID, 400)
	require.NoError(t, err)
	assert.Equal(t, ReasonBoardClosed, claimReason)
	_, reason, err = f.Boards.Split(brd.ID, models.SideRight)
	require.NoError(t, err)
	assert.Equal(t, ReasonBoardClosed, reason)
}

func TestSplitTwiceSameSide(t *testing.T) {
	f := newFixture(t)
	brd := buildSplitReadyBoard(t, f)

	_, reason, err := f.Boards.Split(brd.ID, models.SideLeft)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)

	_, reason, err = f.Boards.Split(brd.ID, models.SideLeft)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotSplitReady, reason, "cleared side cannot split again")
}
