package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dpsmart-bot/internal/models"
)

// Scenario: confirm one donor on a fresh board. One gift, no side
// ready yet.
func TestConfirmPayment(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1, nil)
	brd, err := f.Boards.CreateGenesisBoard(1, 1)
	require.NoError(t, err)

	_, reason, err := f.Boards.ClaimSlot(brd.ID, 2)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)

	gifts, ready, reason, err := f.Boards.ConfirmPayment(brd.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonOK, reason)
	assert.Equal(t, 1, gifts)
	assert.Equal(t, models.Side(""), ready)

	got := f.reload(t, brd.ID)
	assert.Equal(t, got.PaidCount(), got.GiftsReceived)

	// The gift is logged for audit.
	var giftRows []models.Gift
	require.NoError(t, f.Boards.DB.Find(&giftRows).Error)
	require.Len(t, giftRows, 1)
	assert.Equal(t, brd.ID, giftRows[0].BoardID)
	assert.Equal(t, int64(2), giftRows[0].DonorID)
	require.NotNil(t, giftRows[0].ReceiverID)
	assert.Equal(t, int64(1), *giftRows[0].ReceiverID)
	assert.Equal(t, 10, giftRows[0].Amount)
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1, nil)
	brd, err := f.Boards.CreateGenesisBoard(1, 1)
	require.NoError(t, err)

	_, reason, err := f.Boards.ClaimSlot(brd.ID, 2)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)

	_, _, reason, err = f.Boards.ConfirmPayment(brd.ID, 2)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)

	gifts, _, reason, err := f.Boards.ConfirmPayment(brd.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonAlreadyConfirmed, reason)
	assert.Equal(t, 0, gifts)
	assert.Equal(t, 1, f.reload(t, brd.ID).GiftsReceived, "no double increment")
}

func TestConfirmPaymentRejections(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1, nil)
	brd, err := f.Boards.CreateGenesisBoard(1, 1)
	require.NoError(t, err)

	_, _, reason, err := f.Boards.ConfirmPayment(9999, 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonBoardNotFound, reason)

	_, _, reason, err = f.Boards.ConfirmPayment(brd.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotADonor, reason)

	// The receiver holds no donor slot.
	_, _, reason, err = f.Boards.ConfirmPayment(brd.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotADonor, reason)
}

func TestConfirmPaymentReportsSplitReadySide(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1, nil)
	brd, err := f.Boards.CreateGenesisBoard(1, 1)
	require.NoError(t, err)
	f.seat(t, brd.ID, models.PosCreatorLeft, 10)
	f.seat(t, brd.ID, models.PosBuilderL1, 11)
	f.seat(t, brd.ID, models.PosBuilderL2, 12)

	for _, tid := range []int64{101, 102, 103} {
		f.claimAndConfirm(t, brd.ID, tid)
	}
	_, reason, err := f.Boards.ClaimSlot(brd.ID, 104)
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)

	gifts, ready, reason, err := f.Boards.ConfirmPayment(brd.ID, 104)
	require.NoError(t, err)
	assert.Equal(t, ReasonOK, reason)
	assert.Equal(t, 4, gifts)
	assert.Equal(t, models.SideLeft, ready)

	got := f.reload(t, brd.ID)
	assert.True(t, got.CanSplit(models.SideLeft))
	assert.False(t, got.CanSplit(models.SideRight))
	assert.Equal(t, got.PaidCount(), got.GiftsReceived)
}
