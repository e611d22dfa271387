package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bidAt(bidder uuid.UUID, amount int64, at time.Time) Bid {
	return Bid{
		ID:        uuid.New(),
		AuctionID: uuid.New(),
		BidderID:  bidder,
		Amount:    NewMoney(amount, "USD"),
		CreatedAt: at,
	}
}

func TestResolveOutcomeStandard(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	alice, bob := uuid.New(), uuid.New()

	out := ResolveOutcome(KindStandard, []Bid{
		bidAt(alice, 100, base),
		bidAt(bob, 150, base.Add(time.Minute)),
	})

	require.NotNil(t, out.WinnerID)
	assert.Equal(t, bob, *out.WinnerID)
	assert.Equal(t, []uuid.UUID{alice}, out.ParticipantIDs)
}

func TestResolveOutcomeStandardTieGoesToEarlierBid(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	alice, bob := uuid.New(), uuid.New()

	out := ResolveOutcome(KindStandard, []Bid{
		bidAt(alice, 150, base),
		bidAt(bob, 150, base.Add(time.Second)),
	})

	require.NotNil(t, out.WinnerID)
	assert.Equal(t, alice, *out.WinnerID)
}

func TestResolveOutcomePennyLatestBidWins(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	alice, bob := uuid.New(), uuid.New()

	// 金额更高也救不了更早的出价
	out := ResolveOutcome(KindPenny, []Bid{
		bidAt(alice, 1, base),
		bidAt(bob, 999, base.Add(time.Second)),
		bidAt(alice, 1, base.Add(2*time.Second)),
	})

	require.NotNil(t, out.WinnerID)
	assert.Equal(t, alice, *out.WinnerID)
	assert.Equal(t, []uuid.UUID{bob}, out.ParticipantIDs)
}

func TestResolveOutcomeClosedHighestWins(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	out := ResolveOutcome(KindClosed, []Bid{
		bidAt(alice, 200, base),
		bidAt(bob, 350, base.Add(time.Minute)),
		bidAt(carol, 300, base.Add(2*time.Minute)),
	})

	require.NotNil(t, out.WinnerID)
	assert.Equal(t, bob, *out.WinnerID)
	assert.Len(t, out.ParticipantIDs, 2)
	assert.Contains(t, out.ParticipantIDs, alice)
	assert.Contains(t, out.ParticipantIDs, carol)
}

func TestResolveOutcomeParticipantsAreDeduplicated(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	alice, bob := uuid.New(), uuid.New()

	out := ResolveOutcome(KindStandard, []Bid{
		bidAt(alice, 100, base),
		bidAt(alice, 120, base.Add(time.Second)),
		bidAt(bob, 150, base.Add(2*time.Second)),
		bidAt(alice, 110, base.Add(3*time.Second)),
	})

	require.NotNil(t, out.WinnerID)
	assert.Equal(t, bob, *out.WinnerID)
	assert.Equal(t, []uuid.UUID{alice}, out.ParticipantIDs)
}

func TestResolveOutcomeWithoutBids(t *testing.T) {
	out := ResolveOutcome(KindStandard, nil)

	assert.Nil(t, out.WinnerID)
	assert.NotNil(t, out.ParticipantIDs)
	assert.Empty(t, out.ParticipantIDs)
}
