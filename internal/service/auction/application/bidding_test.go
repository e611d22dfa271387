package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel/internal/service/auction/domain"
	"gavel/internal/service/auction/domain/port"
)

func TestPlaceBidStandardRaisesFloor(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(domain.Auction{
		Kind:             domain.KindStandard,
		Status:           domain.StatusRunning,
		InitialBidAmount: domain.NewMoney(100, "USD"),
		MinimalBidAmount: domain.NewMoney(100, "USD"),
	})
	ctx := context.Background()

	bid, err := env.svc.PlaceBid(ctx, PlaceBidRequest{
		AuctionID: auction.ID, BidderID: uuid.New(),
		Kind: domain.KindStandard, Amount: domain.NewMoney(100, "USD"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NewMoney(100, "USD"), bid.Amount)

	stored, _ := env.repo.FindByID(ctx, auction.ID)
	assert.Equal(t, domain.NewMoney(110, "USD"), stored.MinimalBidAmount)

	// 低于新底价的出价被拒，错误里带着最低要求
	_, err = env.svc.PlaceBid(ctx, PlaceBidRequest{
		AuctionID: auction.ID, BidderID: uuid.New(),
		Kind: domain.KindStandard, Amount: domain.NewMoney(105, "USD"),
	})
	var tooLow *domain.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.Equal(t, domain.NewMoney(110, "USD"), tooLow.Minimum)

	// 恰好等于底价可接受，底价继续上抬
	_, err = env.svc.PlaceBid(ctx, PlaceBidRequest{
		AuctionID: auction.ID, BidderID: uuid.New(),
		Kind: domain.KindStandard, Amount: domain.NewMoney(110, "USD"),
	})
	require.NoError(t, err)
	stored, _ = env.repo.FindByID(ctx, auction.ID)
	assert.Equal(t, domain.NewMoney(121, "USD"), stored.MinimalBidAmount)

	assert.Len(t, env.publisher.eventsNamed("bid.created"), 2)
}

func TestPlaceBidStandardRejectsCurrencyMismatch(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(domain.Auction{
		Kind:             domain.KindStandard,
		Status:           domain.StatusRunning,
		MinimalBidAmount: domain.NewMoney(100, "USD"),
	})

	_, err := env.svc.PlaceBid(context.Background(), PlaceBidRequest{
		AuctionID: auction.ID, BidderID: uuid.New(),
		Kind: domain.KindStandard, Amount: domain.NewMoney(200, "EUR"),
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, env.repo.bids)
}

func TestPlaceBidRejectsKindMismatch(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(domain.Auction{
		Kind:             domain.KindStandard,
		Status:           domain.StatusRunning,
		MinimalBidAmount: domain.NewMoney(100, "USD"),
	})

	_, err := env.svc.PlaceBid(context.Background(), PlaceBidRequest{
		AuctionID: auction.ID, BidderID: uuid.New(),
		Kind: domain.KindPenny, Amount: domain.NewMoney(100, "USD"),
	})

	assert.ErrorIs(t, err, domain.ErrKindMismatch)
}

func TestPlaceBidRejectsNonBiddableStates(t *testing.T) {
	env := newTestEnv()
	for _, status := range []domain.Status{domain.StatusPaused, domain.StatusFinished, domain.StatusCanceled} {
		auction := env.seedAuction(domain.Auction{
			Kind:             domain.KindStandard,
			Status:           status,
			MinimalBidAmount: domain.NewMoney(100, "USD"),
		})

		_, err := env.svc.PlaceBid(context.Background(), PlaceBidRequest{
			AuctionID: auction.ID, BidderID: uuid.New(),
			Kind: domain.KindStandard, Amount: domain.NewMoney(100, "USD"),
		})

		assert.ErrorIs(t, err, domain.ErrInvalidStatus, "status %s", status)
	}
	assert.Empty(t, env.repo.bids)
}

func TestPlaceBidPennyRunningResetsDeadlineAndReplacesFinishJob(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(domain.Auction{
		Kind:             domain.KindPenny,
		Status:           domain.StatusRunning,
		StopwatchSeconds: 30,
		FinishedAt:       env.now.Add(5 * time.Second),
	})
	bidder := uuid.New()
	env.bidders.balances[bidder] = domain.NewMoney(1000, "USD")
	ctx := context.Background()

	// 先有一个按旧截止时间排队的结束任务
	require.NoError(t, env.scheduler.ScheduleAt(ctx,
		port.Job{Type: port.JobFinishAuction, AuctionID: auction.ID}, auction.FinishedAt))

	_, err := env.svc.PlaceBid(ctx, PlaceBidRequest{
		AuctionID: auction.ID, BidderID: bidder,
		Kind: domain.KindPenny, Amount: domain.NewMoney(1, "USD"),
	})
	require.NoError(t, err)

	stored, _ := env.repo.FindByID(ctx, auction.ID)
	assert.Equal(t, env.now.Add(30*time.Second), stored.FinishedAt)

	// 顶替而不是追加：同一拍卖只剩一个结束任务，时间是新截止
	finishJobs := env.scheduler.jobsOfType(port.JobFinishAuction)
	require.Len(t, finishJobs, 1)
	assert.Equal(t, env.now.Add(30*time.Second), finishJobs[0].at)
}

func TestPlaceBidPennyBeforeStartLeavesDeadlineAlone(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(domain.Auction{
		Kind:             domain.KindPenny,
		Status:           domain.StatusScheduled,
		StopwatchSeconds: 30,
	})
	bidder := uuid.New()
	env.bidders.balances[bidder] = domain.NewMoney(1000, "USD")
	ctx := context.Background()

	_, err := env.svc.PlaceBid(ctx, PlaceBidRequest{
		AuctionID: auction.ID, BidderID: bidder,
		Kind: domain.KindPenny, Amount: domain.NewMoney(1, "USD"),
	})
	require.NoError(t, err)

	stored, _ := env.repo.FindByID(ctx, auction.ID)
	assert.True(t, stored.FinishedAt.IsZero(), "deadline must stay unset until the auction starts")
	assert.Empty(t, env.scheduler.jobsOfType(port.JobFinishAuction))
	assert.Len(t, env.repo.bids, 1)
}

func TestPlaceBidPennyRejectsInsufficientBalance(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(domain.Auction{
		Kind:             domain.KindPenny,
		Status:           domain.StatusRunning,
		StopwatchSeconds: 30,
		InitialBidAmount: domain.NewMoney(50, "USD"), // 按次手续费
	})
	bidder := uuid.New()
	env.bidders.balances[bidder] = domain.NewMoney(10, "USD")

	_, err := env.svc.PlaceBid(context.Background(), PlaceBidRequest{
		AuctionID: auction.ID, BidderID: bidder,
		Kind: domain.KindPenny, Amount: domain.NewMoney(1, "USD"),
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Empty(t, env.repo.bids)
}

func TestPlaceBidPennyUnknownBidder(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(domain.Auction{
		Kind:             domain.KindPenny,
		Status:           domain.StatusRunning,
		StopwatchSeconds: 30,
	})

	_, err := env.svc.PlaceBid(context.Background(), PlaceBidRequest{
		AuctionID: auction.ID, BidderID: uuid.New(),
		Kind: domain.KindPenny, Amount: domain.NewMoney(1, "USD"),
	})

	assert.ErrorIs(t, err, domain.ErrBidderNotFound)
}

func TestPlaceBidClosedSingleBidPerBidder(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(domain.Auction{
		Kind:             domain.KindClosed,
		Status:           domain.StatusRunning,
		InitialBidAmount: domain.NewMoney(100, "USD"),
	})
	bidder := uuid.New()
	ctx := context.Background()

	_, err := env.svc.PlaceBid(ctx, PlaceBidRequest{
		AuctionID: auction.ID, BidderID: bidder,
		Kind: domain.KindClosed, Amount: domain.NewMoney(150, "USD"),
	})
	require.NoError(t, err)

	// 更高的金额也改不了单次出价的约束
	_, err = env.svc.PlaceBid(ctx, PlaceBidRequest{
		AuctionID: auction.ID, BidderID: bidder,
		Kind: domain.KindClosed, Amount: domain.NewMoney(500, "USD"),
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyBid)
	assert.Len(t, env.repo.bids, 1)
}

func TestPlaceBidClosedBelowInitialAmount(t *testing.T) {
	env := newTestEnv()
	auction := env.seedAuction(domain.Auction{
		Kind:             domain.KindClosed,
		Status:           domain.StatusRunning,
		InitialBidAmount: domain.NewMoney(100, "USD"),
	})

	_, err := env.svc.PlaceBid(context.Background(), PlaceBidRequest{
		AuctionID: auction.ID, BidderID: uuid.New(),
		Kind: domain.KindClosed, Amount: domain.NewMoney(99, "USD"),
	})

	var tooLow *domain.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.Equal(t, domain.NewMoney(100, "USD"), tooLow.Minimum)
}

func TestPlaceBidPolicyRejection(t *testing.T) {
	env := newTestEnv()
	creator := uuid.New()
	auction := env.seedAuction(domain.Auction{
		Kind:             domain.KindStandard,
		Status:           domain.StatusRunning,
		CreatorID:        creator,
		MinimalBidAmount: domain.NewMoney(100, "USD"),
	})
	env.svc.policy = &denyPolicy{denied: creator}

	_, err := env.svc.PlaceBid(context.Background(), PlaceBidRequest{
		AuctionID: auction.ID, BidderID: creator,
		Kind: domain.KindStandard, Amount: domain.NewMoney(100, "USD"),
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, env.repo.bids)
}

func TestPlaceBidUnknownAuction(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.PlaceBid(context.Background(), PlaceBidRequest{
		AuctionID: uuid.New(), BidderID: uuid.New(),
		Kind: domain.KindStandard, Amount: domain.NewMoney(100, "USD"),
	})

	assert.ErrorIs(t, err, domain.ErrAuctionNotFound)
}
