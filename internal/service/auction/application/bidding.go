// internal/service/auction/application/bidding.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"gavel/internal/pkg/logger"
	"gavel/internal/service/auction/domain"
	"gavel/internal/service/auction/domain/port"
)

// PlaceBidRequest 是一次候选出价。Kind 是出价方声明的玩法，必须与拍卖实际类型一致。
type PlaceBidRequest struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Kind      domain.Kind
	Amount    domain.Money
}

// PlaceBid 是出价引擎入口：通用前置校验 + 按类型的接受规则，整体在一个
// 带行锁的事务内执行，底价检查与底价更新不可分割。
//
// 各类型的规则：
//   - standard：金额不低于当前底价；接受后底价抬到本口的 110%
//   - penny：余额覆盖按次手续费；拍卖进行中则重置截止时间并顶替结束任务，
//     尚未开拍则不动截止时间，开拍流转会建立首个截止
//   - closed：每人限一口，金额不低于初始金额，底价不滚动
func (s *AuctionService) PlaceBid(ctx context.Context, req PlaceBidRequest) (*domain.Bid, error) {
	ctx, span := s.tracer.Start(ctx, "auction.PlaceBid")
	defer span.End()
	span.SetAttributes(
		attribute.String("auction.id", req.AuctionID.String()),
		attribute.String("bidder.id", req.BidderID.String()),
		attribute.Int64("bid.amount", req.Amount.Amount),
	)

	var bid *domain.Bid
	var rescheduleAt *time.Time
	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		auction, err := s.repo.FindByIDForUpdate(txCtx, req.AuctionID)
		if err != nil {
			return err
		}
		// 通用前置：状态接受出价、声明类型与实际一致
		if !auction.AcceptsBids() {
			return domain.ErrInvalidStatus
		}
		if req.Kind != auction.Kind {
			return domain.ErrKindMismatch
		}
		if s.policy != nil {
			if err := s.policy.Authorize(txCtx, auction, req.BidderID, req.Amount); err != nil {
				return err
			}
		}

		now := s.now()
		switch auction.Kind {
		case domain.KindStandard:
			if !req.Amount.SameCurrency(auction.MinimalBidAmount) {
				return domain.NewValidationError("amount", "currency does not match the auction")
			}
			if !req.Amount.GTE(auction.MinimalBidAmount) {
				return &domain.BidTooLowError{Minimum: auction.MinimalBidAmount}
			}
			bid = domain.NewBid(auction.ID, req.BidderID, req.Amount, now)
			if err := s.repo.CreateBid(txCtx, bid); err != nil {
				return err
			}
			auction.RaiseFloor(req.Amount, now)
			return s.repo.Save(txCtx, auction)

		case domain.KindPenny:
			balance, err := s.bidders.FindBalance(txCtx, req.BidderID)
			if err != nil {
				return err
			}
			// 初始金额即按次手续费
			if !balance.GTE(auction.InitialBidAmount) {
				return domain.ErrInsufficientBalance
			}
			bid = domain.NewBid(auction.ID, req.BidderID, req.Amount, now)
			if err := s.repo.CreateBid(txCtx, bid); err != nil {
				return err
			}
			if auction.Status == domain.StatusRunning {
				auction.ExtendDeadline(now)
				deadline := auction.FinishedAt
				rescheduleAt = &deadline
				return s.repo.Save(txCtx, auction)
			}
			// 未开拍：不动截止时间，也不动任务
			return nil

		case domain.KindClosed:
			already, err := s.repo.HasBidFrom(txCtx, auction.ID, req.BidderID)
			if err != nil {
				return err
			}
			if already {
				return domain.ErrAlreadyBid
			}
			if !req.Amount.SameCurrency(auction.InitialBidAmount) {
				return domain.NewValidationError("amount", "currency does not match the auction")
			}
			if !req.Amount.GTE(auction.InitialBidAmount) {
				return &domain.BidTooLowError{Minimum: auction.InitialBidAmount}
			}
			bid = domain.NewBid(auction.ID, req.BidderID, req.Amount, now)
			return s.repo.CreateBid(txCtx, bid)
		}
		return domain.ErrInvalidKind
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bid rejected")
		return nil, err
	}

	// penny 进行中的出价：顶替式重排结束任务，同一拍卖任何时刻至多一个在排队
	if rescheduleAt != nil {
		finishJob := port.Job{Type: port.JobFinishAuction, AuctionID: req.AuctionID}
		if err := s.scheduler.ScheduleAt(ctx, finishJob, *rescheduleAt); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("auction_id", req.AuctionID.String()).
				Time("finish_at", *rescheduleAt).
				Msg("failed to reschedule finish job after penny bid")
		}
	}

	s.publish(ctx, domain.BidCreated{
		AuctionID: bid.AuctionID,
		BidID:     bid.ID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		CreatedAt: bid.CreatedAt,
	})
	logger.Ctx(ctx).Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bid_id", bid.ID.String()).
		Int64("amount", bid.Amount.Amount).
		Msg("bid accepted")
	return bid, nil
}
