// internal/service/auction/application/service.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gavel/internal/pkg/logger"
	"gavel/internal/service/auction/domain"
	"gavel/internal/service/auction/domain/port"
)

// reminderLead 是开拍前提醒的提前量。创建时距开拍不足这个提前量就不再安排提醒。
const reminderLead = time.Hour

// AuctionService 负责拍卖生命周期与出价流程的编排。
// 所有状态变更都在一个带行锁的存储事务内完成；任务调度与事件发布在事务提交后
// 尽力而为地执行，重复投递由任务侧的状态守卫兜底。
type AuctionService struct {
	repo      domain.AuctionRepository
	tx        domain.Transactor
	scheduler port.JobScheduler
	publisher port.EventPublisher
	bidders   port.BidderDirectory
	policy    port.BidPolicy
	stopwatch domain.StopwatchRange
	tracer    trace.Tracer

	now func() time.Time // 可注入时钟，测试用
}

func NewAuctionService(
	repo domain.AuctionRepository,
	tx domain.Transactor,
	scheduler port.JobScheduler,
	publisher port.EventPublisher,
	bidders port.BidderDirectory,
	policy port.BidPolicy,
	stopwatch domain.StopwatchRange,
	tracer trace.Tracer,
) *AuctionService {
	return &AuctionService{
		repo: repo, tx: tx, scheduler: scheduler, publisher: publisher,
		bidders: bidders, policy: policy, stopwatch: stopwatch, tracer: tracer,
		now: time.Now,
	}
}

// CreateAuctionRequest 是创建拍卖的应用层入参。
type CreateAuctionRequest struct {
	Kind             domain.Kind
	CreatorID        uuid.UUID
	Title            string
	StartedAt        time.Time
	FinishedAt       time.Time
	StopwatchSeconds int
	InitialBidAmount domain.Money
}

// CreateAuction 创建一场 SCHEDULED 状态的拍卖，并安排开拍任务与开拍提醒。
func (s *AuctionService) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*domain.Auction, error) {
	ctx, span := s.tracer.Start(ctx, "auction.CreateAuction")
	defer span.End()

	now := s.now()
	auction, err := domain.NewAuction(domain.NewAuctionParams{
		Kind:             req.Kind,
		CreatorID:        req.CreatorID,
		Title:            req.Title,
		StartedAt:        req.StartedAt,
		FinishedAt:       req.FinishedAt,
		StopwatchSeconds: req.StopwatchSeconds,
		InitialBidAmount: req.InitialBidAmount,
	}, s.stopwatch, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "auction validation failed")
		return nil, err
	}

	if err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		return s.repo.Save(txCtx, auction)
	}); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("auction.id", auction.ID.String()),
		attribute.String("auction.kind", string(auction.Kind)),
	)

	// 事务提交后的副作用：开拍任务 + 提前量足够时的提醒任务
	startJob := port.Job{Type: port.JobStartAuction, AuctionID: auction.ID}
	if err := s.scheduler.ScheduleAt(ctx, startJob, auction.StartedAt); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("auction_id", auction.ID.String()).Msg("failed to schedule start job")
	}
	if auction.StartedAt.Add(-reminderLead).After(now) {
		reminderJob := port.Job{Type: port.JobStartReminder, AuctionID: auction.ID}
		if err := s.scheduler.ScheduleAt(ctx, reminderJob, auction.StartedAt.Add(-reminderLead)); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("auction_id", auction.ID.String()).Msg("failed to schedule start reminder")
		}
	}

	s.publish(ctx, domain.AuctionCreated{
		AuctionID: auction.ID,
		Kind:      auction.Kind,
		CreatorID: auction.CreatorID,
		StartedAt: auction.StartedAt,
	})
	logger.Ctx(ctx).Info().
		Str("auction_id", auction.ID.String()).
		Str("kind", string(auction.Kind)).
		Time("started_at", auction.StartedAt).
		Msg("auction created")
	return auction, nil
}

// StartAuction 将拍卖置为 RUNNING 并安排结束任务。
// standard/closed 的截止时间在创建时就已固定；penny 先以 stopwatch 兜底，
// 第一口出价会顶替这个结束任务。
func (s *AuctionService) StartAuction(ctx context.Context, auctionID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "auction.StartAuction")
	defer span.End()
	span.SetAttributes(attribute.String("auction.id", auctionID.String()))

	var started *domain.Auction
	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		auction, err := s.repo.FindByIDForUpdate(txCtx, auctionID)
		if err != nil {
			return err
		}
		if err := auction.Start(s.now()); err != nil {
			return err
		}
		if err := s.repo.Save(txCtx, auction); err != nil {
			return err
		}
		started = auction
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	finishJob := port.Job{Type: port.JobFinishAuction, AuctionID: auctionID}
	if err := s.scheduler.ScheduleAt(ctx, finishJob, started.FinishedAt); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("auction_id", auctionID.String()).Msg("failed to schedule finish job")
	}

	s.publish(ctx, domain.AuctionStarted{
		AuctionID:  started.ID,
		Kind:       started.Kind,
		FinishedAt: started.FinishedAt,
	})
	logger.Ctx(ctx).Info().
		Str("auction_id", auctionID.String()).
		Time("finished_at", started.FinishedAt).
		Msg("auction started")
	return nil
}

// PauseAuction 暂停进行中的拍卖。已在排队的结束任务不撤销，
// 它命中暂停状态时会被结束流转的守卫当作空转。
func (s *AuctionService) PauseAuction(ctx context.Context, auctionID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "auction.PauseAuction")
	defer span.End()

	if err := s.transition(ctx, auctionID, func(a *domain.Auction) error {
		return a.Pause(s.now())
	}); err != nil {
		span.RecordError(err)
		return err
	}
	s.publish(ctx, domain.AuctionPaused{AuctionID: auctionID})
	logger.Ctx(ctx).Info().Str("auction_id", auctionID.String()).Msg("auction paused")
	return nil
}

// UnpauseAuction 恢复暂停中的拍卖。
func (s *AuctionService) UnpauseAuction(ctx context.Context, auctionID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "auction.UnpauseAuction")
	defer span.End()

	if err := s.transition(ctx, auctionID, func(a *domain.Auction) error {
		return a.Unpause(s.now())
	}); err != nil {
		span.RecordError(err)
		return err
	}
	s.publish(ctx, domain.AuctionUnpaused{AuctionID: auctionID})
	logger.Ctx(ctx).Info().Str("auction_id", auctionID.String()).Msg("auction unpaused")
	return nil
}

// CancelAuction 从任意非终态取消拍卖，并撤销该拍卖所有仍在排队的任务。
func (s *AuctionService) CancelAuction(ctx context.Context, auctionID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "auction.CancelAuction")
	defer span.End()

	if err := s.transition(ctx, auctionID, func(a *domain.Auction) error {
		return a.Cancel(s.now())
	}); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.scheduler.CancelForAuction(ctx, auctionID); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("auction_id", auctionID.String()).Msg("failed to cancel pending jobs")
	}
	s.publish(ctx, domain.AuctionCanceled{AuctionID: auctionID})
	logger.Ctx(ctx).Info().Str("auction_id", auctionID.String()).Msg("auction canceled")
	return nil
}

// FinishAuction 结束一场进行中的拍卖：结算赢家、落库、逐人安排通知任务。
// 由定时结束任务驱动；命中非 RUNNING 状态返回 ErrInvalidStatus，消费侧视为幂等空转。
func (s *AuctionService) FinishAuction(ctx context.Context, auctionID uuid.UUID) error {
	return s.finish(ctx, auctionID, nil)
}

// FinishAuctionOfKind 与 FinishAuction 相同，但要求拍卖类型匹配，
// 否则返回 ErrInvalidKind。给按类型区分的管理入口使用。
func (s *AuctionService) FinishAuctionOfKind(ctx context.Context, auctionID uuid.UUID, kind domain.Kind) error {
	return s.finish(ctx, auctionID, &kind)
}

func (s *AuctionService) finish(ctx context.Context, auctionID uuid.UUID, expectKind *domain.Kind) error {
	ctx, span := s.tracer.Start(ctx, "auction.FinishAuction")
	defer span.End()
	span.SetAttributes(attribute.String("auction.id", auctionID.String()))

	var finished *domain.Auction
	var outcome domain.Outcome
	var prematureDeadline *time.Time
	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		auction, err := s.repo.FindByIDForUpdate(txCtx, auctionID)
		if err != nil {
			return err
		}
		if expectKind != nil && auction.Kind != *expectKind {
			return domain.ErrInvalidKind
		}
		now := s.now()
		// 过期任务守卫：penny 的截止时间被后续出价推后时，旧的结束任务可能先到。
		// 调度顶替发生在事务提交之后，两笔并发出价的提交顺序与调度顺序可能相反，
		// 所以排队里的那个任务不一定指向最新截止。提前到达的任务不终结拍卖，
		// 按行锁下读到的权威截止时间重排自己。
		if auction.Status == domain.StatusRunning && now.Before(auction.FinishedAt) {
			deadline := auction.FinishedAt
			prematureDeadline = &deadline
			return nil
		}
		if err := auction.Finish(now); err != nil {
			return err
		}

		bids, err := s.repo.BidsForAuction(txCtx, auctionID)
		if err != nil {
			return err
		}
		outcome = domain.ResolveOutcome(auction.Kind, bids)
		// 状态与赢家在同一次更新里落库
		auction.WinnerID = outcome.WinnerID
		if err := s.repo.Save(txCtx, auction); err != nil {
			return err
		}
		finished = auction
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	if prematureDeadline != nil {
		finishJob := port.Job{Type: port.JobFinishAuction, AuctionID: auctionID}
		if err := s.scheduler.ScheduleAt(ctx, finishJob, *prematureDeadline); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("auction_id", auctionID.String()).
				Time("finish_at", *prematureDeadline).
				Msg("failed to reschedule premature finish job")
		}
		logger.Ctx(ctx).Info().
			Str("auction_id", auctionID.String()).
			Time("finish_at", *prematureDeadline).
			Msg("finish arrived before the deadline, rescheduled")
		return nil
	}

	// 通知扇出：每个收件人一条独立任务，单独重试、彼此隔离。
	// 没有赢家（零出价）时跳过赢家通知，参与者为空集合则自然无事可做。
	if outcome.WinnerID != nil {
		s.scheduleNotification(ctx, port.Job{
			Type: port.JobNotifyWinner, AuctionID: auctionID, RecipientID: outcome.WinnerID,
		})
	}
	for i := range outcome.ParticipantIDs {
		recipient := outcome.ParticipantIDs[i]
		s.scheduleNotification(ctx, port.Job{
			Type: port.JobNotifyParticipant, AuctionID: auctionID, RecipientID: &recipient,
		})
	}

	s.publish(ctx, domain.AuctionFinished{
		AuctionID:      finished.ID,
		Kind:           finished.Kind,
		WinnerID:       outcome.WinnerID,
		ParticipantIDs: outcome.ParticipantIDs,
	})
	logger.Ctx(ctx).Info().
		Str("auction_id", auctionID.String()).
		Int("participants", len(outcome.ParticipantIDs)).
		Msg("auction finished")
	return nil
}

// SendStartReminder 开拍前提醒任务的入口。拍卖已不在 SCHEDULED 状态时静默跳过。
func (s *AuctionService) SendStartReminder(ctx context.Context, auctionID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "auction.SendStartReminder")
	defer span.End()

	auction, err := s.repo.FindByID(ctx, auctionID)
	if err != nil {
		return err
	}
	if auction.Status != domain.StatusScheduled {
		return nil
	}
	s.publish(ctx, domain.AuctionStartReminder{AuctionID: auctionID, StartedAt: auction.StartedAt})
	return nil
}

// NotifyOutcome 成交/参与通知任务的入口。只发事件，投递由下游通知服务完成；
// 重复执行只会重复发事件，下游按 (auction, recipient) 去重。
func (s *AuctionService) NotifyOutcome(ctx context.Context, auctionID, recipientID uuid.UUID, won bool) error {
	ctx, span := s.tracer.Start(ctx, "auction.NotifyOutcome")
	defer span.End()

	s.publish(ctx, domain.OutcomeNotification{
		AuctionID:   auctionID,
		RecipientID: recipientID,
		Won:         won,
	})
	return nil
}

// GetAuction 查询单场拍卖。
func (s *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	return s.repo.FindByID(ctx, auctionID)
}

// transition 是"行锁读-流转-写回"的通用骨架。
func (s *AuctionService) transition(ctx context.Context, auctionID uuid.UUID, apply func(*domain.Auction) error) error {
	return s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		auction, err := s.repo.FindByIDForUpdate(txCtx, auctionID)
		if err != nil {
			return err
		}
		if err := apply(auction); err != nil {
			return err
		}
		return s.repo.Save(txCtx, auction)
	})
}

func (s *AuctionService) scheduleNotification(ctx context.Context, job port.Job) {
	if err := s.scheduler.ScheduleNow(ctx, job); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("auction_id", job.AuctionID.String()).
			Str("job_type", string(job.Type)).
			Msg("failed to enqueue notification job")
	}
}

// publish 发布领域事件，失败只记日志不影响主流程。
func (s *AuctionService) publish(ctx context.Context, event domain.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("event", event.EventName()).
			Str("auction_id", event.AggregateID().String()).
			Msg("failed to publish domain event")
	}
}
