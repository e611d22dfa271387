// internal/service/auction/interfaces/job_consumer.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"gavel/internal/pkg/logger"
	"gavel/internal/pkg/mq"
	"gavel/internal/service/auction/application"
	"gavel/internal/service/auction/domain"
	"gavel/internal/service/auction/domain/port"
	"gavel/internal/zookeeper"
)

const lockWaitTimeout = 30 * time.Second

// JobConsumerAdapter 是一个驱动适配器：监听到期任务主题，拿到同一拍卖的
// 分布式锁后经注册表分发任务。分发入口已被 Retrier 包裹，
// 失败任务带退避重新入队，耗尽重试的终态失败记入日志即死信。
type JobConsumerAdapter struct {
	reader   *kafka.Reader
	dispatch application.JobHandler
	zkConn   *zookeeper.Conn // 可为 nil：单 worker 部署不需要锁

	wg      sync.WaitGroup
	stopped atomic.Bool
}

// NewJobConsumerAdapter 组装消费适配器。
func NewJobConsumerAdapter(reader *kafka.Reader, registry *application.JobRegistry, retrier *application.Retrier, zkConn *zookeeper.Conn) *JobConsumerAdapter {
	return &JobConsumerAdapter{
		reader:   reader,
		dispatch: retrier.Wrap(registry.Dispatch),
		zkConn:   zkConn,
	}
}

// Start 开始消费。这是一个长期运行的方法。
func (a *JobConsumerAdapter) Start(ctx context.Context) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logger.Ctx(ctx).Info().Str("topic", a.reader.Config().Topic).Msg("job consumer started")
		for {
			if a.stopped.Load() {
				return
			}
			// FetchMessage 不自动提交 offset，方便控制退出与提交时机
			msg, err := a.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || a.stopped.Load() {
					logger.Ctx(ctx).Info().Msg("job consumer shutting down")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("could not fetch message, retrying")
				time.Sleep(time.Second)
				continue
			}

			msgCtx := mq.ExtractTraceContext(ctx, msg.Headers)
			a.processMessage(msgCtx, msg)

			if err := a.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("failed to commit message")
			}
		}
	}()
	return nil
}

// Stop 优雅地停止消费者。
func (a *JobConsumerAdapter) Stop(ctx context.Context) {
	a.stopped.Store(true)
	a.reader.Close()
	a.wg.Wait()
	logger.Ctx(ctx).Info().Msg("job consumer stopped")
}

// processMessage 反序列化任务并经注册表分发。
func (a *JobConsumerAdapter) processMessage(ctx context.Context, msg kafka.Message) {
	var job port.Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal job, message will be skipped")
		return
	}

	// 同一拍卖的任务串行处理，at-least-once 下避免两个 worker 同时动一场拍卖
	if a.zkConn != nil {
		lock := zookeeper.NewDistributedLock(a.zkConn, "auction-"+job.AuctionID.String())
		if err := lock.Lock(lockWaitTimeout); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("auction_id", job.AuctionID.String()).
				Msg("failed to acquire job lock, message will be redelivered")
			return
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("failed to release job lock")
			}
		}()
	}

	err := a.dispatch(ctx, job)
	switch {
	case err == nil:
		jobExecutions.WithLabelValues(string(job.Type), "ok").Inc()
	case isTerminalFailure(err):
		// 重试额度耗尽：记死信日志，提交消息防止无限重放
		jobExecutions.WithLabelValues(string(job.Type), "dead_letter").Inc()
		logger.Ctx(ctx).Error().Err(err).
			Str("job_type", string(job.Type)).
			Str("auction_id", job.AuctionID.String()).
			Msg("job failed terminally, surfacing to dead letter")
	default:
		jobExecutions.WithLabelValues(string(job.Type), "error").Inc()
		logger.Ctx(ctx).Error().Err(err).
			Str("job_type", string(job.Type)).
			Str("auction_id", job.AuctionID.String()).
			Msg("job dispatch failed")
	}
}

func isTerminalFailure(err error) bool {
	var terminal *domain.TerminalJobFailureError
	return errors.As(err, &terminal)
}
