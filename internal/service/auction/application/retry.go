// internal/service/auction/application/retry.go
package application

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"gavel/internal/pkg/logger"
	"gavel/internal/service/auction/domain"
	"gavel/internal/service/auction/domain/port"
)

// MaxJobRetries 是单个任务的重试上限。超过后错误原样上抛，交给死信/告警。
const MaxJobRetries = 15

// Retrier 包住每个任务入口：失败则带随机指数退避重新入队，
// 第 attempt 次失败后在 now + random(0, 2^attempt) 秒重试。
type Retrier struct {
	scheduler port.JobScheduler

	now     func() time.Time
	backoff func(attempt int) time.Duration // 可注入，测试用
}

func NewRetrier(scheduler port.JobScheduler) *Retrier {
	return &Retrier{
		scheduler: scheduler,
		now:       time.Now,
		backoff:   randomExponentialBackoff,
	}
}

// Wrap 返回带重试语义的处理函数。
func (r *Retrier) Wrap(handler JobHandler) JobHandler {
	return func(ctx context.Context, job port.Job) error {
		err := handler(ctx, job)
		if err == nil {
			return nil
		}

		// at-least-once 投递下的守卫空转：任务命中已不匹配的状态或已消失的拍卖，
		// 不算失败，更不能重试 15 次
		if errors.Is(err, domain.ErrInvalidStatus) || errors.Is(err, domain.ErrAuctionNotFound) {
			logger.Ctx(ctx).Warn().
				Str("job_type", string(job.Type)).
				Str("auction_id", job.AuctionID.String()).
				Err(err).
				Msg("job is a guarded no-op, skipping")
			return nil
		}

		if job.Attempt >= MaxJobRetries {
			return &domain.TerminalJobFailureError{
				JobType:   string(job.Type),
				AuctionID: job.AuctionID.String(),
				Attempts:  job.Attempt,
				Cause:     err,
			}
		}

		delay := r.backoff(job.Attempt)
		next := job
		next.Attempt++
		logger.Ctx(ctx).Warn().
			Str("job_type", string(job.Type)).
			Str("auction_id", job.AuctionID.String()).
			Int("attempt", job.Attempt).
			Dur("retry_in", delay).
			Err(err).
			Msg("job failed, rescheduling with backoff")

		if schedErr := r.scheduler.ScheduleAt(ctx, next, r.now().Add(delay)); schedErr != nil {
			// 连重排都失败了，把两个错误都暴露出去
			return errors.Join(err, schedErr)
		}
		return nil
	}
}

// randomExponentialBackoff 返回 [0, 2^attempt] 秒内的随机时长。
func randomExponentialBackoff(attempt int) time.Duration {
	bound := int64(1) << attempt
	return time.Duration(rand.Int64N(bound+1)) * time.Second
}
