// internal/service/auction/interfaces/job_poller.go
package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"gavel/internal/pkg/logger"
	"gavel/internal/pkg/mq"
	"gavel/internal/service/auction/domain/port"
)

// JobsTopic 是到期任务的投递主题，由 JobConsumerAdapter 消费。
const JobsTopic = "auction-jobs"

const popBatchSize = 64

// dueJobSource 是轮询器对调度器的依赖面：租约式弹出、确认、回收。
type dueJobSource interface {
	PopDue(ctx context.Context, now time.Time, limit int) ([]port.Job, error)
	Ack(ctx context.Context, job port.Job) error
	ReclaimExpired(ctx context.Context, now time.Time) (int, error)
}

// JobPoller 周期性地从 Redis 调度器弹出到期任务并投递到 Kafka。
// 任务弹出后带租约挂账，Kafka 写入成功才确认；崩溃或写入失败时
// 租约到期的任务被搬回队列重投。配合下游的状态守卫，
// 最坏情况是多投一次而不是丢任务。
type JobPoller struct {
	scheduler dueJobSource
	writer    *kafka.Writer
	interval  time.Duration

	produce func(ctx context.Context, key, value []byte) error // 可注入，测试用
}

func NewJobPoller(scheduler dueJobSource, brokers []string, interval time.Duration) *JobPoller {
	writer := mq.NewKafkaWriter(brokers, JobsTopic)
	return &JobPoller{
		scheduler: scheduler,
		writer:    writer,
		interval:  interval,
		produce: func(ctx context.Context, key, value []byte) error {
			return mq.ProduceMessage(ctx, writer, key, value)
		},
	}
}

// Run 启动轮询循环，阻塞直到 ctx 取消。
func (p *JobPoller) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Dur("interval", p.interval).Msg("job poller started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.writer.Close()

	for {
		select {
		case <-ticker.C:
			p.reclaimExpired(ctx)
			p.drainDue(ctx)
		case <-ctx.Done():
			logger.Ctx(ctx).Info().Msg("job poller shutting down")
			return ctx.Err()
		}
	}
}

// reclaimExpired 把上一任轮询器没确认的租约过期任务搬回队列。
func (p *JobPoller) reclaimExpired(ctx context.Context) {
	reclaimed, err := p.scheduler.ReclaimExpired(ctx, time.Now())
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to reclaim expired job leases")
		return
	}
	if reclaimed > 0 {
		logger.Ctx(ctx).Warn().Int("count", reclaimed).Msg("reclaimed expired in-flight jobs")
	}
}

// drainDue 反复弹出到期任务直到队列里没有到期的为止。
func (p *JobPoller) drainDue(ctx context.Context) {
	for {
		jobs, err := p.scheduler.PopDue(ctx, time.Now(), popBatchSize)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("failed to pop due jobs")
			return
		}
		if len(jobs) == 0 {
			return
		}
		for _, job := range jobs {
			p.deliver(ctx, job)
		}
		if len(jobs) < popBatchSize {
			return
		}
	}
}

// deliver 把一个到期任务写入 Kafka，成功后才结清租约。
// 失败不做任何补救：任务还在 in-flight 里，租约到期会被重投。
func (p *JobPoller) deliver(ctx context.Context, job port.Job) {
	payload, err := json.Marshal(job)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("job_type", string(job.Type)).Msg("failed to marshal due job")
		return
	}
	// 以拍卖 ID 为 key，同一场拍卖的任务保持分区内有序
	if err := p.produce(ctx, []byte(job.AuctionID.String()), payload); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("job_type", string(job.Type)).
			Str("auction_id", job.AuctionID.String()).
			Msg("failed to deliver due job, lease will expire and redeliver")
		return
	}
	if err := p.scheduler.Ack(ctx, job); err != nil {
		// 确认失败只会造成重投，不会丢任务
		logger.Ctx(ctx).Error().Err(err).
			Str("auction_id", job.AuctionID.String()).
			Msg("failed to ack delivered job")
	}
}
