// internal/service/auction/application/jobs.go
package application

import (
	"context"
	"fmt"

	"gavel/internal/service/auction/domain/port"
)

// JobHandler 处理一个到期任务。
type JobHandler func(ctx context.Context, job port.Job) error

// JobRegistry 是任务类型到处理函数的显式注册表，在进程启动时组装完成，
// 运行期只查表分发，不做任何反射式查找。
type JobRegistry struct {
	handlers map[port.JobType]JobHandler
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{handlers: make(map[port.JobType]JobHandler)}
}

// Register 注册处理函数，同类型重复注册直接覆盖。
func (r *JobRegistry) Register(jobType port.JobType, handler JobHandler) {
	r.handlers[jobType] = handler
}

// Dispatch 将任务分发给对应的处理函数。
func (r *JobRegistry) Dispatch(ctx context.Context, job port.Job) error {
	handler, ok := r.handlers[job.Type]
	if !ok {
		return fmt.Errorf("no handler registered for job type %q", job.Type)
	}
	return handler(ctx, job)
}

// RegisterAuctionJobs 把拍卖服务的任务入口挂到注册表上。
func RegisterAuctionJobs(reg *JobRegistry, svc *AuctionService) {
	reg.Register(port.JobStartAuction, func(ctx context.Context, job port.Job) error {
		return svc.StartAuction(ctx, job.AuctionID)
	})
	reg.Register(port.JobFinishAuction, func(ctx context.Context, job port.Job) error {
		return svc.FinishAuction(ctx, job.AuctionID)
	})
	reg.Register(port.JobStartReminder, func(ctx context.Context, job port.Job) error {
		return svc.SendStartReminder(ctx, job.AuctionID)
	})
	reg.Register(port.JobNotifyWinner, func(ctx context.Context, job port.Job) error {
		if job.RecipientID == nil {
			return fmt.Errorf("notify_winner job for auction %s has no recipient", job.AuctionID)
		}
		return svc.NotifyOutcome(ctx, job.AuctionID, *job.RecipientID, true)
	})
	reg.Register(port.JobNotifyParticipant, func(ctx context.Context, job port.Job) error {
		if job.RecipientID == nil {
			return fmt.Errorf("notify_participant job for auction %s has no recipient", job.AuctionID)
		}
		return svc.NotifyOutcome(ctx, job.AuctionID, *job.RecipientID, false)
	})
}
