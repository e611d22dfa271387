// internal/service/auction/domain/port/scheduler.go
package port

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType 是后台任务的类型标识。
type JobType string

const (
	JobStartAuction      JobType = "start_auction"
	JobFinishAuction     JobType = "finish_auction"
	JobStartReminder     JobType = "start_reminder"
	JobNotifyParticipant JobType = "notify_participant"
	JobNotifyWinner      JobType = "notify_winner"
)

// Job 是一个可调度的工作单元。
// (Type, AuctionID[, RecipientID]) 构成去重键：同键重复调度会顶替仍在排队的旧任务，
// 这是 penny 拍卖"连续出价只留最新截止任务"不变量的承载点。
type Job struct {
	Type        JobType    `json:"type"`
	AuctionID   uuid.UUID  `json:"auctionId"`
	RecipientID *uuid.UUID `json:"recipientId,omitempty"` // 通知类任务的目标用户
	Attempt     int        `json:"attempt"`               // 重试计数，首次执行为 0
}

// DedupKey 返回任务的去重键。
func (j Job) DedupKey() string {
	if j.RecipientID != nil {
		return fmt.Sprintf("%s:%s:%s", j.Type, j.AuctionID, *j.RecipientID)
	}
	return fmt.Sprintf("%s:%s", j.Type, j.AuctionID)
}

// JobScheduler 是延迟任务调度器的出站端口。
type JobScheduler interface {
	// ScheduleAt 安排任务在 at 时刻（或之后）执行。
	// 同一去重键下已有排队任务时直接顶替，绝不产生重复任务。
	ScheduleAt(ctx context.Context, job Job, at time.Time) error

	// ScheduleNow 立即入队，用于通知扇出等不需要延迟的任务。
	ScheduleNow(ctx context.Context, job Job) error

	// CancelForAuction 撤销某场拍卖全部仍在排队的任务（取消拍卖时调用）。
	CancelForAuction(ctx context.Context, auctionID uuid.UUID) error
}
