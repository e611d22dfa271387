// internal/service/auction/domain/auction.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Auction 是拍卖聚合的根实体
type Auction struct {
	ID        uuid.UUID
	Kind      Kind      // 创建后不可变
	CreatorID uuid.UUID // 创建后不可变
	Title     string
	Status    Status

	StartedAt  time.Time
	FinishedAt time.Time // penny 类型的截止时间由出价动态建立

	StopwatchSeconds int // 仅 penny 有意义：每次出价后的倒计时窗口

	InitialBidAmount Money
	MinimalBidAmount Money // standard 的动态底价；penny/closed 不参与比较

	WinnerID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StopwatchRange 是 penny 拍卖 stopwatch 的允许区间（秒），来自配置。
type StopwatchRange struct {
	Min int
	Max int
}

// NewAuctionParams 是创建拍卖所需的全部输入。
type NewAuctionParams struct {
	Kind             Kind
	CreatorID        uuid.UUID
	Title            string
	StartedAt        time.Time
	FinishedAt       time.Time
	StopwatchSeconds int
	InitialBidAmount Money
}

// NewAuction 是拍卖的工厂函数，按类型校验创建期不变量，产出 SCHEDULED 状态的新拍卖。
func NewAuction(p NewAuctionParams, stopwatch StopwatchRange, now time.Time) (*Auction, error) {
	fields := map[string]string{}

	if !p.Kind.Valid() {
		fields["kind"] = "unknown auction kind"
	}
	if p.CreatorID == uuid.Nil {
		fields["creator_id"] = "is required"
	}
	if p.StartedAt.IsZero() {
		fields["started_at"] = "is required"
	}

	switch p.Kind {
	case KindPenny:
		// penny 不设初始出价金额，出价金额即固定手续费 InitialBidAmount=0
		if !p.InitialBidAmount.IsZero() {
			fields["initial_bid_amount"] = "must be zero for penny auctions"
		}
		if p.StopwatchSeconds < stopwatch.Min || p.StopwatchSeconds > stopwatch.Max {
			fields["stopwatch_seconds"] = "is out of the allowed range"
		}
	case KindStandard, KindClosed:
		if p.FinishedAt.IsZero() {
			fields["finished_at"] = "is required"
		} else if !p.FinishedAt.After(p.StartedAt) {
			fields["finished_at"] = "must be after started_at"
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	return &Auction{
		ID:               uuid.New(),
		Kind:             p.Kind,
		CreatorID:        p.CreatorID,
		Title:            p.Title,
		Status:           StatusScheduled, // 初始状态
		StartedAt:        p.StartedAt,
		FinishedAt:       p.FinishedAt,
		StopwatchSeconds: p.StopwatchSeconds,
		InitialBidAmount: p.InitialBidAmount,
		MinimalBidAmount: p.InitialBidAmount, // 底价从初始金额起步，只升不降
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Start 将拍卖置为进行中。
// 重复触发的 start 任务在这里被挡下（at-least-once 投递下的防御性守卫）。
func (a *Auction) Start(now time.Time) error {
	if a.Status != StatusScheduled {
		return ErrInvalidStatus
	}
	a.Status = StatusRunning
	if a.Kind == KindPenny {
		// penny 的截止时间本应由第一口出价建立；这里先用 stopwatch 兜底，
		// 保证一场无人出价的拍卖也有结束时刻，后续出价会覆盖它
		a.FinishedAt = now.Add(a.Stopwatch())
	}
	a.UpdatedAt = now
	return nil
}

// Pause 暂停一场进行中的拍卖。
func (a *Auction) Pause(now time.Time) error {
	if a.Status != StatusRunning {
		return ErrInvalidStatus
	}
	a.Status = StatusPaused
	a.UpdatedAt = now
	return nil
}

// Unpause 恢复一场暂停中的拍卖。
func (a *Auction) Unpause(now time.Time) error {
	if a.Status != StatusPaused {
		return ErrInvalidStatus
	}
	a.Status = StatusRunning
	a.UpdatedAt = now
	return nil
}

// Finish 是通用的结束流转。定时触发的 finish 任务命中暂停/已结束的拍卖时，
// 这里返回 ErrInvalidStatus，消费侧将其当作幂等空转处理。
func (a *Auction) Finish(now time.Time) error {
	if a.Status != StatusRunning {
		return ErrInvalidStatus
	}
	a.Status = StatusFinished
	a.UpdatedAt = now
	return nil
}

// Cancel 取消拍卖，只允许从非终态发起。
func (a *Auction) Cancel(now time.Time) error {
	if a.Status.Terminal() {
		return ErrInvalidStatus
	}
	a.Status = StatusCanceled
	a.UpdatedAt = now
	return nil
}

// AcceptsBids 判断当前状态是否接受出价。
// 开拍前允许出价（penny 规则明确依赖这一点），暂停/终态一律拒绝。
func (a *Auction) AcceptsBids() bool {
	return a.Status == StatusScheduled || a.Status == StatusRunning
}

// Stopwatch 返回倒计时窗口时长。
func (a *Auction) Stopwatch() time.Duration {
	return time.Duration(a.StopwatchSeconds) * time.Second
}

// ExtendDeadline 按 stopwatch 从 now 重算截止时间，只对进行中的 penny 拍卖调用。
func (a *Auction) ExtendDeadline(now time.Time) {
	a.FinishedAt = now.Add(a.Stopwatch())
	a.UpdatedAt = now
}

// RaiseFloor 把底价抬到接受金额的 110%，只对 standard 调用。
func (a *Auction) RaiseFloor(accepted Money, now time.Time) {
	a.MinimalBidAmount = NextMinimalBid(accepted)
	a.UpdatedAt = now
}
