// internal/service/auction/domain/events.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event 是对外发布的领域事件。发布是 fire-and-forget 的尽力而为，
// 不参与存储事务的原子性，下游消费者需要做好幂等。
type Event interface {
	EventName() string
	AggregateID() uuid.UUID
}

// AuctionCreated 拍卖创建成功
type AuctionCreated struct {
	AuctionID uuid.UUID `json:"auctionId"`
	Kind      Kind      `json:"kind"`
	CreatorID uuid.UUID `json:"creatorId"`
	StartedAt time.Time `json:"startedAt"`
}

func (e AuctionCreated) EventName() string      { return "auction.created" }
func (e AuctionCreated) AggregateID() uuid.UUID { return e.AuctionID }

// AuctionStarted 拍卖开始
type AuctionStarted struct {
	AuctionID  uuid.UUID `json:"auctionId"`
	Kind       Kind      `json:"kind"`
	FinishedAt time.Time `json:"finishedAt"`
}

func (e AuctionStarted) EventName() string      { return "auction.started" }
func (e AuctionStarted) AggregateID() uuid.UUID { return e.AuctionID }

// AuctionPaused 拍卖暂停
type AuctionPaused struct {
	AuctionID uuid.UUID `json:"auctionId"`
}

func (e AuctionPaused) EventName() string      { return "auction.paused" }
func (e AuctionPaused) AggregateID() uuid.UUID { return e.AuctionID }

// AuctionUnpaused 拍卖恢复
type AuctionUnpaused struct {
	AuctionID uuid.UUID `json:"auctionId"`
}

func (e AuctionUnpaused) EventName() string      { return "auction.unpaused" }
func (e AuctionUnpaused) AggregateID() uuid.UUID { return e.AuctionID }

// AuctionFinished 拍卖结束，携带成交结果
type AuctionFinished struct {
	AuctionID      uuid.UUID   `json:"auctionId"`
	Kind           Kind        `json:"kind"`
	WinnerID       *uuid.UUID  `json:"winnerId,omitempty"`
	ParticipantIDs []uuid.UUID `json:"participantIds"`
}

func (e AuctionFinished) EventName() string      { return "auction.finished" }
func (e AuctionFinished) AggregateID() uuid.UUID { return e.AuctionID }

// AuctionCanceled 拍卖取消
type AuctionCanceled struct {
	AuctionID uuid.UUID `json:"auctionId"`
}

func (e AuctionCanceled) EventName() string      { return "auction.canceled" }
func (e AuctionCanceled) AggregateID() uuid.UUID { return e.AuctionID }

// AuctionStartReminder 开拍前提醒（提前量不足时跳过）
type AuctionStartReminder struct {
	AuctionID uuid.UUID `json:"auctionId"`
	StartedAt time.Time `json:"startedAt"`
}

func (e AuctionStartReminder) EventName() string      { return "auction.start_reminder" }
func (e AuctionStartReminder) AggregateID() uuid.UUID { return e.AuctionID }

// BidCreated 出价被接受
type BidCreated struct {
	AuctionID uuid.UUID `json:"auctionId"`
	BidID     uuid.UUID `json:"bidId"`
	BidderID  uuid.UUID `json:"bidderId"`
	Amount    Money     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e BidCreated) EventName() string      { return "bid.created" }
func (e BidCreated) AggregateID() uuid.UUID { return e.AuctionID }

// OutcomeNotification 面向单个用户的成交/参与通知，由通知任务逐个投递，
// 每条独立可重试且幂等。
type OutcomeNotification struct {
	AuctionID   uuid.UUID `json:"auctionId"`
	RecipientID uuid.UUID `json:"recipientId"`
	Won         bool      `json:"won"`
}

func (e OutcomeNotification) EventName() string      { return "auction.outcome_notification" }
func (e OutcomeNotification) AggregateID() uuid.UUID { return e.AuctionID }
