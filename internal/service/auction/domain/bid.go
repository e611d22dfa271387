// internal/service/auction/domain/bid.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bid 是一次已被接受的出价，创建后不可变。
// CreatedAt 同时是排序与平手裁决的关键字。
type Bid struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    Money
	CreatedAt time.Time
}

// NewBid 构造一条出价记录。只能经由出价引擎的接受路径调用。
func NewBid(auctionID, bidderID uuid.UUID, amount Money, now time.Time) *Bid {
	return &Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}
}
