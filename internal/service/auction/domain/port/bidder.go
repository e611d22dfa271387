// internal/service/auction/domain/port/bidder.go
package port

import (
	"context"

	"github.com/google/uuid"

	"gavel/internal/service/auction/domain"
)

// BidderDirectory 提供出价人的只读信息。
// penny 的按次手续费校验只需要余额，余额扣减属于账务系统，不在这里。
type BidderDirectory interface {
	// FindBalance 返回可用余额，用户不存在返回 domain.ErrBidderNotFound。
	FindBalance(ctx context.Context, bidderID uuid.UUID) (domain.Money, error)
}
