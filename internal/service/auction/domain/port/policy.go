// internal/service/auction/domain/port/policy.go
package port

import (
	"context"

	"github.com/google/uuid"

	"gavel/internal/service/auction/domain"
)

// BidPolicy 是出价准入的规则引擎端口，在类型规则之前执行。
// 规则内容由配置下发（例如"创建者不得参与自己的拍卖"），放行与否由表达式决定。
type BidPolicy interface {
	// Authorize 放行返回 nil，拒绝返回 *domain.ValidationError。
	Authorize(ctx context.Context, auction *domain.Auction, bidderID uuid.UUID, amount domain.Money) error
}
