// internal/service/auction/domain/repository.go
package domain

import (
	"context"

	"github.com/google/uuid"
)

// AuctionRepository 定义了拍卖聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type AuctionRepository interface {
	// FindByID 按 ID 查找拍卖，不存在返回 ErrAuctionNotFound。
	FindByID(ctx context.Context, id uuid.UUID) (*Auction, error)

	// FindByIDForUpdate 带行锁读取拍卖，只允许在 Transactor 的事务范围内调用。
	// 状态流转与出价接受都以它开头，保证读-判-写对 status/底价/截止时间可串行化。
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Auction, error)

	// Save 保存拍卖（创建或整体更新）。
	Save(ctx context.Context, auction *Auction) error

	// CreateBid 追加一条出价记录。出价不可变，没有更新/删除入口。
	CreateBid(ctx context.Context, bid *Bid) error

	// BidsForAuction 返回某场拍卖的全部出价，按 created_at 升序。
	BidsForAuction(ctx context.Context, auctionID uuid.UUID) ([]Bid, error)

	// HasBidFrom 判断某个用户是否已对该拍卖出过价（closed 的单次出价约束用）。
	HasBidFrom(ctx context.Context, auctionID, bidderID uuid.UUID) (bool, error)
}

// Transactor 是存储事务的范围包装。fn 内通过 ctx 取到同一事务连接。
type Transactor interface {
	WithinTx(ctx context.Context, fn func(txCtx context.Context) error) error
}
