// internal/service/auction/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gavel/internal/service/auction/domain"
)

// GormAuctionRepository 是 domain.AuctionRepository 和 domain.Transactor 的 GORM 实现。
// WithinTx 把事务连接塞进 context，各查询方法优先取事务连接，
// 保证一次流转内的行锁读与写回落在同一个事务上。
type GormAuctionRepository struct {
	db *gorm.DB
}

func NewGormAuctionRepository(db *gorm.DB) *GormAuctionRepository {
	return &GormAuctionRepository{db: db}
}

// AutoMigrate 建表，供进程启动与本地环境使用。
func (r *GormAuctionRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&AuctionModel{}, &BidModel{}, &BidderModel{})
}

type txKey struct{}

// WithinTx 实现 domain.Transactor。
func (r *GormAuctionRepository) WithinTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn 返回当前应使用的连接：事务内取事务连接，否则取根连接。
func (r *GormAuctionRepository) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *GormAuctionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	var model AuctionModel
	err := r.conn(ctx).Where("id = ?", id.String()).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, errors.Wrap(err, "failed to load auction")
	}
	return ToDomainAuction(&model)
}

// FindByIDForUpdate 以 SELECT ... FOR UPDATE 读取拍卖行。
// 并发出价对同一拍卖的"读底价-比较-写新底价"由这把行锁串行化。
func (r *GormAuctionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	var model AuctionModel
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id.String()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, errors.Wrap(err, "failed to lock auction row")
	}
	return ToDomainAuction(&model)
}

func (r *GormAuctionRepository) Save(ctx context.Context, auction *domain.Auction) error {
	model := FromDomainAuction(auction)
	err := r.conn(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
	return errors.Wrap(err, "failed to save auction")
}

func (r *GormAuctionRepository) CreateBid(ctx context.Context, bid *domain.Bid) error {
	err := r.conn(ctx).Create(FromDomainBid(bid)).Error
	return errors.Wrap(err, "failed to create bid")
}

func (r *GormAuctionRepository) BidsForAuction(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	var models []BidModel
	err := r.conn(ctx).
		Where("auction_id = ?", auctionID.String()).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load bids")
	}
	bids := make([]domain.Bid, 0, len(models))
	for i := range models {
		bid, err := ToDomainBid(&models[i])
		if err != nil {
			return nil, err
		}
		bids = append(bids, *bid)
	}
	return bids, nil
}

func (r *GormAuctionRepository) HasBidFrom(ctx context.Context, auctionID, bidderID uuid.UUID) (bool, error) {
	var count int64
	err := r.conn(ctx).Model(&BidModel{}).
		Where("auction_id = ? AND bidder_id = ?", auctionID.String(), bidderID.String()).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to count bids")
	}
	return count > 0, nil
}
