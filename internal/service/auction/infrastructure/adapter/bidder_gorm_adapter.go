// internal/service/auction/infrastructure/adapter/bidder_gorm_adapter.go
package adapter

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"gavel/internal/service/auction/domain"
	"gavel/internal/service/auction/infrastructure"
)

// BidderGormAdapter 是 port.BidderDirectory 的 GORM 实现。
// 只读余额，不加锁：余额扣减属于账务系统，这里只做手续费的准入判断。
type BidderGormAdapter struct {
	db *gorm.DB
}

func NewBidderGormAdapter(db *gorm.DB) *BidderGormAdapter {
	return &BidderGormAdapter{db: db}
}

// FindBalance 返回出价人的可用余额。
func (a *BidderGormAdapter) FindBalance(ctx context.Context, bidderID uuid.UUID) (domain.Money, error) {
	var model infrastructure.BidderModel
	err := a.db.WithContext(ctx).Where("id = ?", bidderID.String()).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Money{}, domain.ErrBidderNotFound
		}
		return domain.Money{}, errors.Wrap(err, "failed to load bidder")
	}
	return domain.NewMoney(model.BalanceAmount, model.BalanceCurrency), nil
}
