// internal/service/auction/infrastructure/gorm_model.go
package infrastructure

import (
	"time"
)

// AuctionModel 对应 auctions 表
type AuctionModel struct {
	ID               string     `gorm:"type:char(36);primaryKey"`
	Kind             string     `gorm:"type:varchar(16);not null;index"`
	CreatorID        string     `gorm:"type:char(36);not null;index"`
	Title            string     `gorm:"type:varchar(255);not null"`
	Status           string     `gorm:"type:varchar(16);not null;index"`
	StartedAt        time.Time  `gorm:"not null"`
	FinishedAt       *time.Time ``
	StopwatchSeconds int        `gorm:"not null;default:0"`
	InitialAmount    int64      `gorm:"not null"`
	InitialCurrency  string     `gorm:"type:char(3);not null"`
	MinimalAmount    int64      `gorm:"not null"`
	MinimalCurrency  string     `gorm:"type:char(3);not null"`
	WinnerID         *string    `gorm:"type:char(36)"`
	CreatedAt        time.Time  `gorm:"not null"`
	UpdatedAt        time.Time  `gorm:"not null"`
}

func (AuctionModel) TableName() string { return "auctions" }

// BidModel 对应 bids 表，记录只增不改
type BidModel struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	AuctionID string    `gorm:"type:char(36);not null;index:idx_bids_auction_created,priority:1"`
	BidderID  string    `gorm:"type:char(36);not null;index"`
	Amount    int64     `gorm:"not null"`
	Currency  string    `gorm:"type:char(3);not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_bids_auction_created,priority:2"`
}

func (BidModel) TableName() string { return "bids" }

// BidderModel 对应 bidders 表，这里只读余额
type BidderModel struct {
	ID              string `gorm:"type:char(36);primaryKey"`
	BalanceAmount   int64  `gorm:"not null;default:0"`
	BalanceCurrency string `gorm:"type:char(3);not null"`
}

func (BidderModel) TableName() string { return "bidders" }
