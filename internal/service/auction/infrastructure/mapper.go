// internal/service/auction/infrastructure/mapper.go
package infrastructure

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"gavel/internal/service/auction/domain"
)

// ToDomainAuction 将数据库模型转换为领域模型。
func ToDomainAuction(m *AuctionModel) (*domain.Auction, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid auction id in storage")
	}
	creatorID, err := uuid.Parse(m.CreatorID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid creator id in storage")
	}

	var winnerID *uuid.UUID
	if m.WinnerID != nil {
		parsed, err := uuid.Parse(*m.WinnerID)
		if err != nil {
			return nil, errors.Wrap(err, "invalid winner id in storage")
		}
		winnerID = &parsed
	}

	var finishedAt time.Time
	if m.FinishedAt != nil {
		finishedAt = *m.FinishedAt
	}

	return &domain.Auction{
		ID:               id,
		Kind:             domain.Kind(m.Kind),
		CreatorID:        creatorID,
		Title:            m.Title,
		Status:           domain.Status(m.Status),
		StartedAt:        m.StartedAt,
		FinishedAt:       finishedAt,
		StopwatchSeconds: m.StopwatchSeconds,
		InitialBidAmount: domain.NewMoney(m.InitialAmount, m.InitialCurrency),
		MinimalBidAmount: domain.NewMoney(m.MinimalAmount, m.MinimalCurrency),
		WinnerID:         winnerID,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}, nil
}

// FromDomainAuction 将领域模型转换为数据库模型。
func FromDomainAuction(a *domain.Auction) *AuctionModel {
	var winnerID *string
	if a.WinnerID != nil {
		s := a.WinnerID.String()
		winnerID = &s
	}
	var finishedAt *time.Time
	if !a.FinishedAt.IsZero() {
		t := a.FinishedAt
		finishedAt = &t
	}
	return &AuctionModel{
		ID:               a.ID.String(),
		Kind:             string(a.Kind),
		CreatorID:        a.CreatorID.String(),
		Title:            a.Title,
		Status:           string(a.Status),
		StartedAt:        a.StartedAt,
		FinishedAt:       finishedAt,
		StopwatchSeconds: a.StopwatchSeconds,
		InitialAmount:    a.InitialBidAmount.Amount,
		InitialCurrency:  a.InitialBidAmount.Currency,
		MinimalAmount:    a.MinimalBidAmount.Amount,
		MinimalCurrency:  a.MinimalBidAmount.Currency,
		WinnerID:         winnerID,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// ToDomainBid 将出价模型转换为领域模型。
func ToDomainBid(m *BidModel) (*domain.Bid, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid bid id in storage")
	}
	auctionID, err := uuid.Parse(m.AuctionID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid auction id in storage")
	}
	bidderID, err := uuid.Parse(m.BidderID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid bidder id in storage")
	}
	return &domain.Bid{
		ID:        id,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    domain.NewMoney(m.Amount, m.Currency),
		CreatedAt: m.CreatedAt,
	}, nil
}

// FromDomainBid 将领域出价转换为数据库模型。
func FromDomainBid(b *domain.Bid) *BidModel {
	return &BidModel{
		ID:        b.ID.String(),
		AuctionID: b.AuctionID.String(),
		BidderID:  b.BidderID.String(),
		Amount:    b.Amount.Amount,
		Currency:  b.Amount.Currency,
		CreatedAt: b.CreatedAt,
	}
}
