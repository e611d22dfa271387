// internal/service/auction/domain/winner.go
package domain

import (
	"sort"

	"github.com/google/uuid"
)

// Outcome 是结拍时从出价历史算出的成交结果。
type Outcome struct {
	WinnerID       *uuid.UUID
	ParticipantIDs []uuid.UUID // 去重后的其他出价人，不含赢家
}

// ResolveOutcome 按类型的排名规则计算赢家与参与者。
//   - standard/closed：单笔最高金额获胜；金额相同先出价者胜，再以 bid id 定序兜底
//   - penny：最后一口出价获胜，与金额无关
//
// 没有任何出价时赢家为空、参与者为空，结束流转必须容忍这种结果。
func ResolveOutcome(kind Kind, bids []Bid) Outcome {
	if len(bids) == 0 {
		return Outcome{ParticipantIDs: []uuid.UUID{}}
	}

	winning := bids[0]
	switch kind {
	case KindPenny:
		for _, b := range bids[1:] {
			if b.CreatedAt.After(winning.CreatedAt) ||
				(b.CreatedAt.Equal(winning.CreatedAt) && b.ID.String() > winning.ID.String()) {
				winning = b
			}
		}
	default:
		for _, b := range bids[1:] {
			if beats(b, winning) {
				winning = b
			}
		}
	}

	winnerID := winning.BidderID
	seen := map[uuid.UUID]struct{}{winnerID: {}}
	participants := make([]uuid.UUID, 0, len(bids))
	for _, b := range bids {
		if _, ok := seen[b.BidderID]; ok {
			continue
		}
		seen[b.BidderID] = struct{}{}
		participants = append(participants, b.BidderID)
	}
	// 输出定序，方便测试与下游幂等去重
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].String() < participants[j].String()
	})

	return Outcome{WinnerID: &winnerID, ParticipantIDs: participants}
}

// beats 判断 b 是否胜过当前候选：金额高者胜，平手取更早的 created_at，再平取更小的 id。
func beats(b, current Bid) bool {
	if b.Amount.Amount != current.Amount.Amount {
		return b.Amount.Amount > current.Amount.Amount
	}
	if !b.CreatedAt.Equal(current.CreatedAt) {
		return b.CreatedAt.Before(current.CreatedAt)
	}
	return b.ID.String() < current.ID.String()
}
