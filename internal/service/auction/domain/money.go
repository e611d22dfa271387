// internal/service/auction/domain/money.go
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money 以最小货币单位（分）加币种表示金额。
// 所有比较都假定同币种，跨币种出价在入口处由 KindMismatch 之前的校验拦截。
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewMoney 构造金额。
func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// IsZero 金额为零。
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// SameCurrency 币种是否一致。
func (m Money) SameCurrency(other Money) bool {
	return m.Currency == other.Currency
}

// GTE 当前金额是否不小于 other。
func (m Money) GTE(other Money) bool {
	return m.Amount >= other.Amount
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}

// markupFactor 是标准拍卖的抬价系数：成交一口后，下一口的底线是本口的 110%。
var markupFactor = decimal.NewFromFloat(1.10)

// NextMinimalBid 计算标准拍卖接受一口出价后的新底价：round(amount × 1.10)。
// 四舍五入到最小货币单位。
func NextMinimalBid(accepted Money) Money {
	next := decimal.NewFromInt(accepted.Amount).Mul(markupFactor).Round(0)
	return Money{Amount: next.IntPart(), Currency: accepted.Currency}
}
