// internal/service/auction/domain/kind.go
package domain

// Kind 定义了拍卖的玩法类型
type Kind string

const (
	KindStandard Kind = "STANDARD" // 英式增价拍卖：公开出价，每次出价抬高下一口价底线
	KindPenny    Kind = "PENNY"    // 倒计时拍卖：每次出价支付固定手续费并重置截止时间
	KindClosed   Kind = "CLOSED"   // 密封拍卖：每人只能出一次价，结束前互不可见
)

// Valid 判断是否为已知类型。
func (k Kind) Valid() bool {
	switch k {
	case KindStandard, KindPenny, KindClosed:
		return true
	}
	return false
}
