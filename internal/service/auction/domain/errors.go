// internal/service/auction/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// 守卫类错误作为类型化结果返回给调用方，不用于成功路径的控制流。
var (
	ErrAuctionNotFound     = errors.New("auction not found")
	ErrBidderNotFound      = errors.New("bidder not found")
	ErrInvalidStatus       = errors.New("operation not allowed in current auction status")
	ErrInvalidKind         = errors.New("operation applied to wrong auction kind")
	ErrKindMismatch        = errors.New("bid kind does not match auction kind")
	ErrInsufficientBalance = errors.New("bidder balance is insufficient for the bid fee")
	ErrAlreadyBid          = errors.New("bidder has already placed a bid on this auction")
)

// BidTooLowError 携带本次出价必须达到的最低金额。
type BidTooLowError struct {
	Minimum Money
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid is too low, minimum required is %s", e.Minimum)
}

// ValidationError 是字段级校验失败的聚合。
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

// NewValidationError 构造单字段校验错误。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// TerminalJobFailureError 表示一个调度任务耗尽重试额度后的最终失败，
// 由消费侧上抛给死信/告警机制。
type TerminalJobFailureError struct {
	JobType   string
	AuctionID string
	Attempts  int
	Cause     error
}

func (e *TerminalJobFailureError) Error() string {
	return fmt.Sprintf("job %s for auction %s failed terminally after %d attempts: %v",
		e.JobType, e.AuctionID, e.Attempts, e.Cause)
}

func (e *TerminalJobFailureError) Unwrap() error {
	return e.Cause
}
