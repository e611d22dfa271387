// internal/service/auction/domain/port/publisher.go
package port

import (
	"context"

	"gavel/internal/service/auction/domain"
)

// EventPublisher 是领域事件发布的出站端口。
// 发布失败只记录不回滚：事件流是尽力而为的观察通道，不承载一致性。
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
