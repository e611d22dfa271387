// internal/service/auction/domain/status.go
package domain

// Status 定义了拍卖的生命周期状态
type Status string

const (
	StatusScheduled Status = "SCHEDULED" // 已创建，等待开拍
	StatusRunning   Status = "RUNNING"   // 进行中，接受出价
	StatusPaused    Status = "PAUSED"    // 暂停中，可恢复
	StatusCanceled  Status = "CANCELED"  // 已取消（终态）
	StatusFinished  Status = "FINISHED"  // 已结束（终态）
)

// Terminal 判断是否为终态。终态之后不允许任何状态流转。
func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusFinished
}
