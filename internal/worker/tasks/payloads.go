package tasks

// Task Types
const (
	TypeScheduledScan = "agent:scheduled_scan"
)

// ScheduledScanPayload 定时触发扫描任务载荷
// 载荷为空结构，扫描时刻由任务执行时间决定
type ScheduledScanPayload struct{}
