package trigger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"backend/internal/agent"
)

// Event 一次触发扫描的输入
type Event struct {
	// 触发类型：on_create, on_update, scheduled, on_demand
	Type string

	// 实体事件的来源（task / board）；定时与手动触发为空
	EntityType string
	EntityID   string

	// 实体当前字段值
	Record map[string]any
	// 更新前的字段值（仅 on_update）
	Previous map[string]any
	// 本次变更的列名（仅 on_update）
	ChangedFields []string

	Time time.Time
}

// NewEntityEvent 构造实体事件
func NewEntityEvent(triggerType, entityType, entityID string, record map[string]any) *Event {
	return &Event{
		Type:       triggerType,
		EntityType: entityType,
		EntityID:   entityID,
		Record:     record,
		Time:       time.Now().UTC(),
	}
}

// NewScheduledEvent 构造定时扫描事件
func NewScheduledEvent(at time.Time) *Event {
	return &Event{Type: agent.TriggerScheduled, Time: at.UTC()}
}

// ScanKey 生成本次扫描的幂等键，同一事件的重复投递映射到同一键。
// 定时事件按间隔取整时间窗，实体事件由事件身份与变更列决定，
// 手动触发每次都是新键（不去重）。
func (e *Event) ScanKey(interval time.Duration) string {
	switch e.Type {
	case agent.TriggerScheduled:
		if interval <= 0 {
			interval = time.Minute
		}
		return fmt.Sprintf("scheduled:%d", e.Time.Truncate(interval).Unix())
	case agent.TriggerOnDemand:
		return "on_demand:" + uuid.New().String()
	default:
		changed := append([]string(nil), e.ChangedFields...)
		sort.Strings(changed)
		return fmt.Sprintf("%s:%s:%s:%s", e.Type, e.EntityType, e.EntityID, strings.Join(changed, ","))
	}
}

// FieldChanged 判断某列是否在本次事件中变更
func (e *Event) FieldChanged(column string) bool {
	for _, f := range e.ChangedFields {
		if f == column {
			return true
		}
	}
	return false
}
