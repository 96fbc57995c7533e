package agent

import "time"

// 执行状态
const (
	ExecStatusSuccess = "success"
	ExecStatusError   = "error"
	ExecStatusSkipped = "skipped"
)

// TriggerExecution 触发检查的审计记录，每次评估写一行
type TriggerExecution struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	AgentID     string `json:"agentId" gorm:"size:36;index;not null"`
	TriggerType string `json:"triggerType" gorm:"size:32"`
	EntityType  string `json:"entityType,omitempty" gorm:"size:32"`
	EntityID    string `json:"entityId,omitempty" gorm:"size:36;index"`

	// 是否满足触发条件
	Matched bool `json:"matched"`
	// 是否实际执行了流水线
	Executed bool `json:"executed"`

	// 逐条件评估轨迹
	Trace []ConditionTrace `json:"trace,omitempty" gorm:"type:jsonb;serializer:json"`

	ErrorMessage string    `json:"errorMessage,omitempty" gorm:"type:text"`
	CreatedAt    time.Time `json:"createdAt" gorm:"not null;autoCreateTime;index"`
}

// TableName 指定表名
func (TriggerExecution) TableName() string {
	return "trigger_executions"
}

// ConditionTrace 单条件的评估结果，用于调试触发配置
type ConditionTrace struct {
	InputID   string `json:"inputId"`
	Index     int    `json:"index"`
	Type      string `json:"type"`
	Operator  string `json:"operator,omitempty"`
	Field     string `json:"field,omitempty"`
	Satisfied bool   `json:"satisfied"`
	Detail    string `json:"detail,omitempty"`
}

// ModuleExecutionLogEntry 模块链中单个模块的执行记录
type ModuleExecutionLogEntry struct {
	ModuleType string `json:"moduleType"`
	Input      any    `json:"input,omitempty"`
	Output     any    `json:"output,omitempty"`
	DurationMs int64  `json:"durationMs"`
	Status     string `json:"status"` // success, error, skipped
	Error      string `json:"error,omitempty"`
}

// AgentExecution 一次完整流水线执行的审计记录
type AgentExecution struct {
	ID      string `json:"id" gorm:"primaryKey;size:36"`
	AgentID string `json:"agentId" gorm:"size:36;index;not null"`
	Status  string `json:"status" gorm:"size:16;not null"`

	// 模型原始输出
	Output string `json:"output,omitempty" gorm:"type:text"`

	// json_extractor 产出的变量
	ExtractedVariables map[string]any `json:"extractedVariables,omitempty" gorm:"type:jsonb;serializer:json"`

	// 模块链逐段记录
	ModulesChain []ModuleExecutionLogEntry `json:"modulesChain,omitempty" gorm:"type:jsonb;serializer:json"`

	DurationMs   int64     `json:"durationMs"`
	ErrorMessage string    `json:"errorMessage,omitempty" gorm:"type:text"`
	CreatedAt    time.Time `json:"createdAt" gorm:"not null;autoCreateTime;index"`
}

// TableName 指定表名
func (AgentExecution) TableName() string {
	return "agent_executions"
}

// UIEvent 面向界面组件的路由事件，由前端轮询消费
type UIEvent struct {
	ID            string `json:"id" gorm:"primaryKey;size:36"`
	AgentID       string `json:"agentId" gorm:"size:36;index"`
	TaskID        string `json:"taskId,omitempty" gorm:"size:36;index"`
	ComponentName string `json:"componentName" gorm:"size:100;not null"`
	EventType     string `json:"eventType" gorm:"size:50"`

	// 事件载荷（路由到该组件的变量值）
	Payload map[string]any `json:"payload,omitempty" gorm:"type:jsonb;serializer:json"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime;index"`
}

// TableName 指定表名
func (UIEvent) TableName() string {
	return "ui_events"
}
