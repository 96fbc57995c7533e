package agent

import (
	"encoding/json"
	"fmt"
	"time"
)

// ModuleType 模块类型枚举
type ModuleType string

const (
	ModuleTypeTrigger       ModuleType = "trigger"
	ModuleTypePrompt        ModuleType = "prompt"
	ModuleTypeModel         ModuleType = "model"
	ModuleTypeJSONExtractor ModuleType = "json_extractor"
	ModuleTypeRouter        ModuleType = "router"
	ModuleTypeDestinations  ModuleType = "destinations"
)

// 触发类型
const (
	TriggerOnCreate  = "on_create"
	TriggerOnUpdate  = "on_update"
	TriggerScheduled = "scheduled"
	TriggerOnDemand  = "on_demand"
)

// 跨输入触发组的组合策略
const (
	StrategyAllMatch = "all_match"
	StrategyAnyMatch = "any_match"
)

// StopModuleRef 分支引用哨兵值：命中该值时不执行流水线
const StopModuleRef = "stop"

// Module 处理链中的一个模块
// Config 在加载时由模块注册表解码为各类型专属的结构（见 registry.go）
type Module struct {
	ID     string          `json:"id"`
	Type   ModuleType      `json:"type"`
	Config json.RawMessage `json:"config"`
}

// OutputField 旧版扁平输出描述
type OutputField struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Agent 用户配置的自动化单元
// 由编辑界面创建/修改；触发扫描与流水线对其只读
type Agent struct {
	ID   string `json:"id" gorm:"primaryKey;size:36"`
	Name string `json:"name" gorm:"size:255;not null"`

	// 所选模型标识
	Model string `json:"model" gorm:"size:100"`

	// 模块链（顺序仅用于展示，执行顺序是固定常量，见 pipeline.StageOrder）
	Modules []Module `json:"modules" gorm:"type:jsonb;serializer:json"`

	// 旧版扁平字段（向后兼容）
	Prompt  string        `json:"prompt,omitempty" gorm:"type:text"`
	Inputs  []string      `json:"inputs,omitempty" gorm:"type:jsonb;serializer:json"`
	Outputs []OutputField `json:"outputs,omitempty" gorm:"type:jsonb;serializer:json"`

	Enabled bool `json:"enabled" gorm:"default:true;index"`

	// scheduled 触发的最小重触发间隔（分钟）
	IntervalMinutes int `json:"intervalMinutes" gorm:"default:0"`

	// 最近一次触发执行时间（定时背压判断依据）
	LastTriggerExecution *time.Time `json:"lastTriggerExecution"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// TableName 指定表名
func (Agent) TableName() string {
	return "agents"
}

// ModuleByType 按类型查找模块，模块链视作以类型为键的集合
func (a *Agent) ModuleByType(t ModuleType) *Module {
	for i := range a.Modules {
		if a.Modules[i].Type == t {
			return &a.Modules[i]
		}
	}
	return nil
}

// TriggerConfig 解出 trigger 模块的配置；无 trigger 模块时返回 nil
func (a *Agent) TriggerConfig() (*TriggerConfig, error) {
	m := a.ModuleByType(ModuleTypeTrigger)
	if m == nil {
		return nil, nil
	}
	var cfg TriggerConfig
	if len(m.Config) > 0 {
		if err := json.Unmarshal(m.Config, &cfg); err != nil {
			return nil, fmt.Errorf("解析触发配置失败: %w", err)
		}
	}
	return &cfg, nil
}

// TriggerConfig 触发配置
type TriggerConfig struct {
	Enabled  bool   `json:"enabled"`
	Strategy string `json:"strategy"` // all_match, any_match

	InputTriggers []InputTrigger `json:"inputTriggers"`

	// 条件满足/不满足时的分支模块引用，哨兵值 "stop" 表示终止
	CorrectModuleID    string `json:"correctModuleId,omitempty"`
	NotCorrectModuleID string `json:"notCorrectModuleId,omitempty"`
}

// InputTrigger 绑定到一个输入字段的条件组，为触发决策贡献一个布尔值
type InputTrigger struct {
	// 源实体字段引用（如 task_title）；"none" 或空表示仅匹配触发类型
	InputID string `json:"inputId"`

	Conditions []TriggerCondition `json:"conditions"`

	// 条件序号上的布尔表达式，如 "0 AND (1 OR 2)"；空串表示对全部条件取 OR
	ConditionLogic string `json:"conditionLogic"`
}

// 条件种类
const (
	ConditionTypeTrigger = "trigger"
	ConditionTypeFilter  = "filter"
)

// filter 条件支持的操作符
const (
	OperatorEquals      = "equals"
	OperatorNotEquals   = "not_equals"
	OperatorContains    = "contains"
	OperatorNotContains = "not_contains"
	OperatorChanged     = "changed"
	OperatorIsEmpty     = "is_empty"
	OperatorIsNotEmpty  = "is_not_empty"
	OperatorStartsWith  = "starts_with"
	OperatorEndsWith    = "ends_with"
)

// TriggerCondition 触发条件（trigger 变体匹配事件种类，filter 变体比较字段值）
type TriggerCondition struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"` // trigger, filter

	// trigger 变体
	TriggerType  string `json:"triggerType,omitempty"`
	ScheduleTime string `json:"scheduleTime,omitempty"` // "HH:MM"，当日去重判断用

	// filter 变体
	Field    string `json:"field,omitempty"` // 字段引用，空时退回所属 InputTrigger 的 inputId
	Operator string `json:"operator,omitempty"`
	Value    string `json:"value,omitempty"`
}
