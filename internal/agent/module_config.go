package agent

import (
	"encoding/json"
	"fmt"
)

// PromptModuleConfig prompt 模块配置
// 模板中的 {{key}} 占位符在执行时以已解析输入替换
type PromptModuleConfig struct {
	Template string `json:"template"`
}

// ModelModuleConfig model 模块配置
// Model 为空时回退到智能体级的模型字段
type ModelModuleConfig struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
}

// ExtractVariable 一条结构化提取规则
type ExtractVariable struct {
	Name string `json:"name"`
	// JSONPath 表达式，如 "$.summary" 或 "$.a.b"
	Path string `json:"path"`
}

// JSONExtractorModuleConfig json_extractor 模块配置
type JSONExtractorModuleConfig struct {
	Variables []ExtractVariable `json:"variables"`
}

// 路由策略
const (
	RouterAllDestinations = "all_destinations"
	RouterBasedOnInput    = "based_on_input"
	RouterBasedOnLLM      = "based_on_llm"
)

// StringList 同时接受 JSON 字符串和字符串数组两种形态
// 历史配置中 sourceVariableId 曾是单个字符串，后演进为数组
type StringList []string

// UnmarshalJSON 实现宽容解码
func (s *StringList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*s = StringList{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = list
	return nil
}

// RouterRule 变量到目的地的映射规则
type RouterRule struct {
	ID               string     `json:"id,omitempty"`
	SourceVariableID StringList `json:"sourceVariableId"`
	DestinationID    string     `json:"destinationId"`
}

// RouterModuleConfig router 模块配置
type RouterModuleConfig struct {
	Strategy string `json:"strategy"` // all_destinations, based_on_input, based_on_llm

	// based_on_llm 策略的自然语言说明，仅用于校验与记录
	Description string `json:"description,omitempty"`

	Rules []RouterRule `json:"rules"`
}

// 目的地类型
const (
	DestinationDatabase    = "database"
	DestinationUIComponent = "ui_component"
)

// Destination 路由目的地
type Destination struct {
	ID   string `json:"id"`
	Type string `json:"type"` // database, ui_component

	// database 变体
	TargetTable  string `json:"targetTable,omitempty"`
	TargetColumn string `json:"targetColumn,omitempty"`
	RecordID     string `json:"recordId,omitempty"` // 空时使用触发实体的 ID

	// ui_component 变体
	ComponentName string `json:"componentName,omitempty"`
	EventType     string `json:"eventType,omitempty"`
}

// DestinationsModuleConfig destinations 模块配置
type DestinationsModuleConfig struct {
	Destinations []Destination `json:"destinations"`
}

// DestinationByID 按 ID 查找目的地
func (c *DestinationsModuleConfig) DestinationByID(id string) *Destination {
	for i := range c.Destinations {
		if c.Destinations[i].ID == id {
			return &c.Destinations[i]
		}
	}
	return nil
}

var validOperators = map[string]bool{
	OperatorEquals:      true,
	OperatorNotEquals:   true,
	OperatorContains:    true,
	OperatorNotContains: true,
	OperatorChanged:     true,
	OperatorIsEmpty:     true,
	OperatorIsNotEmpty:  true,
	OperatorStartsWith:  true,
	OperatorEndsWith:    true,
}

var validTriggerTypes = map[string]bool{
	TriggerOnCreate:  true,
	TriggerOnUpdate:  true,
	TriggerScheduled: true,
	TriggerOnDemand:  true,
}

func validateTriggerConfig(cfg *TriggerConfig) error {
	if cfg.Strategy != "" && cfg.Strategy != StrategyAllMatch && cfg.Strategy != StrategyAnyMatch {
		return fmt.Errorf("未知的组合策略: %s", cfg.Strategy)
	}
	for i, it := range cfg.InputTriggers {
		for j, cond := range it.Conditions {
			switch cond.Type {
			case ConditionTypeTrigger:
				if cond.TriggerType != "" && !validTriggerTypes[cond.TriggerType] {
					return fmt.Errorf("inputTriggers[%d].conditions[%d]: 未知的触发类型 %s", i, j, cond.TriggerType)
				}
			case ConditionTypeFilter:
				if cond.Operator == "" {
					return fmt.Errorf("inputTriggers[%d].conditions[%d]: filter 条件缺少操作符", i, j)
				}
				if !validOperators[cond.Operator] {
					return fmt.Errorf("inputTriggers[%d].conditions[%d]: 未知的操作符 %s", i, j, cond.Operator)
				}
			default:
				return fmt.Errorf("inputTriggers[%d].conditions[%d]: 未知的条件类型 %s", i, j, cond.Type)
			}
		}
	}
	return nil
}

func validateRouterConfig(cfg *RouterModuleConfig) error {
	switch cfg.Strategy {
	case "", RouterAllDestinations, RouterBasedOnInput:
	case RouterBasedOnLLM:
		if cfg.Description == "" {
			return fmt.Errorf("based_on_llm 策略需要 description")
		}
	default:
		return fmt.Errorf("未知的路由策略: %s", cfg.Strategy)
	}
	for i, rule := range cfg.Rules {
		if rule.DestinationID == "" {
			return fmt.Errorf("rules[%d]: 缺少 destinationId", i)
		}
	}
	return nil
}

func validateDestinationsConfig(cfg *DestinationsModuleConfig) error {
	for i, d := range cfg.Destinations {
		switch d.Type {
		case DestinationDatabase:
			if d.TargetTable == "" || d.TargetColumn == "" {
				return fmt.Errorf("destinations[%d]: database 目的地需要 targetTable 和 targetColumn", i)
			}
		case DestinationUIComponent:
			if d.ComponentName == "" {
				return fmt.Errorf("destinations[%d]: ui_component 目的地需要 componentName", i)
			}
		default:
			return fmt.Errorf("destinations[%d]: 未知的目的地类型 %s", i, d.Type)
		}
	}
	return nil
}

func validateExtractorConfig(cfg *JSONExtractorModuleConfig) error {
	for i, v := range cfg.Variables {
		if v.Name == "" {
			return fmt.Errorf("variables[%d]: 缺少变量名", i)
		}
		if v.Path == "" {
			return fmt.Errorf("variables[%d]: 缺少 JSONPath 表达式", i)
		}
	}
	return nil
}
