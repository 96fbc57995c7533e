package agent

import (
	"encoding/json"
	"fmt"
)

// ModuleKind 描述一种模块类型的配置行为
// 新增模块类型时在此注册，校验与解码统一经由注册表分派
type ModuleKind interface {
	// DefaultConfig 返回该类型的缺省配置
	DefaultConfig() any
	// Validate 校验原始配置
	Validate(raw json.RawMessage) error
	// Decode 解码为类型专属配置结构
	Decode(raw json.RawMessage) (any, error)
}

type triggerKind struct{}

func (triggerKind) DefaultConfig() any {
	return &TriggerConfig{Enabled: false, Strategy: StrategyAllMatch}
}

func (k triggerKind) Validate(raw json.RawMessage) error {
	cfg, err := k.Decode(raw)
	if err != nil {
		return err
	}
	return validateTriggerConfig(cfg.(*TriggerConfig))
}

func (triggerKind) Decode(raw json.RawMessage) (any, error) {
	cfg := &TriggerConfig{}
	if err := decodeRaw(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

type promptKind struct{}

func (promptKind) DefaultConfig() any { return &PromptModuleConfig{} }

func (k promptKind) Validate(raw json.RawMessage) error {
	_, err := k.Decode(raw)
	return err
}

func (promptKind) Decode(raw json.RawMessage) (any, error) {
	cfg := &PromptModuleConfig{}
	if err := decodeRaw(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

type modelKind struct{}

func (modelKind) DefaultConfig() any { return &ModelModuleConfig{Temperature: 0.7} }

func (k modelKind) Validate(raw json.RawMessage) error {
	cfg, err := k.Decode(raw)
	if err != nil {
		return err
	}
	mc := cfg.(*ModelModuleConfig)
	if mc.Temperature < 0 || mc.Temperature > 2 {
		return fmt.Errorf("temperature 超出范围: %v", mc.Temperature)
	}
	if mc.MaxTokens < 0 {
		return fmt.Errorf("maxTokens 不能为负: %d", mc.MaxTokens)
	}
	return nil
}

func (modelKind) Decode(raw json.RawMessage) (any, error) {
	cfg := &ModelModuleConfig{}
	if err := decodeRaw(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

type jsonExtractorKind struct{}

func (jsonExtractorKind) DefaultConfig() any { return &JSONExtractorModuleConfig{} }

func (k jsonExtractorKind) Validate(raw json.RawMessage) error {
	cfg, err := k.Decode(raw)
	if err != nil {
		return err
	}
	return validateExtractorConfig(cfg.(*JSONExtractorModuleConfig))
}

func (jsonExtractorKind) Decode(raw json.RawMessage) (any, error) {
	cfg := &JSONExtractorModuleConfig{}
	if err := decodeRaw(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

type routerKind struct{}

func (routerKind) DefaultConfig() any {
	return &RouterModuleConfig{Strategy: RouterAllDestinations}
}

func (k routerKind) Validate(raw json.RawMessage) error {
	cfg, err := k.Decode(raw)
	if err != nil {
		return err
	}
	return validateRouterConfig(cfg.(*RouterModuleConfig))
}

func (routerKind) Decode(raw json.RawMessage) (any, error) {
	cfg := &RouterModuleConfig{}
	if err := decodeRaw(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

type destinationsKind struct{}

func (destinationsKind) DefaultConfig() any { return &DestinationsModuleConfig{} }

func (k destinationsKind) Validate(raw json.RawMessage) error {
	cfg, err := k.Decode(raw)
	if err != nil {
		return err
	}
	return validateDestinationsConfig(cfg.(*DestinationsModuleConfig))
}

func (destinationsKind) Decode(raw json.RawMessage) (any, error) {
	cfg := &DestinationsModuleConfig{}
	if err := decodeRaw(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// moduleRegistry 模块类型注册表
var moduleRegistry = map[ModuleType]ModuleKind{
	ModuleTypeTrigger:       triggerKind{},
	ModuleTypePrompt:        promptKind{},
	ModuleTypeModel:         modelKind{},
	ModuleTypeJSONExtractor: jsonExtractorKind{},
	ModuleTypeRouter:        routerKind{},
	ModuleTypeDestinations:  destinationsKind{},
}

// KindOf 返回模块类型对应的注册项
func KindOf(t ModuleType) (ModuleKind, bool) {
	k, ok := moduleRegistry[t]
	return k, ok
}

// DecodeConfig 解码模块配置为类型专属结构
func DecodeConfig(m *Module) (any, error) {
	kind, ok := moduleRegistry[m.Type]
	if !ok {
		return nil, fmt.Errorf("未知的模块类型: %s", m.Type)
	}
	return kind.Decode(m.Config)
}

// ValidateModules 校验模块链；类型在链中必须唯一
func ValidateModules(modules []Module) error {
	seen := make(map[ModuleType]bool, len(modules))
	for i, m := range modules {
		kind, ok := moduleRegistry[m.Type]
		if !ok {
			return fmt.Errorf("modules[%d]: 未知的模块类型 %s", i, m.Type)
		}
		if seen[m.Type] {
			return fmt.Errorf("modules[%d]: 模块类型 %s 重复", i, m.Type)
		}
		seen[m.Type] = true
		if err := kind.Validate(m.Config); err != nil {
			return fmt.Errorf("modules[%d] (%s): %w", i, m.Type, err)
		}
	}
	return nil
}

func decodeRaw(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("配置解析失败: %w", err)
	}
	return nil
}
